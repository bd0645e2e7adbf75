package session

import (
	"context"
	"sync"
	"time"

	"github.com/patricktravel/portal/internal/core/domain"
)

// Persisted is the durable session record. Token and user are always saved
// and cleared together.
type Persisted struct {
	Token           string      `json:"token"`
	CookieExpiresAt time.Time   `json:"cookieExpiresAt"`
	User            domain.User `json:"user"`
}

// Store is durable client storage for one session record.
type Store interface {
	// Load returns nil, nil when nothing is stored.
	Load(ctx context.Context) (*Persisted, error)
	Save(ctx context.Context, p Persisted) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	rec *Persisted
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(_ context.Context) (*Persisted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, p Persisted) error {
	s.mu.Lock()
	s.rec = &p
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.rec = nil
	s.mu.Unlock()
	return nil
}
