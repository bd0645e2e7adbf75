package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patricktravel/portal/internal/core/domain"
)

// ApplicationRepository keeps submitted applications keyed by reference.
type ApplicationRepository struct {
	mu   sync.RWMutex
	apps map[string]domain.Application
}

func NewApplicationRepository() *ApplicationRepository {
	return &ApplicationRepository{apps: make(map[string]domain.Application)}
}

func (r *ApplicationRepository) Create(_ context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.Reference] = *app
	return nil
}

func (r *ApplicationRepository) FindByReference(_ context.Context, reference, userID string) (*domain.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[reference]
	if !ok || app.UserID != userID {
		return nil, domain.ErrApplicationNotFound
	}
	return &app, nil
}

// Key namespaces, matching the Redis adapters. Idempotency keys are client
// chosen and must never be accepted as reset tokens.
const (
	idemPrefix  = "applications:idem:"
	resetPrefix = "auth:reset:"
)

// KeyStore is an expiring string map. It backs both submission dedup and
// password reset tokens when Redis is not configured.
type KeyStore struct {
	mu      sync.Mutex
	entries map[string]keyEntry
	ttl     time.Duration
	now     func() time.Time
}

type keyEntry struct {
	value     string
	expiresAt time.Time
}

// NewKeyStore creates a store whose Remember entries live for ttl.
func NewKeyStore(ttl time.Duration) *KeyStore {
	return &KeyStore{entries: make(map[string]keyEntry), ttl: ttl, now: time.Now}
}

func (s *KeyStore) get(key string) (keyEntry, bool) {
	e, ok := s.entries[key]
	if ok && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return keyEntry{}, false
	}
	return e, ok
}

// Lookup returns "" when key is unknown or expired.
func (s *KeyStore) Lookup(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _ := s.get(idemPrefix + key)
	return e.value, nil
}

// Remember stores reference under key unless the key is already taken.
func (s *KeyStore) Remember(_ context.Context, key, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key = idemPrefix + key
	if _, ok := s.get(key); !ok {
		s.entries[key] = keyEntry{value: reference, expiresAt: s.now().Add(s.ttl)}
	}
	return nil
}

// Save stores a reset token for ttl.
func (s *KeyStore) Save(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[resetPrefix+token] = keyEntry{value: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

// Consume returns and deletes the owner of token.
func (s *KeyStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := resetPrefix + token
	e, ok := s.get(key)
	if !ok {
		return "", domain.ErrInvalidLink
	}
	delete(s.entries, key)
	return e.value, nil
}
