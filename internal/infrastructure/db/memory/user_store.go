// Package memory holds an in-process credential store for local development
// and tests. Nothing survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/patricktravel/portal/internal/core/domain"
)

// UserStore keeps users in maps guarded by a mutex.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
	byToken map[string]string
	cost    int
	now     func() time.Time
}

type Option func(*UserStore)

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *UserStore) { s.cost = cost }
}

// WithClock overrides the time source used for verification expiry.
func WithClock(now func() time.Time) Option {
	return func(s *UserStore) { s.now = now }
}

func NewUserStore(opts ...Option) *UserStore {
	s := &UserStore{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
		byToken: make(map[string]string),
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserStore) SignUp(_ context.Context, reg domain.Registration) (*domain.User, error) {
	email := domain.NormalizeEmail(reg.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	verification, err := domain.NewVerification(now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return nil, domain.ErrDuplicateAccount
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Profile:      reg.Profile,
		PasswordHash: string(hash),
		Verification: verification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.Email = email
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID
	s.byToken[verification.Token] = u.ID

	return clone(u), nil
}

func (s *UserStore) SignIn(_ context.Context, email, password string) (*domain.User, error) {
	s.mu.RLock()
	u, ok := s.lookupEmail(email)
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return publicCopy(u), nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return publicCopy(u), nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.lookupEmail(email)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return publicCopy(u), nil
}

func (s *UserStore) ConfirmEmail(_ context.Context, token string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byToken[token]
	if !ok {
		return nil, domain.ErrInvalidLink
	}
	u := s.byID[id]
	if u.Verification == nil || !s.now().Before(u.Verification.ExpiresAt) {
		return nil, domain.ErrInvalidLink
	}

	delete(s.byToken, token)
	u.Verification = nil
	u.EmailConfirmed = true
	u.UpdatedAt = s.now().UTC()
	return publicCopy(u), nil
}

func (s *UserStore) UpdatePassword(_ context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *UserStore) lookupEmail(email string) (*domain.User, bool) {
	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, false
	}
	return s.byID[id], true
}

func clone(u *domain.User) *domain.User {
	c := *u
	if u.Verification != nil {
		v := *u.Verification
		c.Verification = &v
	}
	return &c
}

// publicCopy drops the pending verification so only SignUp hands it out.
func publicCopy(u *domain.User) *domain.User {
	c := clone(u)
	c.Verification = nil
	return c
}
