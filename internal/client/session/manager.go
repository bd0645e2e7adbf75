// Package session owns the client side of authentication: the current user,
// the session cookie and its durable copy.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/patricktravel/portal/internal/core/domain"
)

// Authenticator is the remote side of register and login.
type Authenticator interface {
	Register(ctx context.Context, in domain.Registration) (*domain.AuthResult, error)
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)
}

// State is what observers see. Loading is true only until Init completes.
type State struct {
	User    *domain.User
	Loading bool
}

// Authenticated reports whether a user is present.
func (s State) Authenticated() bool { return s.User != nil }

type Option func(*Manager)

func WithCookiePolicy(p CookiePolicy) Option {
	return func(m *Manager) { m.policy = p.withDefaults() }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

type subscriber struct {
	id int
	fn func(State)
}

// Manager holds the session for one client. All methods are safe for
// concurrent use; observers run synchronously after the state lock is
// released, in subscription order.
type Manager struct {
	auth   Authenticator
	store  Store
	policy CookiePolicy
	now    func() time.Time
	log    zerolog.Logger

	mu      sync.Mutex
	state   State
	record  *Persisted
	subs    []subscriber
	nextSub int
}

func NewManager(auth Authenticator, store Store, opts ...Option) *Manager {
	m := &Manager{
		auth:   auth,
		store:  store,
		policy: DefaultCookiePolicy(),
		now:    time.Now,
		log:    zerolog.Nop(),
		state:  State{Loading: true},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init restores a persisted session. The restored user is advisory; the
// server still checks the cookie on every protected request.
func (m *Manager) Init(ctx context.Context) {
	rec, err := m.store.Load(ctx)
	if err == nil && rec != nil && (rec.Token == "" || rec.User.ID == "") {
		err = errors.New("incomplete session record")
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("discarding unreadable stored session")
		if cerr := m.store.Clear(ctx); cerr != nil {
			m.log.Error().Err(cerr).Msg("failed to clear stored session")
		}
		rec = nil
	}

	m.mu.Lock()
	m.record = rec
	m.state = State{Loading: false}
	if rec != nil {
		u := rec.User
		m.state.User = &u
	}
	m.mu.Unlock()

	m.notify()
}

// Register validates locally, creates the account and stores the session.
func (m *Manager) Register(ctx context.Context, in domain.Registration) error {
	if err := domain.ValidateRegistration(in); err != nil {
		return err
	}
	res, err := m.auth.Register(ctx, in.Normalized())
	if err != nil {
		return err
	}
	return m.establish(ctx, res)
}

// Login requires both credentials before contacting the server.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if err := domain.ValidateLogin(email, password); err != nil {
		return err
	}
	res, err := m.auth.Login(ctx, domain.NormalizeEmail(email), password)
	if err != nil {
		return err
	}
	return m.establish(ctx, res)
}

// Logout always succeeds. Storage failures are logged.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error().Err(err).Msg("failed to clear stored session")
	}

	m.mu.Lock()
	m.record = nil
	m.state = State{Loading: false}
	m.mu.Unlock()

	m.notify()
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Subscribe registers fn for every future state change. The returned func
// removes it; fn is never called after that.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Cookie returns the session cookie, or nil when there is none or it has
// outlived its Max-Age.
func (m *Manager) Cookie() *http.Cookie {
	m.mu.Lock()
	rec := m.record
	m.mu.Unlock()

	if rec == nil || !m.now().Before(rec.CookieExpiresAt) {
		return nil
	}
	c := m.policy.build(rec.Token, rec.CookieExpiresAt)
	c.MaxAge = int(rec.CookieExpiresAt.Sub(m.now()) / time.Second)
	if c.MaxAge <= 0 {
		return nil
	}
	return c
}

func (m *Manager) establish(ctx context.Context, res *domain.AuthResult) error {
	if res == nil || res.User == nil || res.Token == "" {
		return fmt.Errorf("session: incomplete auth result")
	}
	rec := Persisted{
		Token:           res.Token,
		CookieExpiresAt: m.now().Add(m.policy.MaxAge),
		User:            *res.User,
	}
	if err := m.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("session: persist: %w", err)
	}

	m.mu.Lock()
	m.record = &rec
	u := rec.User
	m.state = State{User: &u, Loading: false}
	m.mu.Unlock()

	m.log.Info().Str("user_id", u.ID).Msg("session established")
	m.notify()
	return nil
}

func (m *Manager) snapshot() State {
	s := m.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (m *Manager) notify() {
	m.mu.Lock()
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, s := range subs {
		// an observer may unsubscribe a later one from inside its callback
		if !m.subscribed(s.id) {
			continue
		}
		s.fn(m.State())
	}
}

func (m *Manager) subscribed(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.id == id {
			return true
		}
	}
	return false
}
