package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/patricktravel/portal/internal/core/domain"
	"github.com/patricktravel/portal/internal/core/ports"
	"github.com/patricktravel/portal/internal/core/token"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubCredentialStore struct {
	users        map[string]*domain.User // by email
	passwords    map[string]string       // by user id
	byToken      map[string]string       // verification token -> email
	withVerify   bool
	signInCalled int
}

func newStubCredentialStore() *stubCredentialStore {
	return &stubCredentialStore{
		users:     make(map[string]*domain.User),
		passwords: make(map[string]string),
		byToken:   make(map[string]string),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (s *stubCredentialStore) SignUp(_ context.Context, reg domain.Registration) (*domain.User, error) {
	if _, exists := s.users[reg.Email]; exists {
		return nil, domain.ErrDuplicateAccount
	}
	u := &domain.User{ID: "u-" + reg.FirstName, Profile: reg.Profile}
	if s.withVerify {
		u.Verification = &domain.Verification{Token: "verify-" + u.ID, ExpiresAt: time.Now().Add(time.Hour)}
		s.byToken[u.Verification.Token] = reg.Email
	} else {
		u.EmailConfirmed = true
	}
	s.users[reg.Email] = cloneUser(u)
	s.passwords[u.ID] = reg.Password
	return cloneUser(u), nil
}

func (s *stubCredentialStore) SignIn(_ context.Context, email, password string) (*domain.User, error) {
	s.signInCalled++
	u, ok := s.users[email]
	if !ok || s.passwords[u.ID] != password {
		return nil, domain.ErrInvalidCredentials
	}
	return cloneUser(u), nil
}

func (s *stubCredentialStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubCredentialStore) ConfirmEmail(_ context.Context, tok string) (*domain.User, error) {
	email, ok := s.byToken[tok]
	if !ok {
		return nil, domain.ErrInvalidLink
	}
	delete(s.byToken, tok)
	s.users[email].EmailConfirmed = true
	return cloneUser(s.users[email]), nil
}

func (s *stubCredentialStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *stubCredentialStore) UpdatePassword(_ context.Context, userID, pw string) error {
	s.passwords[userID] = pw
	return nil
}

// noRecoveryStore hides the AccountRecovery methods of the wrapped store.
type noRecoveryStore struct{ ports.CredentialStore }

type stubQueue struct{ msgs []ports.MailMessage }

func (q *stubQueue) Enqueue(m ports.MailMessage) { q.msgs = append(q.msgs, m) }

type stubResets struct {
	tokens map[string]string
	ttl    time.Duration
}

func newStubResets() *stubResets { return &stubResets{tokens: make(map[string]string)} }

func (r *stubResets) Save(_ context.Context, tok, userID string, ttl time.Duration) error {
	r.tokens[tok] = userID
	r.ttl = ttl
	return nil
}

func (r *stubResets) Consume(_ context.Context, tok string) (string, error) {
	id, ok := r.tokens[tok]
	if !ok {
		return "", domain.ErrInvalidLink
	}
	delete(r.tokens, tok)
	return id, nil
}

type authFixture struct {
	store  *stubCredentialStore
	queue  *stubQueue
	resets *stubResets
	tokens *token.Issuer
	svc    *AuthService
}

func newAuthFixture(opts AuthOptions) *authFixture {
	f := &authFixture{
		store:  newStubCredentialStore(),
		queue:  &stubQueue{},
		resets: newStubResets(),
		tokens: token.NewIssuer("secret", token.DefaultTTL),
	}
	f.svc = NewAuthService(f.store, f.tokens, f.queue, f.resets, opts, zerolog.Nop())
	return f
}

func registration(first, email string) domain.Registration {
	return domain.Registration{
		Profile:  domain.Profile{FirstName: first, LastName: "Doe", Email: email},
		Password: "pass123",
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture(AuthOptions{})

	res, err := f.svc.Register(context.Background(), registration("alice", "  Alice@Example.com "))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.User == nil || res.User.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %+v", res.User)
	}
	if res.User.AccountType != domain.AccountStudent {
		t.Fatalf("expected default account type, got %q", res.User.AccountType)
	}

	sub, err := f.tokens.Verify(res.Token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if sub != res.User.ID {
		t.Fatalf("expected subject %s, got %s", res.User.ID, sub)
	}
	if len(f.queue.msgs) != 0 {
		t.Fatalf("expected no mail without verification, got %d", len(f.queue.msgs))
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newAuthFixture(AuthOptions{})

	_, err := f.svc.Register(context.Background(), domain.Registration{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(f.store.users) != 0 {
		t.Fatalf("store must not be called on invalid input")
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newAuthFixture(AuthOptions{})

	_, _ = f.svc.Register(context.Background(), registration("bob", "bob@example.com"))
	if _, err := f.svc.Register(context.Background(), registration("bob", "bob@example.com")); !errors.Is(err, domain.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestAuthService_Register_SendsVerificationMail(t *testing.T) {
	f := newAuthFixture(AuthOptions{PublicBaseURL: "https://portal.example/"})
	f.store.withVerify = true

	if _, err := f.svc.Register(context.Background(), registration("carol", "carol@example.com")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if len(f.queue.msgs) != 1 {
		t.Fatalf("expected one mail, got %d", len(f.queue.msgs))
	}
	msg := f.queue.msgs[0]
	if msg.Kind != ports.MailVerification || msg.To != "carol@example.com" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if !strings.Contains(msg.Body, "https://portal.example/auth/confirm?token=verify-u-carol&type=signup") {
		t.Fatalf("confirmation link missing from body: %s", msg.Body)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(AuthOptions{})
	_, _ = f.svc.Register(context.Background(), registration("dave", "dave@example.com"))

	res, err := f.svc.Login(context.Background(), "DAVE@example.com", "pass123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token == "" || res.User.ID != "u-dave" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.ExpiresAt.IsZero() {
		t.Fatalf("expected expiry")
	}
}

func TestAuthService_Login_EmptyInputs(t *testing.T) {
	f := newAuthFixture(AuthOptions{})

	if _, err := f.svc.Login(context.Background(), "", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if f.store.signInCalled != 0 {
		t.Fatalf("store must not be called with empty credentials")
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	f := newAuthFixture(AuthOptions{})
	_, _ = f.svc.Register(context.Background(), registration("erin", "erin@example.com"))

	if _, err := f.svc.Login(context.Background(), "erin@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_Unconfirmed(t *testing.T) {
	f := newAuthFixture(AuthOptions{RequireConfirmation: true})
	f.store.withVerify = true
	_, _ = f.svc.Register(context.Background(), registration("fay", "fay@example.com"))

	_, err := f.svc.Login(context.Background(), "fay@example.com", "pass123")
	if !errors.Is(err, domain.ErrUnconfirmedEmail) {
		t.Fatalf("expected ErrUnconfirmedEmail, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unconfirmed must stay distinct from invalid credentials")
	}

	if _, err := f.svc.ConfirmEmail(context.Background(), "verify-u-fay"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "fay@example.com", "pass123"); err != nil {
		t.Fatalf("login after confirmation failed: %v", err)
	}
}

func TestAuthService_Login_WrongPasswordBeatsUnconfirmed(t *testing.T) {
	f := newAuthFixture(AuthOptions{RequireConfirmation: true})
	f.store.withVerify = true
	_, _ = f.svc.Register(context.Background(), registration("gus", "gus@example.com"))

	if _, err := f.svc.Login(context.Background(), "gus@example.com", "nope"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Confirmation and recovery
// ---------------------------------------------------------------------------

func TestAuthService_ConfirmEmail_InvalidToken(t *testing.T) {
	f := newAuthFixture(AuthOptions{})

	if _, err := f.svc.ConfirmEmail(context.Background(), ""); !errors.Is(err, domain.ErrInvalidLink) {
		t.Fatalf("expected ErrInvalidLink for empty token, got %v", err)
	}
	if _, err := f.svc.ConfirmEmail(context.Background(), "nope"); !errors.Is(err, domain.ErrInvalidLink) {
		t.Fatalf("expected ErrInvalidLink, got %v", err)
	}
}

func TestAuthService_PasswordReset_RoundTrip(t *testing.T) {
	f := newAuthFixture(AuthOptions{PublicBaseURL: "https://portal.example"})
	_, _ = f.svc.Register(context.Background(), registration("hana", "hana@example.com"))

	if err := f.svc.RequestPasswordReset(context.Background(), "hana@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if f.resets.ttl != time.Hour {
		t.Fatalf("expected 1h reset ttl, got %v", f.resets.ttl)
	}
	if len(f.queue.msgs) != 1 || f.queue.msgs[0].Kind != ports.MailPasswordReset {
		t.Fatalf("expected reset mail, got %+v", f.queue.msgs)
	}

	var tok string
	for k := range f.resets.tokens {
		tok = k
	}
	if !strings.Contains(f.queue.msgs[0].Body, "/auth/reset-password?token="+tok) {
		t.Fatalf("reset link missing from body")
	}

	if err := f.svc.ResetPassword(context.Background(), tok, "newpass"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "hana@example.com", "newpass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if err := f.svc.ResetPassword(context.Background(), tok, "again"); !errors.Is(err, domain.ErrInvalidLink) {
		t.Fatalf("expected reused token to fail, got %v", err)
	}
}

func TestAuthService_PasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(AuthOptions{})

	if err := f.svc.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(f.queue.msgs) != 0 {
		t.Fatalf("expected no mail for unknown email")
	}
}

func TestAuthService_PasswordReset_Unavailable(t *testing.T) {
	store := newStubCredentialStore()
	svc := NewAuthService(noRecoveryStore{store}, token.NewIssuer("secret", 0), nil, newStubResets(), AuthOptions{}, zerolog.Nop())

	if err := svc.RequestPasswordReset(context.Background(), "a@example.com"); !errors.Is(err, domain.ErrRecoveryUnavailable) {
		t.Fatalf("expected ErrRecoveryUnavailable, got %v", err)
	}
}

func TestAuthService_Profile(t *testing.T) {
	f := newAuthFixture(AuthOptions{})
	_, _ = f.svc.Register(context.Background(), registration("ivy", "ivy@example.com"))

	u, err := f.svc.Profile(context.Background(), "u-ivy")
	if err != nil || u.Email != "ivy@example.com" {
		t.Fatalf("unexpected profile: %+v, %v", u, err)
	}
	if _, err := f.svc.Profile(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
