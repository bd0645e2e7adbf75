package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/patricktravel/portal/internal/api/metrics"
	"github.com/patricktravel/portal/internal/core/domain"
	"github.com/patricktravel/portal/internal/core/ports"
)

// TokenIssuer mints session tokens (internal/core/token).
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// AuthOptions tunes AuthService behaviour.
type AuthOptions struct {
	// RequireConfirmation refuses login until the email link was followed.
	RequireConfirmation bool
	// PublicBaseURL prefixes the links placed in outgoing mail.
	PublicBaseURL string
	ResetTTL      time.Duration
}

// AuthService implements registration, login and account recovery on top of
// an external credential store.
type AuthService struct {
	store  ports.CredentialStore
	tokens TokenIssuer
	mail   ports.MailQueue
	resets ports.ResetTokenStore
	opts   AuthOptions
	log    zerolog.Logger
}

// NewAuthService wires the service. mail and resets may be nil: without mail
// no links are sent, without resets password recovery is unavailable.
func NewAuthService(
	store ports.CredentialStore,
	tokens TokenIssuer,
	mail ports.MailQueue,
	resets ports.ResetTokenStore,
	opts AuthOptions,
	log zerolog.Logger,
) *AuthService {
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = domain.PasswordResetTTL
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &AuthService{store: store, tokens: tokens, mail: mail, resets: resets, opts: opts, log: log}
}

func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	res, err := s.register(ctx, reg)
	metrics.AuthAttemptsTotal.WithLabelValues("register", authOutcome(err)).Inc()
	return res, err
}

func (s *AuthService) register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	if err := domain.ValidateRegistration(reg); err != nil {
		return nil, err
	}
	reg = reg.Normalized()

	user, err := s.store.SignUp(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	if user.Verification != nil {
		s.enqueue(ports.MailMessage{
			Kind:    ports.MailVerification,
			To:      user.Email,
			Subject: "Confirm your email",
			Body: fmt.Sprintf("Hello %s,\n\nPlease confirm your email address by following this link:\n%s\n\nThe link expires in 24 hours.",
				user.FirstName, s.link("/auth/confirm", url.Values{"token": {user.Verification.Token}, "type": {"signup"}})),
		})
	}

	s.log.Info().Str("user_id", user.ID).Str("account_type", string(user.AccountType)).Msg("user registered")
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	res, err := s.login(ctx, email, password)
	metrics.AuthAttemptsTotal.WithLabelValues("login", authOutcome(err)).Inc()
	return res, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if err := domain.ValidateLogin(email, password); err != nil {
		return nil, err
	}

	user, err := s.store.SignIn(ctx, domain.NormalizeEmail(email), password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if s.opts.RequireConfirmation && !user.EmailConfirmed {
		return nil, fmt.Errorf("login: %w", domain.ErrUnconfirmedEmail)
	}

	return s.issue(user)
}

// ConfirmEmail marks the account behind a verification link as confirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("confirm", authOutcome(domain.ErrInvalidLink)).Inc()
		return nil, domain.ErrInvalidLink
	}
	user, err := s.store.ConfirmEmail(ctx, token)
	metrics.AuthAttemptsTotal.WithLabelValues("confirm", authOutcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("confirm email: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Msg("email confirmed")
	return user, nil
}

// RequestPasswordReset mails a single-use reset link. Unknown addresses are
// accepted silently so the endpoint cannot be used to probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	err := s.requestPasswordReset(ctx, email)
	metrics.AuthAttemptsTotal.WithLabelValues("reset_request", authOutcome(err)).Inc()
	return err
}

func (s *AuthService) requestPasswordReset(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.NewValidationError(map[string]string{"email": "Email is required"})
	}
	recovery, err := s.recovery()
	if err != nil {
		return err
	}

	user, err := recovery.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.log.Debug().Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}

	tok, err := domain.NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.resets.Save(ctx, tok, user.ID, s.opts.ResetTTL); err != nil {
		return fmt.Errorf("password reset: %w", err)
	}

	s.enqueue(ports.MailMessage{
		Kind:    ports.MailPasswordReset,
		To:      user.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hello %s,\n\nUse this link to choose a new password:\n%s\n\nThe link expires in one hour.",
			user.FirstName, s.link("/auth/reset-password", url.Values{"token": {tok}})),
	})
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	err := s.resetPassword(ctx, token, newPassword)
	metrics.AuthAttemptsTotal.WithLabelValues("reset", authOutcome(err)).Inc()
	return err
}

func (s *AuthService) resetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return domain.NewValidationError(map[string]string{"password": "Password is required"})
	}
	recovery, err := s.recovery()
	if err != nil {
		return err
	}

	userID, err := s.resets.Consume(ctx, token)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := recovery.UpdatePassword(ctx, userID, newPassword); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info().Str("user_id", userID).Msg("password reset")
	return nil
}

// Profile returns the current user for the profile dashboard.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.FindByID(ctx, userID)
}

func (s *AuthService) recovery() (ports.AccountRecovery, error) {
	recovery, ok := s.store.(ports.AccountRecovery)
	if !ok || s.resets == nil {
		return nil, domain.ErrRecoveryUnavailable
	}
	return recovery, nil
}

func (s *AuthService) issue(user *domain.User) (*domain.AuthResult, error) {
	tok, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	metrics.TokensIssuedTotal.Inc()
	return &domain.AuthResult{User: user, Token: tok, ExpiresAt: exp}, nil
}

func (s *AuthService) enqueue(msg ports.MailMessage) {
	if s.mail == nil {
		s.log.Warn().Str("kind", string(msg.Kind)).Msg("no mail queue configured, message not sent")
		return
	}
	s.mail.Enqueue(msg)
}

func (s *AuthService) link(path string, q url.Values) string {
	return s.opts.PublicBaseURL + path + "?" + q.Encode()
}

func authOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrDuplicateAccount):
		return "duplicate"
	case errors.Is(err, domain.ErrUnconfirmedEmail):
		return "unconfirmed"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "bad_credentials"
	case errors.Is(err, domain.ErrInvalidLink):
		return "invalid_link"
	default:
		return "error"
	}
}
