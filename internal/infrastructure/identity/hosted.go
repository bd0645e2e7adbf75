// Package identity adapts a hosted, GoTrue-compatible identity provider to
// the CredentialStore port.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patricktravel/portal/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

// Config locates the provider. ServiceKey is only needed for FindByID.
type Config struct {
	URL        string
	AnonKey    string
	ServiceKey string
	Timeout    time.Duration
}

// HostedStore talks to the provider's REST API. The provider owns password
// hashes and sends its own confirmation mail, so it does not implement
// AccountRecovery.
type HostedStore struct {
	base       string
	anonKey    string
	serviceKey string
	http       *http.Client
}

func NewHostedStore(cfg Config, client *http.Client) *HostedStore {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HostedStore{
		base:       strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		http:       client,
	}
}

type hostedUser struct {
	ID               string          `json:"id"`
	Email            string          `json:"email"`
	EmailConfirmedAt *time.Time      `json:"email_confirmed_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	UserMetadata     json.RawMessage `json:"user_metadata"`
}

// hostedSession is returned by /token and, with auto-confirm on, by /signup.
type hostedSession struct {
	AccessToken string      `json:"access_token"`
	User        *hostedUser `json:"user"`
}

type hostedError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func (s *HostedStore) SignUp(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	body := map[string]any{
		"email":    domain.NormalizeEmail(reg.Email),
		"password": reg.Password,
		"data":     reg.Profile,
	}
	var raw json.RawMessage
	if err := s.do(ctx, http.MethodPost, "/signup", s.anonKey, body, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

func (s *HostedStore) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	body := map[string]string{"email": domain.NormalizeEmail(email), "password": password}
	var sess hostedSession
	if err := s.do(ctx, http.MethodPost, "/token?grant_type=password", s.anonKey, body, &sess); err != nil {
		return nil, err
	}
	if sess.User == nil {
		return nil, errors.New("hosted auth: token response without user")
	}
	return sess.User.toDomain(), nil
}

func (s *HostedStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if s.serviceKey == "" {
		return nil, errors.New("hosted auth: service key not configured")
	}
	var u hostedUser
	if err := s.do(ctx, http.MethodGet, "/admin/users/"+url.PathEscape(id), s.serviceKey, nil, &u); err != nil {
		return nil, err
	}
	return u.toDomain(), nil
}

func (s *HostedStore) ConfirmEmail(ctx context.Context, token string) (*domain.User, error) {
	body := map[string]string{"type": "signup", "token_hash": token}
	var raw json.RawMessage
	err := s.do(ctx, http.MethodPost, "/verify", s.anonKey, body, &raw)
	if err != nil {
		var pe *providerError
		if errors.As(err, &pe) && pe.status < http.StatusInternalServerError {
			return nil, domain.ErrInvalidLink
		}
		return nil, err
	}
	return decodeUser(raw)
}

// providerError is an unmapped provider rejection.
type providerError struct {
	status int
	msg    string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("hosted auth: status %d: %s", e.status, e.msg)
}

func (s *HostedStore) do(ctx context.Context, method, path, key string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("hosted auth: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return fmt.Errorf("hosted auth: %w", err)
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("hosted auth: %w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("hosted auth: %w: %v", domain.ErrNetwork, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return mapProviderError(resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("hosted auth: decode response: %w", err)
	}
	return nil
}

// mapProviderError turns provider messages into domain errors. The provider
// only reports some conditions as free text, so matching happens here and
// nowhere else.
func mapProviderError(status int, payload []byte) error {
	var he hostedError
	_ = json.Unmarshal(payload, &he)

	msg := firstNonEmpty(he.ErrorDescription, he.Msg, he.Message, he.Error)
	lower := strings.ToLower(msg)

	switch {
	case he.ErrorCode == "email_not_confirmed" || strings.Contains(lower, "email not confirmed"):
		return domain.ErrUnconfirmedEmail
	case he.ErrorCode == "invalid_credentials" || strings.Contains(lower, "invalid login credentials"):
		return domain.ErrInvalidCredentials
	case he.ErrorCode == "user_already_exists" || strings.Contains(lower, "already registered"):
		return domain.ErrDuplicateAccount
	case he.ErrorCode == "user_not_found" || status == http.StatusNotFound:
		return domain.ErrUserNotFound
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &providerError{status: status, msg: msg}
}

// decodeUser accepts either a bare user object or a session wrapping one.
func decodeUser(raw json.RawMessage) (*domain.User, error) {
	var sess hostedSession
	if err := json.Unmarshal(raw, &sess); err == nil && sess.User != nil {
		return sess.User.toDomain(), nil
	}
	var u hostedUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("hosted auth: decode user: %w", err)
	}
	if u.ID == "" {
		return nil, errors.New("hosted auth: response without user id")
	}
	return u.toDomain(), nil
}

func (u *hostedUser) toDomain() *domain.User {
	var p domain.Profile
	if len(u.UserMetadata) > 0 {
		_ = json.Unmarshal(u.UserMetadata, &p)
	}
	p.Email = u.Email
	if p.AccountType == "" {
		p.AccountType = domain.AccountStudent
	}
	return &domain.User{
		ID:             u.ID,
		Profile:        p,
		EmailConfirmed: u.EmailConfirmedAt != nil,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
