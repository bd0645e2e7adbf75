// Package apiclient talks to the portal HTTP API on behalf of the client-side
// session manager and wizards.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patricktravel/portal/internal/client/wizard"
	"github.com/patricktravel/portal/internal/core/domain"
)

const (
	defaultTimeout = 15 * time.Second
	// loginPath is where the route guard sends requests without a valid session.
	loginPath = "/auth/login"
)

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	// token returns the current session cookie value, if any.
	token func() string
	lang  string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSessionToken sets where authenticated calls read the session token
// from, typically func() string { return manager.Cookie().Value }.
func WithSessionToken(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

// WithLanguage sends Accept-Language so server messages come back localized.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.lang = lang }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		token:   func() string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	// Guard redirects must surface as ErrUnauthenticated, not be replayed
	// against the login page.
	hc := *c.http
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	c.http = &hc
	return c
}

// APIError is a non-2xx response whose code has no sentinel.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

var codeErrors = map[string]error{
	"duplicate_account":     domain.ErrDuplicateAccount,
	"unconfirmed_email":     domain.ErrUnconfirmedEmail,
	"invalid_credentials":   domain.ErrInvalidCredentials,
	"user_not_found":        domain.ErrUserNotFound,
	"invalid_link":          domain.ErrInvalidLink,
	"recovery_unavailable":  domain.ErrRecoveryUnavailable,
	"application_not_found": domain.ErrApplicationNotFound,
	"unauthorized":          domain.ErrUnauthenticated,
}

type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Register implements session.Authenticator.
func (c *Client) Register(ctx context.Context, in domain.Registration) (*domain.AuthResult, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, nil, &out); err != nil {
		return nil, err
	}
	return &domain.AuthResult{User: out.User, Token: out.Token}, nil
}

// Login implements session.Authenticator.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, nil, &out); err != nil {
		return nil, err
	}
	return &domain.AuthResult{User: out.User, Token: out.Token}, nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": email}, nil, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "password": newPassword}
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password", body, nil, nil)
}

// SubmitApplication posts a visa application. idempotencyKey may be empty;
// reusing it on retries returns the original receipt.
func (c *Client) SubmitApplication(ctx context.Context, sub domain.ApplicationSubmission, idempotencyKey string) (*domain.ApplicationReceipt, error) {
	var out struct {
		Application *domain.ApplicationReceipt `json:"application"`
	}
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	if err := c.do(ctx, http.MethodPost, "/api/applications", sub, headers, &out); err != nil {
		return nil, err
	}
	if out.Application == nil {
		return nil, errors.New("api: empty application receipt")
	}
	return out.Application, nil
}

// ApplicationSubmitter adapts the visa wizard to SubmitApplication. The
// receipt is handed to onReceipt when non-nil.
func (c *Client) ApplicationSubmitter(idempotencyKey string, onReceipt func(*domain.ApplicationReceipt)) wizard.Submitter {
	return wizard.SubmitterFunc(func(ctx context.Context, p wizard.Payload) error {
		r, err := c.SubmitApplication(ctx, wizard.VisaApplicationFrom(p), idempotencyKey)
		if err != nil {
			return err
		}
		if onReceipt != nil {
			onReceipt(r)
		}
		return nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, in any, headers map[string]string, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.lang != "" {
		req.Header.Set("Accept-Language", c.lang)
	}
	if tok := c.token(); tok != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: tok})
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrNetwork, err)
	}

	if resp.StatusCode >= 300 && resp.StatusCode <= 399 {
		return decodeRedirect(resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

func decodeRedirect(resp *http.Response) error {
	loc, err := resp.Location()
	if err == nil && strings.HasPrefix(loc.Path, loginPath) {
		return domain.ErrUnauthenticated
	}
	return &APIError{Status: resp.StatusCode, Code: "redirect", Message: resp.Header.Get("Location")}
}

func decodeError(status int, raw []byte) error {
	var env envelope
	_ = json.Unmarshal(raw, &env)

	if env.Code == "validation_failed" {
		return domain.NewValidationError(env.Fields)
	}
	if sentinel, ok := codeErrors[env.Code]; ok {
		return sentinel
	}
	return &APIError{Status: status, Code: env.Code, Message: env.Error, Fields: env.Fields}
}
