package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/patricktravel/portal/internal/api/metrics"
	"github.com/patricktravel/portal/internal/core/token"
)

// ContextUserID is the echo context key holding the verified token subject.
const ContextUserID = "user_id"

// TokenVerifier returns the subject of a valid session token.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// GuardConfig lists path prefixes. Public prefixes win over protected ones;
// anything matching neither is unrestricted.
type GuardConfig struct {
	Protected   []string
	Public      []string
	LoginPath   string
	ReturnParam string
	CookieName  string
}

// DefaultGuardConfig protects every customer section of the portal.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Protected: []string{
			"/visa-assistance",
			"/study-abroad",
			"/flight-booking",
			"/housing",
			"/jobs",
			"/auth/profile",
			"/api/applications",
		},
		Public: []string{
			"/auth/login",
			"/auth/register",
			"/api/auth/login",
			"/api/auth/register",
		},
		LoginPath:   "/auth/login",
		ReturnParam: "from",
		CookieName:  "token",
	}
}

func (c GuardConfig) withDefaults() GuardConfig {
	d := DefaultGuardConfig()
	if c.LoginPath == "" {
		c.LoginPath = d.LoginPath
	}
	if c.ReturnParam == "" {
		c.ReturnParam = d.ReturnParam
	}
	if c.CookieName == "" {
		c.CookieName = d.CookieName
	}
	return c
}

type GuardState int

const (
	StatePublic GuardState = iota
	StateUnrestricted
	StateProtectedNoToken
	StateProtectedValidToken
	StateProtectedInvalidToken
)

func (s GuardState) String() string {
	switch s {
	case StatePublic:
		return "public"
	case StateUnrestricted:
		return "unrestricted"
	case StateProtectedNoToken:
		return "protected_no_token"
	case StateProtectedValidToken:
		return "protected_valid_token"
	case StateProtectedInvalidToken:
		return "protected_invalid_token"
	default:
		return "unknown"
	}
}

// Decision is the outcome of classifying one request.
type Decision struct {
	State  GuardState
	UserID string
	// Reason distinguishes expired from otherwise invalid tokens.
	Reason string
}

// Allowed reports whether the request may reach its handler.
func (d Decision) Allowed() bool {
	return d.State != StateProtectedNoToken && d.State != StateProtectedInvalidToken
}

// Classify decides what to do with a request for path carrying the given
// cookie value. It is pure apart from the verifier.
func Classify(cfg GuardConfig, v TokenVerifier, path, cookie string, hasCookie bool) Decision {
	if hasPrefix(path, cfg.Public) {
		return Decision{State: StatePublic}
	}
	if !hasPrefix(path, cfg.Protected) {
		return Decision{State: StateUnrestricted}
	}
	if !hasCookie || cookie == "" {
		return Decision{State: StateProtectedNoToken, Reason: "missing"}
	}
	sub, err := v.Verify(cookie)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, token.ErrExpiredToken) {
			reason = "expired"
		}
		return Decision{State: StateProtectedInvalidToken, Reason: reason}
	}
	return Decision{State: StateProtectedValidToken, UserID: sub}
}

// Guard runs Classify on every request. Rejected requests are redirected to
// the login page with the original path in the return parameter.
func Guard(cfg GuardConfig, v TokenVerifier, log zerolog.Logger) echo.MiddlewareFunc {
	cfg = cfg.withDefaults()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			var raw string
			ck, err := c.Cookie(cfg.CookieName)
			hasCookie := err == nil
			if hasCookie {
				raw = ck.Value
			}

			d := Classify(cfg, v, path, raw, hasCookie)
			metrics.RouteGuardDecisionsTotal.WithLabelValues(d.State.String(), d.Reason).Inc()

			if !d.Allowed() {
				log.Debug().
					Str("path", path).
					Str("state", d.State.String()).
					Str("reason", d.Reason).
					Msg("redirecting to login")
				return c.Redirect(http.StatusTemporaryRedirect, loginURL(cfg, path))
			}
			if d.UserID != "" {
				c.Set(ContextUserID, d.UserID)
			}
			return next(c)
		}
	}
}

func loginURL(cfg GuardConfig, from string) string {
	q := url.Values{}
	q.Set(cfg.ReturnParam, from)
	return cfg.LoginPath + "?" + q.Encode()
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
