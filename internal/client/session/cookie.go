package session

import (
	"net/http"
	"time"
)

const (
	// CookieName is the cookie the route guard reads.
	CookieName = "token"

	defaultCookieMaxAge = 7 * 24 * time.Hour
	legacyCookieMaxAge  = 24 * time.Hour
)

// CookiePolicy describes the session cookie written after a successful
// register or login.
type CookiePolicy struct {
	Name     string
	Path     string
	MaxAge   time.Duration
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookiePolicy keeps the cookie for as long as the token is valid.
func DefaultCookiePolicy() CookiePolicy {
	return CookiePolicy{
		Name:     CookieName,
		Path:     "/",
		MaxAge:   defaultCookieMaxAge,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// LegacyCookiePolicy reproduces the one-day cookie of the previous front end.
func LegacyCookiePolicy() CookiePolicy {
	p := DefaultCookiePolicy()
	p.MaxAge = legacyCookieMaxAge
	return p
}

func (p CookiePolicy) withDefaults() CookiePolicy {
	d := DefaultCookiePolicy()
	if p.Name == "" {
		p.Name = d.Name
	}
	if p.Path == "" {
		p.Path = d.Path
	}
	if p.MaxAge <= 0 {
		p.MaxAge = d.MaxAge
	}
	if p.SameSite == 0 {
		p.SameSite = d.SameSite
	}
	return p
}

// build renders the cookie for token, expiring at expiresAt.
func (p CookiePolicy) build(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     p.Name,
		Value:    token,
		Path:     p.Path,
		Expires:  expiresAt,
		MaxAge:   int(p.MaxAge / time.Second),
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}
