package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrDuplicateAccount    = errors.New("email already registered")
	ErrUnconfirmedEmail    = errors.New("email not confirmed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidLink         = errors.New("invalid or expired link")
	ErrRecoveryUnavailable = errors.New("account recovery not available")
	ErrApplicationNotFound = errors.New("application not found")
	ErrNetwork             = errors.New("network error")
	ErrUnauthenticated     = errors.New("session missing or expired")
)

// ValidationError carries one message per offending field.
// errors.Is(err, ErrValidation) holds for every ValidationError.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

const (
	VerificationTTL  = 24 * time.Hour
	PasswordResetTTL = time.Hour
)

// NewOpaqueToken returns 32 random bytes, hex encoded. Used for email
// verification and password reset links.
func NewOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewVerification creates a confirmation token valid for VerificationTTL.
func NewVerification(now time.Time) (*Verification, error) {
	tok, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	return &Verification{Token: tok, ExpiresAt: now.Add(VerificationTTL)}, nil
}
