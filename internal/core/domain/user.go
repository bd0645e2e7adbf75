package domain

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate runs the pre-network checks. It is safe for concurrent use.
var validate = validator.New()

// AccountType classifies what the customer came to the agency for.
type AccountType string

const (
	AccountStudent  AccountType = "student"
	AccountWorker   AccountType = "worker"
	AccountTourist  AccountType = "tourist"
	AccountBusiness AccountType = "business"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountStudent, AccountWorker, AccountTourist, AccountBusiness:
		return true
	}
	return false
}

// Profile is the user data collected at registration.
type Profile struct {
	FirstName         string      `json:"firstName"`
	LastName          string      `json:"lastName"`
	Email             string      `json:"email"`
	AccountType       AccountType `json:"accountType"`
	Country           string      `json:"country,omitempty"`
	Nationality       string      `json:"nationality,omitempty"`
	DateOfBirth       string      `json:"dateOfBirth,omitempty"`
	PlaceOfBirth      string      `json:"placeOfBirth,omitempty"`
	Gender            string      `json:"gender,omitempty"`
	DocumentType      string      `json:"documentType,omitempty"`
	DocumentNumber    string      `json:"documentNumber,omitempty"`
	DocumentIssueDate string      `json:"documentIssueDate,omitempty"`
	HasHandicap       bool        `json:"hasHandicap"`
	HandicapDetails   string      `json:"handicapDetails,omitempty"`
}

// User is an account known to the credential store. ID is issued by the
// store and never reassigned.
type User struct {
	ID string `json:"id"`
	Profile
	EmailConfirmed bool      `json:"emailConfirmed"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	PasswordHash string        `json:"-"`
	Verification *Verification `json:"-"`
}

// Verification is a pending email confirmation.
type Verification struct {
	Token     string
	ExpiresAt time.Time
}

// Registration is the sign-up payload: a profile plus the chosen password.
type Registration struct {
	Profile
	Password string `json:"password"`
}

// AuthResult is what a successful register or login yields.
type AuthResult struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NormalizeEmail lower-cases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalized returns a copy with trimmed names, a normalized email and the
// default account type applied.
func (r Registration) Normalized() Registration {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = NormalizeEmail(r.Email)
	if r.AccountType == "" {
		r.AccountType = AccountStudent
	}
	return r
}

// ValidateRegistration checks the fields every credential store needs. It runs
// before any network call so a bad form never leaves the client.
func ValidateRegistration(r Registration) error {
	fields := map[string]string{}
	if !present(strings.TrimSpace(r.FirstName)) {
		fields["firstName"] = "First name is required"
	}
	if !present(strings.TrimSpace(r.LastName)) {
		fields["lastName"] = "Last name is required"
	}
	email := strings.TrimSpace(r.Email)
	switch {
	case !present(email):
		fields["email"] = "Email is required"
	case !validEmail(email):
		fields["email"] = "Email is invalid"
	}
	if !present(strings.TrimSpace(r.Password)) {
		fields["password"] = "Password is required"
	}
	if r.AccountType != "" && !r.AccountType.Valid() {
		fields["accountType"] = "Account type is invalid"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

// ValidateLogin requires both credentials to be present.
func ValidateLogin(email, password string) error {
	fields := map[string]string{}
	if !present(strings.TrimSpace(email)) {
		fields["email"] = "Email is required"
	}
	if !present(password) {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func validEmail(s string) bool {
	return validate.Var(s, "email") == nil
}

func present(s string) bool {
	return validate.Var(s, "required") == nil
}
