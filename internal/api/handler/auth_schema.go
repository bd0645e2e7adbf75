package handler

import "github.com/patricktravel/portal/internal/core/domain"

// --- Request / Response types ---

type registerRequest struct {
	FirstName         string `json:"firstName"         validate:"required"`
	LastName          string `json:"lastName"          validate:"required"`
	Email             string `json:"email"             validate:"required,email"`
	Password          string `json:"password"          validate:"required"`
	AccountType       string `json:"accountType"       validate:"omitempty,oneof=student worker tourist business"`
	Country           string `json:"country"`
	Nationality       string `json:"nationality"`
	DateOfBirth       string `json:"dateOfBirth"`
	PlaceOfBirth      string `json:"placeOfBirth"`
	Gender            string `json:"gender"`
	DocumentType      string `json:"documentType"`
	DocumentNumber    string `json:"documentNumber"`
	DocumentIssueDate string `json:"documentIssueDate"`
	HasHandicap       bool   `json:"hasHandicap"`
	HandicapDetails   string `json:"handicapDetails"`
}

func (r registerRequest) toDomain() domain.Registration {
	return domain.Registration{
		Profile: domain.Profile{
			FirstName:         r.FirstName,
			LastName:          r.LastName,
			Email:             r.Email,
			AccountType:       domain.AccountType(r.AccountType),
			Country:           r.Country,
			Nationality:       r.Nationality,
			DateOfBirth:       r.DateOfBirth,
			PlaceOfBirth:      r.PlaceOfBirth,
			Gender:            r.Gender,
			DocumentType:      r.DocumentType,
			DocumentNumber:    r.DocumentNumber,
			DocumentIssueDate: r.DocumentIssueDate,
			HasHandicap:       r.HasHandicap,
			HandicapDetails:   r.HandicapDetails,
		},
		Password: r.Password,
	}
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type profileResponse struct {
	User *domain.User `json:"user"`
}
