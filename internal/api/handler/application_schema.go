package handler

import (
	"strings"

	"github.com/patricktravel/portal/internal/core/domain"
)

// --- Request / Response types ---

type fileRefRequest struct {
	ID          string `json:"id"   validate:"required"`
	Name        string `json:"name" validate:"required"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

type personalRequest struct {
	FirstName      string `json:"firstName"      validate:"required"`
	LastName       string `json:"lastName"       validate:"required"`
	Email          string `json:"email"          validate:"required,email"`
	Phone          string `json:"phone"          validate:"required"`
	DateOfBirth    string `json:"dateOfBirth"    validate:"required"`
	Nationality    string `json:"nationality"    validate:"required"`
	PassportNumber string `json:"passportNumber" validate:"required"`
	PassportExpiry string `json:"passportExpiry" validate:"required"`
}

type travelRequest struct {
	Destination    string `json:"destination"   validate:"required,oneof=france canada uk germany usa australia uae"`
	VisaType       string `json:"visaType"      validate:"required,oneof=tourist business student work transit family"`
	TravelPurpose  string `json:"travelPurpose" validate:"required"`
	DepartureDate  string `json:"departureDate" validate:"required"`
	ReturnDate     string `json:"returnDate"`
	PreviousVisits string `json:"previousVisits"`
}

type backgroundRequest struct {
	Occupation       string `json:"occupation"       validate:"required"`
	Employer         string `json:"employer"`
	MonthlyIncome    string `json:"monthlyIncome"    validate:"required"`
	EmergencyContact string `json:"emergencyContact" validate:"required"`
	EmergencyPhone   string `json:"emergencyPhone"   validate:"required"`
	AdditionalInfo   string `json:"additionalInfo"`
}

type submitApplicationRequest struct {
	Personal   personalRequest             `json:"personal"   validate:"required"`
	Travel     travelRequest               `json:"travel"     validate:"required"`
	Background backgroundRequest           `json:"background" validate:"required"`
	Documents  map[string][]fileRefRequest `json:"documents"  validate:"dive,dive"`
}

// requiredDocuments are the categories an application cannot go without.
var requiredDocuments = []struct{ category, message string }{
	{domain.DocPassport, "Passport copy is required"},
	{domain.DocPhoto, "Passport photo is required"},
	{domain.DocBankStatement, "Bank statement is required"},
}

// checkDocuments reports missing required categories as a validation error.
func (r submitApplicationRequest) checkDocuments() error {
	fields := map[string]string{}
	for _, d := range requiredDocuments {
		if len(r.Documents[d.category]) == 0 {
			fields["documents."+d.category] = d.message
		}
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return nil
}

func (r submitApplicationRequest) toDomain() domain.ApplicationSubmission {
	docs := make(map[string][]domain.FileRef, len(r.Documents))
	for category, files := range r.Documents {
		if len(files) == 0 {
			continue
		}
		refs := make([]domain.FileRef, 0, len(files))
		for _, f := range files {
			refs = append(refs, domain.FileRef{ID: f.ID, Name: f.Name, Size: f.Size, ContentType: f.ContentType})
		}
		docs[category] = refs
	}
	p, t, b := r.Personal, r.Travel, r.Background
	return domain.ApplicationSubmission{
		Personal: domain.PersonalInfo{
			FirstName:      strings.TrimSpace(p.FirstName),
			LastName:       strings.TrimSpace(p.LastName),
			Email:          domain.NormalizeEmail(p.Email),
			Phone:          p.Phone,
			DateOfBirth:    p.DateOfBirth,
			Nationality:    p.Nationality,
			PassportNumber: p.PassportNumber,
			PassportExpiry: p.PassportExpiry,
		},
		Travel: domain.TravelDetails{
			Destination:    t.Destination,
			VisaType:       t.VisaType,
			TravelPurpose:  t.TravelPurpose,
			DepartureDate:  t.DepartureDate,
			ReturnDate:     t.ReturnDate,
			PreviousVisits: t.PreviousVisits,
		},
		Background: domain.BackgroundInfo{
			Occupation:       b.Occupation,
			Employer:         b.Employer,
			MonthlyIncome:    b.MonthlyIncome,
			EmergencyContact: b.EmergencyContact,
			EmergencyPhone:   b.EmergencyPhone,
			AdditionalInfo:   b.AdditionalInfo,
		},
		Documents: docs,
	}
}

type applicationLinks struct {
	Self string `json:"self"`
}

type submitApplicationResponse struct {
	Message     string                     `json:"message"`
	Application *domain.ApplicationReceipt `json:"application"`
	Links       applicationLinks           `json:"_links"`
}
