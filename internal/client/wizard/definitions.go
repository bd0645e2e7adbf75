package wizard

import (
	"strings"

	"github.com/patricktravel/portal/internal/core/domain"
)

func required(field, message string) TextRule {
	return TextRule{Field: field, Message: message}
}

// VisaApplication is the four-step visa application form.
func VisaApplication() Definition {
	return Definition{
		Name: "visa-application",
		Steps: []Step{
			{
				Title: "Personal Information",
				Text: []TextRule{
					required("firstName", "First name is required"),
					required("lastName", "Last name is required"),
					required("email", "Email is required"),
					required("phone", "Phone number is required"),
					required("dateOfBirth", "Date of birth is required"),
					required("nationality", "Nationality is required"),
					required("passportNumber", "Passport number is required"),
					required("passportExpiry", "Passport expiry date is required"),
				},
			},
			{
				Title: "Travel Details",
				Text: []TextRule{
					required("destination", "Destination is required"),
					required("visaType", "Visa type is required"),
					required("travelPurpose", "Travel purpose is required"),
					required("departureDate", "Departure date is required"),
				},
			},
			{
				Title: "Background Information",
				Text: []TextRule{
					required("occupation", "Occupation is required"),
					required("monthlyIncome", "Monthly income is required"),
					required("emergencyContact", "Emergency contact is required"),
					required("emergencyPhone", "Emergency phone is required"),
				},
			},
			{
				Title: "Documents",
				Files: []FileRule{
					{Category: domain.DocPassport, Message: "Passport copy is required"},
					{Category: domain.DocPhoto, Message: "Passport photo is required"},
					{Category: domain.DocBankStatement, Message: "Bank statement is required"},
				},
			},
		},
	}
}

// Registration is the single-step sign-up form.
func Registration() Definition {
	return Definition{
		Name: "registration",
		Steps: []Step{
			{
				Title: "Create your account",
				Text: []TextRule{
					required("firstName", "First name is required"),
					required("surname", "Surname is required"),
					required("email", "Email is required"),
					{Field: "confirmEmail", Equals: "email", Message: "Emails do not match"},
					required("password", "Password is required"),
					{Field: "confirmPassword", Equals: "password", Message: "Passwords do not match"},
					required("gender", "Gender is required"),
					required("dateOfBirth", "Date of birth is required"),
					required("birthCountry", "Birth country is required"),
					required("birthPlace", "Birth place is required"),
					required("nationality", "Nationality is required"),
					required("idType", "ID type is required"),
					required("idNumber", "ID number is required"),
					required("idIssuingCountry", "ID issuing country is required"),
				},
			},
		},
	}
}

// VisaApplicationFrom maps a completed visa wizard draft to a submission.
func VisaApplicationFrom(p Payload) domain.ApplicationSubmission {
	f := func(name string) string { return strings.TrimSpace(p.Fields[name]) }
	docs := make(map[string][]domain.FileRef, len(p.Files))
	for k, v := range p.Files {
		if len(v) > 0 {
			docs[k] = append([]domain.FileRef(nil), v...)
		}
	}
	return domain.ApplicationSubmission{
		Personal: domain.PersonalInfo{
			FirstName:      f("firstName"),
			LastName:       f("lastName"),
			Email:          f("email"),
			Phone:          f("phone"),
			DateOfBirth:    f("dateOfBirth"),
			Nationality:    f("nationality"),
			PassportNumber: f("passportNumber"),
			PassportExpiry: f("passportExpiry"),
		},
		Travel: domain.TravelDetails{
			Destination:    f("destination"),
			VisaType:       f("visaType"),
			TravelPurpose:  f("travelPurpose"),
			DepartureDate:  f("departureDate"),
			ReturnDate:     f("returnDate"),
			PreviousVisits: f("previousVisits"),
		},
		Background: domain.BackgroundInfo{
			Occupation:       f("occupation"),
			Employer:         f("employer"),
			MonthlyIncome:    f("monthlyIncome"),
			EmergencyContact: f("emergencyContact"),
			EmergencyPhone:   f("emergencyPhone"),
			AdditionalInfo:   f("additionalInfo"),
		},
		Documents: docs,
	}
}

// RegistrationFrom maps a completed registration draft to the sign-up
// payload. The issuing country of the identity document doubles as the
// account's country.
func RegistrationFrom(p Payload) domain.Registration {
	f := func(name string) string { return strings.TrimSpace(p.Fields[name]) }
	return domain.Registration{
		Profile: domain.Profile{
			FirstName:         f("firstName"),
			LastName:          f("surname"),
			Email:             f("email"),
			AccountType:       domain.AccountType(f("accountType")),
			Country:           f("idIssuingCountry"),
			Nationality:       f("nationality"),
			DateOfBirth:       f("dateOfBirth"),
			PlaceOfBirth:      f("birthPlace"),
			Gender:            f("gender"),
			DocumentType:      f("idType"),
			DocumentNumber:    f("idNumber"),
			DocumentIssueDate: f("idValidityDate"),
			HasHandicap:       p.Flags["hasHandicap"],
			HandicapDetails:   f("handicapDetails"),
		},
		Password: p.Fields["password"],
	}
}
