package domain

import "time"

// Document categories accepted by a visa application.
const (
	DocPassport         = "passport"
	DocPhoto            = "photo"
	DocBankStatement    = "bankStatement"
	DocEmploymentLetter = "employmentLetter"
	DocAdditional       = "additional"
)

// Destinations and VisaTypes are the options offered by the application form.
var (
	Destinations = []string{"france", "canada", "uk", "germany", "usa", "australia", "uae"}
	VisaTypes    = []string{"tourist", "business", "student", "work", "transit", "family"}
)

// ApplicationStatus tracks an application after it leaves the wizard.
type ApplicationStatus string

const StatusSubmitted ApplicationStatus = "submitted"

// FileRef points at an uploaded document. Only metadata travels; the bytes
// live wherever the upload widget put them.
type FileRef struct {
	ID          string `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Size        int64  `json:"size" bson:"size"`
	ContentType string `json:"contentType,omitempty" bson:"content_type,omitempty"`
}

type PersonalInfo struct {
	FirstName      string `json:"firstName" bson:"first_name"`
	LastName       string `json:"lastName" bson:"last_name"`
	Email          string `json:"email" bson:"email"`
	Phone          string `json:"phone" bson:"phone"`
	DateOfBirth    string `json:"dateOfBirth" bson:"date_of_birth"`
	Nationality    string `json:"nationality" bson:"nationality"`
	PassportNumber string `json:"passportNumber" bson:"passport_number"`
	PassportExpiry string `json:"passportExpiry" bson:"passport_expiry"`
}

type TravelDetails struct {
	Destination    string `json:"destination" bson:"destination"`
	VisaType       string `json:"visaType" bson:"visa_type"`
	TravelPurpose  string `json:"travelPurpose" bson:"travel_purpose"`
	DepartureDate  string `json:"departureDate" bson:"departure_date"`
	ReturnDate     string `json:"returnDate,omitempty" bson:"return_date,omitempty"`
	PreviousVisits string `json:"previousVisits,omitempty" bson:"previous_visits,omitempty"`
}

type BackgroundInfo struct {
	Occupation       string `json:"occupation" bson:"occupation"`
	Employer         string `json:"employer,omitempty" bson:"employer,omitempty"`
	MonthlyIncome    string `json:"monthlyIncome" bson:"monthly_income"`
	EmergencyContact string `json:"emergencyContact" bson:"emergency_contact"`
	EmergencyPhone   string `json:"emergencyPhone" bson:"emergency_phone"`
	AdditionalInfo   string `json:"additionalInfo,omitempty" bson:"additional_info,omitempty"`
}

// ApplicationSubmission is the merged payload of every wizard step.
type ApplicationSubmission struct {
	Personal   PersonalInfo         `json:"personal" bson:"personal"`
	Travel     TravelDetails        `json:"travel" bson:"travel"`
	Background BackgroundInfo       `json:"background" bson:"background"`
	Documents  map[string][]FileRef `json:"documents" bson:"documents"`
}

// Application is a submitted visa application owned by one user.
type Application struct {
	Reference string `json:"reference"`
	UserID    string `json:"userId"`
	ApplicationSubmission
	Status         ApplicationStatus `json:"status"`
	IdempotencyKey string            `json:"-"`
	SubmittedAt    time.Time         `json:"submittedAt"`
}

// ApplicationReceipt is returned to the submitter.
type ApplicationReceipt struct {
	Reference      string            `json:"reference"`
	Status         ApplicationStatus `json:"status"`
	SubmittedAt    time.Time         `json:"submittedAt"`
	AlreadyExisted bool              `json:"alreadyExisted"`
}
