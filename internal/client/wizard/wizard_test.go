package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/patricktravel/portal/internal/core/domain"
)

func fillVisa(t *testing.T, w *Wizard) {
	t.Helper()
	values := map[string]string{
		"firstName": "Ana", "lastName": "Mbeki", "email": "ana@example.com",
		"phone": "+237 600 000 000", "dateOfBirth": "1995-04-02", "nationality": "cameroonian",
		"passportNumber": "P1234567", "passportExpiry": "2030-01-01",
		"destination": "france", "visaType": "student", "travelPurpose": "Master's degree",
		"departureDate": "2026-09-01",
		"occupation": "student", "monthlyIncome": "500", "emergencyContact": "Paul",
		"emergencyPhone": "+237 611 111 111",
	}
	for k, v := range values {
		if err := w.SetField(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	for _, cat := range []string{domain.DocPassport, domain.DocPhoto, domain.DocBankStatement} {
		if err := w.AddFile(cat, domain.FileRef{ID: cat + "-1", Name: cat + ".pdf", Size: 10}); err != nil {
			t.Fatalf("add %s: %v", cat, err)
		}
	}
}

func advanceToEnd(t *testing.T, w *Wizard) {
	t.Helper()
	for w.Step() < w.Steps() {
		if !w.Next() {
			t.Fatalf("step %d did not validate: %v", w.Step(), w.Errors())
		}
	}
}

func TestNext_BlocksOnInvalidStep(t *testing.T) {
	w := New(VisaApplication())

	if w.Next() {
		t.Fatalf("expected empty first step to fail")
	}
	if w.Step() != 1 {
		t.Fatalf("expected to stay on step 1, got %d", w.Step())
	}
	errs := w.Errors()
	if errs["firstName"] != "First name is required" || errs["passportExpiry"] != "Passport expiry date is required" {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(errs) != 8 {
		t.Fatalf("expected 8 errors, got %d", len(errs))
	}
}

func TestNext_SingleMissingFieldThenAdvances(t *testing.T) {
	w := New(VisaApplication())
	fillVisa(t, w)
	if err := w.SetField("lastName", ""); err != nil {
		t.Fatalf("clear lastName: %v", err)
	}

	if w.Next() {
		t.Fatalf("expected step 1 to fail with lastName empty")
	}
	if w.Step() != 1 {
		t.Fatalf("expected to stay on step 1, got %d", w.Step())
	}
	errs := w.Errors()
	if len(errs) != 1 || errs["lastName"] != "Last name is required" {
		t.Fatalf("expected only the lastName error, got %v", errs)
	}

	if err := w.SetField("lastName", "Mbeki"); err != nil {
		t.Fatalf("set lastName: %v", err)
	}
	if !w.Next() || w.Step() != 2 {
		t.Fatalf("expected to advance to step 2, at %d with %v", w.Step(), w.Errors())
	}
	if len(w.Errors()) != 0 {
		t.Fatalf("expected no errors after advancing, got %v", w.Errors())
	}
}

func TestSetField_ClearsOnlyThatError(t *testing.T) {
	w := New(VisaApplication())
	w.Next()

	if err := w.SetField("firstName", "Ana"); err != nil {
		t.Fatalf("set: %v", err)
	}
	errs := w.Errors()
	if _, ok := errs["firstName"]; ok {
		t.Fatalf("expected firstName error cleared")
	}
	if _, ok := errs["lastName"]; !ok {
		t.Fatalf("expected lastName error kept")
	}
}

func TestWhitespaceCountsAsEmpty(t *testing.T) {
	w := New(VisaApplication())
	fillVisa(t, w)
	_ = w.SetField("phone", "   ")

	if w.ValidateStep(1) {
		t.Fatalf("expected blank phone to fail")
	}
	if w.Errors()["phone"] != "Phone number is required" {
		t.Fatalf("unexpected errors: %v", w.Errors())
	}
}

func TestStepBounds(t *testing.T) {
	w := New(VisaApplication())
	w.Previous()
	if w.Step() != 1 {
		t.Fatalf("expected step 1 after previous at start, got %d", w.Step())
	}

	fillVisa(t, w)
	advanceToEnd(t, w)
	if !w.Next() {
		t.Fatalf("expected valid last step")
	}
	if w.Step() != 4 {
		t.Fatalf("expected to stay on step 4, got %d", w.Step())
	}
}

func TestDraftSurvivesNavigation(t *testing.T) {
	w := New(VisaApplication())
	fillVisa(t, w)
	w.Next()
	w.Next()
	w.Previous()
	w.Previous()
	if w.Field("firstName") != "Ana" || w.Field("destination") != "france" {
		t.Fatalf("draft lost values")
	}
}

func TestPreviousDoesNotValidate(t *testing.T) {
	w := New(VisaApplication())
	fillVisa(t, w)
	w.Next()
	_ = w.SetField("destination", "")
	w.Previous()
	if w.Step() != 1 {
		t.Fatalf("expected step 1, got %d", w.Step())
	}
}

func TestDocumentsStep(t *testing.T) {
	w := New(VisaApplication())
	if w.ValidateStep(4) {
		t.Fatalf("expected empty documents to fail")
	}
	errs := w.Errors()
	if errs[domain.DocPassport] != "Passport copy is required" ||
		errs[domain.DocPhoto] != "Passport photo is required" ||
		errs[domain.DocBankStatement] != "Bank statement is required" {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if _, ok := errs[domain.DocEmploymentLetter]; ok {
		t.Fatalf("employment letter must be optional")
	}
}

func TestRemoveFile(t *testing.T) {
	w := New(VisaApplication())
	_ = w.AddFile(domain.DocAdditional, domain.FileRef{ID: "a"})
	_ = w.AddFile(domain.DocAdditional, domain.FileRef{ID: "b"})
	_ = w.AddFile(domain.DocAdditional, domain.FileRef{ID: "c"})

	if err := w.RemoveFile(domain.DocAdditional, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	files := w.Files(domain.DocAdditional)
	if len(files) != 2 || files[0].ID != "a" || files[1].ID != "c" {
		t.Fatalf("unexpected files: %v", files)
	}
	if err := w.RemoveFile(domain.DocAdditional, 5); !errors.Is(err, ErrNoSuchIndex) {
		t.Fatalf("expected ErrNoSuchIndex, got %v", err)
	}
}

func TestValidateStep_OutOfRange(t *testing.T) {
	w := New(VisaApplication())
	if !w.ValidateStep(0) || !w.ValidateStep(9) {
		t.Fatalf("expected steps without rules to pass")
	}
}

func TestSubmit_NotLastStep(t *testing.T) {
	w := New(VisaApplication())
	fillVisa(t, w)
	called := false
	err := w.Submit(context.Background(), SubmitterFunc(func(context.Context, Payload) error {
		called = true
		return nil
	}))
	if !errors.Is(err, ErrNotLastStep) || called {
		t.Fatalf("expected ErrNotLastStep without submitting, got %v", err)
	}
}

func TestSubmit_RevalidatesLastStep(t *testing.T) {
	w := New(VisaApplication())
	fillVisa(t, w)
	advanceToEnd(t, w)
	if err := w.RemoveFile(domain.DocPhoto, 0); err != nil {
		t.Fatalf("remove photo: %v", err)
	}

	called := false
	err := w.Submit(context.Background(), SubmitterFunc(func(context.Context, Payload) error {
		called = true
		return nil
	}))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields[domain.DocPhoto] != "Passport photo is required" || called {
		t.Fatalf("expected validation error on photo without submitting, got %v", err)
	}
	if w.Errors()[domain.DocPhoto] == "" || w.Submitted() {
		t.Fatalf("expected recorded error and editable draft")
	}
}

func TestSubmit_SuccessFreezesDraft(t *testing.T) {
	w := New(VisaApplication())
	fillVisa(t, w)
	_ = w.SetFlag("previouslyRefused", true)
	advanceToEnd(t, w)

	var got Payload
	err := w.Submit(context.Background(), SubmitterFunc(func(_ context.Context, p Payload) error {
		got = p
		return nil
	}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Fields["firstName"] != "Ana" || got.Fields["emergencyPhone"] == "" {
		t.Fatalf("payload missing merged fields: %v", got.Fields)
	}
	if !got.Flags["previouslyRefused"] || len(got.Files[domain.DocPassport]) != 1 {
		t.Fatalf("payload missing flags or files: %+v", got)
	}

	if err := w.SetField("firstName", "Other"); !errors.Is(err, ErrSubmitted) {
		t.Fatalf("expected ErrSubmitted, got %v", err)
	}
	if err := w.Submit(context.Background(), SubmitterFunc(func(context.Context, Payload) error { return nil })); !errors.Is(err, ErrSubmitted) {
		t.Fatalf("expected ErrSubmitted on resubmit, got %v", err)
	}

	w.Reset()
	if w.Submitted() || w.Step() != 1 || w.Field("firstName") != "" {
		t.Fatalf("expected a fresh draft after reset")
	}
}

func TestSubmit_SubmitterErrorKeepsDraftEditable(t *testing.T) {
	w := New(VisaApplication())
	fillVisa(t, w)
	advanceToEnd(t, w)

	boom := errors.New("boom")
	err := w.Submit(context.Background(), SubmitterFunc(func(context.Context, Payload) error { return boom }))
	if !errors.Is(err, boom) {
		t.Fatalf("expected submitter error, got %v", err)
	}
	if w.Submitted() {
		t.Fatalf("draft must stay editable")
	}
	if err := w.SetField("firstName", "Ann"); err != nil {
		t.Fatalf("expected edit to succeed: %v", err)
	}
}

func TestRegistration_MatchingRules(t *testing.T) {
	w := New(Registration())
	_ = w.SetField("email", "ana@example.com")
	_ = w.SetField("confirmEmail", "ana@example.org")
	_ = w.SetField("password", "secret")
	_ = w.SetField("confirmPassword", "secret!")

	if w.ValidateStep(1) {
		t.Fatalf("expected mismatches to fail")
	}
	errs := w.Errors()
	if errs["confirmEmail"] != "Emails do not match" || errs["confirmPassword"] != "Passwords do not match" {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if errs["surname"] != "Surname is required" || errs["idIssuingCountry"] != "ID issuing country is required" {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestVisaApplicationFrom(t *testing.T) {
	sub := VisaApplicationFrom(Payload{
		Fields: map[string]string{"firstName": " Ana ", "destination": "canada", "occupation": "engineer"},
		Files: map[string][]domain.FileRef{
			domain.DocPassport:   {{ID: "p"}},
			domain.DocAdditional: nil,
		},
	})
	if sub.Personal.FirstName != "Ana" || sub.Travel.Destination != "canada" || sub.Background.Occupation != "engineer" {
		t.Fatalf("unexpected mapping: %+v", sub)
	}
	if _, ok := sub.Documents[domain.DocAdditional]; ok {
		t.Fatalf("empty categories should be dropped")
	}
	if len(sub.Documents[domain.DocPassport]) != 1 {
		t.Fatalf("expected passport file")
	}
}

func TestRegistrationFrom(t *testing.T) {
	reg := RegistrationFrom(Payload{
		Fields: map[string]string{
			"firstName": "Ana", "surname": "Mbeki", "email": "ana@example.com", "password": " pw ",
			"idIssuingCountry": "CM", "birthPlace": "Douala", "idType": "passport",
			"idNumber": "P1", "idValidityDate": "2020-01-01",
		},
	})
	if reg.LastName != "Mbeki" || reg.Country != "CM" || reg.PlaceOfBirth != "Douala" {
		t.Fatalf("unexpected mapping: %+v", reg.Profile)
	}
	if reg.DocumentType != "passport" || reg.DocumentNumber != "P1" || reg.DocumentIssueDate != "2020-01-01" {
		t.Fatalf("unexpected document mapping: %+v", reg.Profile)
	}
	if reg.Password != " pw " {
		t.Fatalf("password must not be trimmed")
	}
}
