// Package wizard implements multi-step forms with per-step validation over a
// single draft shared by all steps.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/patricktravel/portal/internal/core/domain"
)

var (
	ErrNotLastStep = errors.New("wizard: submit is only allowed on the last step")
	ErrSubmitted   = errors.New("wizard: draft already submitted")
	ErrNoSuchIndex = errors.New("wizard: file index out of range")
)

// TextRule checks one text field. A rule with Equals set passes when the
// field matches that other field; otherwise the field must be non-blank.
type TextRule struct {
	Field   string
	Equals  string
	Message string
}

// FileRule requires at least one file in Category.
type FileRule struct {
	Category string
	Message  string
}

type Step struct {
	Title string
	Text  []TextRule
	Files []FileRule
}

type Definition struct {
	Name  string
	Steps []Step
}

// Payload is the merged draft handed to a Submitter.
type Payload struct {
	Fields map[string]string
	Flags  map[string]bool
	Files  map[string][]domain.FileRef
}

type Submitter interface {
	Submit(ctx context.Context, p Payload) error
}

// SubmitterFunc adapts a plain function to Submitter.
type SubmitterFunc func(ctx context.Context, p Payload) error

func (f SubmitterFunc) Submit(ctx context.Context, p Payload) error { return f(ctx, p) }

// Wizard is a form draft positioned on one of its steps. The step index
// stays within [1, len(Steps)].
type Wizard struct {
	def Definition

	mu        sync.Mutex
	fields    map[string]string
	flags     map[string]bool
	files     map[string][]domain.FileRef
	errs      map[string]string
	step      int
	submitted bool
}

func New(def Definition) *Wizard {
	w := &Wizard{def: def}
	w.reset()
	return w
}

func (w *Wizard) reset() {
	w.fields = map[string]string{}
	w.flags = map[string]bool{}
	w.files = map[string][]domain.FileRef{}
	w.errs = map[string]string{}
	w.step = 1
	w.submitted = false
}

// Reset clears the draft and returns to the first step.
func (w *Wizard) Reset() {
	w.mu.Lock()
	w.reset()
	w.mu.Unlock()
}

func (w *Wizard) Steps() int { return len(w.def.Steps) }

func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Submitted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitted
}

// Field returns the current value of a text field.
func (w *Wizard) Field(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fields[name]
}

// Files returns a copy of the files attached under category.
func (w *Wizard) Files(category string) []domain.FileRef {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.FileRef(nil), w.files[category]...)
}

// Errors returns a copy of the current field errors.
func (w *Wizard) Errors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.errs))
	for k, v := range w.errs {
		out[k] = v
	}
	return out
}

// SetField stores value and clears any error recorded for that field.
func (w *Wizard) SetField(name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted {
		return ErrSubmitted
	}
	w.fields[name] = value
	delete(w.errs, name)
	return nil
}

func (w *Wizard) SetFlag(name string, v bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted {
		return ErrSubmitted
	}
	w.flags[name] = v
	delete(w.errs, name)
	return nil
}

// AddFile attaches f under category. Files are kept in the order added.
func (w *Wizard) AddFile(category string, f domain.FileRef) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted {
		return ErrSubmitted
	}
	w.files[category] = append(w.files[category], f)
	delete(w.errs, category)
	return nil
}

func (w *Wizard) RemoveFile(category string, index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted {
		return ErrSubmitted
	}
	list := w.files[category]
	if index < 0 || index >= len(list) {
		return ErrNoSuchIndex
	}
	w.files[category] = append(list[:index:index], list[index+1:]...)
	return nil
}

// ValidateStep checks step k against the draft, replacing the recorded
// errors with the result. Out-of-range steps have no rules.
func (w *Wizard) ValidateStep(k int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errs = w.check(k)
	return len(w.errs) == 0
}

// Next advances one step when the current step is valid.
func (w *Wizard) Next() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errs = w.check(w.step)
	if len(w.errs) > 0 {
		return false
	}
	if w.step < len(w.def.Steps) {
		w.step++
	}
	return true
}

// Previous goes back one step without validating.
func (w *Wizard) Previous() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > 1 {
		w.step--
	}
}

// Submit re-validates the last step and hands the merged draft to s. Earlier
// steps were validated by Next on the way here. On success the draft is
// frozen until Reset; on failure it stays editable.
func (w *Wizard) Submit(ctx context.Context, s Submitter) error {
	w.mu.Lock()
	if w.submitted {
		w.mu.Unlock()
		return ErrSubmitted
	}
	if w.step != len(w.def.Steps) {
		w.mu.Unlock()
		return ErrNotLastStep
	}
	errs := w.check(w.step)
	w.errs = errs
	if len(errs) > 0 {
		w.mu.Unlock()
		return domain.NewValidationError(copyMap(errs))
	}
	p := w.payload()
	w.mu.Unlock()

	if err := s.Submit(ctx, p); err != nil {
		return fmt.Errorf("wizard %s: %w", w.def.Name, err)
	}

	w.mu.Lock()
	w.submitted = true
	w.mu.Unlock()
	return nil
}

func (w *Wizard) check(k int) map[string]string {
	errs := map[string]string{}
	if k < 1 || k > len(w.def.Steps) {
		return errs
	}
	st := w.def.Steps[k-1]
	for _, r := range st.Text {
		if _, done := errs[r.Field]; done {
			continue
		}
		v := w.fields[r.Field]
		if r.Equals != "" {
			if v != w.fields[r.Equals] {
				errs[r.Field] = r.Message
			}
			continue
		}
		if strings.TrimSpace(v) == "" {
			errs[r.Field] = r.Message
		}
	}
	for _, r := range st.Files {
		if len(w.files[r.Category]) == 0 {
			errs[r.Category] = r.Message
		}
	}
	return errs
}

func (w *Wizard) payload() Payload {
	p := Payload{
		Fields: copyMap(w.fields),
		Flags:  make(map[string]bool, len(w.flags)),
		Files:  make(map[string][]domain.FileRef, len(w.files)),
	}
	for k, v := range w.flags {
		p.Flags[k] = v
	}
	for k, v := range w.files {
		p.Files[k] = append([]domain.FileRef(nil), v...)
	}
	return p
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
