package session

import (
	"context"

	"github.com/patricktravel/portal/internal/client/wizard"
)

// RegistrationSubmitter feeds a completed registration wizard into
// Manager.Register.
func RegistrationSubmitter(m *Manager) wizard.Submitter {
	return wizard.SubmitterFunc(func(ctx context.Context, p wizard.Payload) error {
		return m.Register(ctx, wizard.RegistrationFrom(p))
	})
}
