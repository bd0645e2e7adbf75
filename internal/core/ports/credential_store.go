package ports

import (
	"context"

	"github.com/patricktravel/portal/internal/core/domain"
)

// CredentialStore is the external identity provider. Adapters translate
// provider failures into domain errors at this boundary.
type CredentialStore interface {
	// SignUp creates the account. When the returned user carries a
	// Verification, the caller is expected to deliver the confirmation link.
	SignUp(ctx context.Context, reg domain.Registration) (*domain.User, error)
	SignIn(ctx context.Context, email, password string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	ConfirmEmail(ctx context.Context, token string) (*domain.User, error)
}

// AccountRecovery is implemented by stores that own the password hash and can
// therefore reset it.
type AccountRecovery interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, newPassword string) error
}
