package ports

import (
	"context"

	"github.com/patricktravel/portal/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error)
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)
	ConfirmEmail(ctx context.Context, token string) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Profile(ctx context.Context, userID string) (*domain.User, error)
}
