package ports

import (
	"context"

	"github.com/patricktravel/portal/internal/core/domain"
)

// ApplicationRepository persists submitted applications.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	// FindByReference only returns applications owned by userID.
	FindByReference(ctx context.Context, reference, userID string) (*domain.Application, error)
}
