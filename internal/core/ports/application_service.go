package ports

import (
	"context"

	"github.com/patricktravel/portal/internal/core/domain"
)

// SubmitApplicationInput is the DTO passed from the transport layer to ApplicationService.
type SubmitApplicationInput struct {
	UserID         string
	IdempotencyKey string
	Submission     domain.ApplicationSubmission
}

type ApplicationService interface {
	Submit(ctx context.Context, in SubmitApplicationInput) (*domain.ApplicationReceipt, error)
	Get(ctx context.Context, userID, reference string) (*domain.Application, error)
}
