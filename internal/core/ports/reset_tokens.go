package ports

import (
	"context"
	"time"
)

// ResetTokenStore keeps single-use password reset tokens.
type ResetTokenStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	// Consume returns the owner of token and deletes it. Unknown or expired
	// tokens yield domain.ErrInvalidLink.
	Consume(ctx context.Context, token string) (string, error)
}
