package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// SubmissionDedup maps Idempotency-Key headers to the application reference
// they produced.
// Key format: applications:idem:<idempotency_key>
type SubmissionDedup struct {
	client *redis.Client
}

// NewSubmissionDedup creates a SubmissionDedup wrapping the given Redis client.
func NewSubmissionDedup(client *redis.Client) *SubmissionDedup {
	return &SubmissionDedup{client: client}
}

// Lookup returns the reference stored for key, or "" when the key is unknown.
func (d *SubmissionDedup) Lookup(ctx context.Context, key string) (string, error) {
	ref, err := d.client.Get(ctx, d.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("dedup lookup: %w", err)
	}
	return ref, nil
}

// Remember records the reference for key (expires after dedupTTL). An
// existing mapping is never overwritten.
func (d *SubmissionDedup) Remember(ctx context.Context, key, reference string) error {
	if err := d.client.SetNX(ctx, d.key(key), reference, dedupTTL).Err(); err != nil {
		return fmt.Errorf("dedup remember: %w", err)
	}
	return nil
}

func (d *SubmissionDedup) key(key string) string {
	return "applications:idem:" + key
}
