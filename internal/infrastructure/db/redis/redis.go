// Package redis holds the portal's short-lived keys: application
// idempotency keys and password reset tokens.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultClientName = "patrick-travel-portal"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// ClientName shows up in CLIENT LIST. Defaults to the portal name.
	ClientName string
	// Timeout bounds dialing, each command, and the startup ping.
	Timeout time.Duration
}

// Connect opens a client and pings it once. A client that cannot answer the
// ping is closed before the error is returned.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ClientName == "" {
		cfg.ClientName = defaultClientName
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   cfg.ClientName,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s db %d: %w", cfg.Addr, cfg.DB, err)
	}
	return client, nil
}
