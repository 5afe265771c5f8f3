package shared

import (
	"context"
	"time"
)

// IdempotencyStore records keys that have already been claimed so a repeated
// request or event is not processed twice
type IdempotencyStore interface {
	// MarkProcessed claims a key with a TTL
	// Returns true if the key was newly claimed, false if it was already taken
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been claimed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// SetResult attaches a result (such as a created order id) to a claimed key
	SetResult(ctx context.Context, key, result string, ttl time.Duration) error

	// GetResult returns the result attached to a key, or "" if none
	GetResult(ctx context.Context, key string) (string, error)

	// Release removes a claim so the key can be reused after a failure
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a claimed key is remembered
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
