package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client supplied request keys so a retried request is
// not applied twice
type IdempotencyStore interface {
	// Claim reserves a key for ttl.
	// Returns true if the key was free, false if another request already holds it
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees a key so the request can be retried (used when processing failed)
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a claimed key blocks replays. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency keys are honoured. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
