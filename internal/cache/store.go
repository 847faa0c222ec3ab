package cache

import (
	"context"
	"time"
)

// Store is a key-value cache with per-entry expiry. Implementations are
// content-agnostic: values are marshaled as JSON and written atomically
// from the caller's perspective.
type Store interface {
	// Get unmarshals the cached value into out and reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Clear evicts every entry unconditionally.
	Clear(ctx context.Context) error
}
