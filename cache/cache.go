package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache: key not found")

// Forever marks an entry as permanent. Any ttl <= 0 is treated the same way.
const Forever time.Duration = 0

// Store represents a TTL-based cache abstraction that can be backed by
// memory, Redis, or any other KV store. The in-memory backend is the
// default; the Redis backend exists for horizontally scaled deployments
// where independent per-process caches would diverge.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePattern removes every key matching a glob pattern where '*'
	// matches any substring. Returns the number of keys removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)
	// Clear removes all entries and returns the number removed.
	Clear(ctx context.Context) (int, error)
}

// Stats reports cumulative hit/miss accounting for a store.
type Stats struct {
	Hits    int64    `json:"hits"`
	Misses  int64    `json:"misses"`
	Total   int64    `json:"total"`
	HitRate string   `json:"hitRate"`
	Entries int      `json:"entries"`
	Keys    []string `json:"keys"`
}

// Metrics receives cache lifecycle events.
type Metrics interface {
	Hit()
	Miss()
	Expire()
}

// NopMetrics discards all events. Stores fall back to it so callers that
// don't care about metrics avoid nil checks.
type NopMetrics struct{}

func (NopMetrics) Hit()    {}
func (NopMetrics) Miss()   {}
func (NopMetrics) Expire() {}
