// Package memory provides the process-local cache.Store backend. Contents
// are lost on restart; deployments that need a shared cache use the redis
// backend instead.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/chesspulse/chesspulse/cache"
)

type entry struct {
	data      []byte
	cachedAt  time.Time
	expiresAt time.Time // zero => permanent
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store is a mutex-protected TTL map. Expired entries are evicted lazily by
// the read that discovers them; there is no background sweep.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	hits    int64
	misses  int64

	now     func() time.Time
	logger  *log.Logger
	metrics cache.Metrics
}

// NewStore builds an empty in-memory store.
func NewStore(opts ...Option) *Store {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Store{
		entries: make(map[string]entry),
		now:     cfg.Now,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Get returns the stored payload, or cache.ErrNotFound when the key is
// absent or expired. An expired entry is removed as a side effect and the
// read counts as a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses++
		s.metrics.Miss()
		s.logger.Debugj(log.JSON{"msg": "cache miss", "key": key})
		return nil, cache.ErrNotFound
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		s.misses++
		s.metrics.Miss()
		s.metrics.Expire()
		s.logger.Debugj(log.JSON{"msg": "cache expired", "key": key})
		return nil, cache.ErrNotFound
	}

	s.hits++
	s.metrics.Hit()
	s.logger.Debugj(log.JSON{"msg": "cache hit", "key": key})
	return append([]byte(nil), e.data...), nil
}

// Set stores the payload, overwriting any existing entry and resetting its
// timestamps. ttl <= 0 stores the entry permanently.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := entry{data: append([]byte(nil), value...), cachedAt: now}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.entries[key] = e
	s.logger.Debugj(log.JSON{"msg": "cache set", "key": key, "ttl": ttl.String(), "permanent": ttl <= 0})
	return nil
}

// Delete removes one entry; absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// DeletePattern removes every key matching pattern, where '*' matches any
// substring, and returns the count removed.
func (s *Store) DeletePattern(ctx context.Context, pattern string) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if matchPattern(pattern, key) {
			delete(s.entries, key)
			removed++
		}
	}
	s.logger.Infoj(log.JSON{"msg": "cache pattern delete", "pattern": pattern, "removed": removed})
	return removed, nil
}

// Clear removes all entries, leaving hit/miss counters untouched.
func (s *Store) Clear(ctx context.Context) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.entries)
	s.entries = make(map[string]entry)
	s.logger.Infoj(log.JSON{"msg": "cache cleared", "removed": removed})
	return removed, nil
}

// Stats reports cumulative hit/miss counters and the live key set.
func (s *Store) Stats() cache.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hits + s.misses
	rate := "0.00%"
	if total > 0 {
		rate = fmt.Sprintf("%.2f%%", float64(s.hits)/float64(total)*100)
	}
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return cache.Stats{
		Hits:    s.hits,
		Misses:  s.misses,
		Total:   total,
		HitRate: rate,
		Entries: len(s.entries),
		Keys:    keys,
	}
}

// ResetStats zeroes the hit/miss counters without touching entries.
func (s *Store) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits, s.misses = 0, 0
}

// Age returns how long ago the key was cached, or cache.ErrNotFound when
// the key is absent. Expired entries still report an age until a Get
// evicts them.
func (s *Store) Age(key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return 0, cache.ErrNotFound
	}
	return s.now().Sub(e.cachedAt), nil
}

// ShouldRevalidate reports whether the entry's age exceeds staleTime.
// An absent key returns false, same as a fresh one; callers wanting
// "needs fetch" must use Get.
func (s *Store) ShouldRevalidate(key string, staleTime time.Duration) bool {
	age, err := s.Age(key)
	if err != nil {
		return false
	}
	return age > staleTime
}

// matchPattern implements glob matching where '*' matches any substring.
// A pattern without '*' must equal the key exactly.
func matchPattern(pattern, key string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == key
	}
	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	key = key[len(parts[0]):]
	last := len(parts) - 1
	for _, part := range parts[1:last] {
		idx := strings.Index(key, part)
		if idx < 0 {
			return false
		}
		key = key[idx+len(part):]
	}
	return strings.HasSuffix(key, parts[last])
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
