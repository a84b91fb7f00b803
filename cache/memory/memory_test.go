package memory

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/chesspulse/chesspulse/cache"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewStore(WithClock(clock.Now)), clock
}

func TestGetBeforeAndAfterExpiry(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	if err := store.Set(ctx, "player:fide:123", []byte(`{"name":"X"}`), 5*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	clock.Advance(4999 * time.Millisecond)
	payload, err := store.Get(ctx, "player:fide:123")
	if err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}
	if string(payload) != `{"name":"X"}` {
		t.Fatalf("Get() = %q", payload)
	}

	before := store.Stats().Misses
	clock.Advance(2 * time.Millisecond)
	if _, err := store.Get(ctx, "player:fide:123"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	if got := store.Stats().Misses; got != before+1 {
		t.Fatalf("misses = %d, want %d", got, before+1)
	}
	// the expired read must have evicted the entry
	if store.Stats().Entries != 0 {
		t.Fatalf("expected entry evicted, have %d", store.Stats().Entries)
	}
}

func TestPermanentEntriesNeverExpire(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	if err := store.Set(ctx, "rankings:fide:standard", []byte("top"), cache.Forever); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	clock.Advance(365 * 24 * time.Hour)
	payload, err := store.Get(ctx, "rankings:fide:standard")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(payload) != "top" {
		t.Fatalf("Get() = %q", payload)
	}
}

func TestOverwriteResetsTimestamps(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("old"), time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	clock.Advance(900 * time.Millisecond)
	if err := store.Set(ctx, "k", []byte("new"), time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// past the first deadline but inside the second
	clock.Advance(500 * time.Millisecond)
	payload, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(payload) != "new" {
		t.Fatalf("Get() = %q, want %q", payload, "new")
	}
	if age, err := store.Age("k"); err != nil || age != 500*time.Millisecond {
		t.Fatalf("Age() = %v, %v", age, err)
	}
}

func TestDeletePattern(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	keys := []string{
		"tournament:lichess:abc",
		"tournament:lichess:def",
		"tournament:lichess:abc:round:3",
		"tournament:chesscom:abc",
		"player:lichess:carlsen",
	}
	for _, key := range keys {
		if err := store.Set(ctx, key, []byte("v"), cache.Forever); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	removed, err := store.DeletePattern(ctx, "tournament:lichess:*")
	if err != nil {
		t.Fatalf("DeletePattern() error = %v", err)
	}
	if removed != 3 {
		t.Fatalf("DeletePattern() removed = %d, want 3", removed)
	}

	remaining := store.Stats().Keys
	sort.Strings(remaining)
	want := []string{"player:lichess:carlsen", "tournament:chesscom:abc"}
	if len(remaining) != len(want) {
		t.Fatalf("remaining keys = %v, want %v", remaining, want)
	}
	for i := range want {
		if remaining[i] != want[i] {
			t.Fatalf("remaining keys = %v, want %v", remaining, want)
		}
	}
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern, key string
		want         bool
	}{
		{"tournament:lichess:*", "tournament:lichess:abc", true},
		{"tournament:lichess:*", "tournament:chesscom:abc", false},
		{"player:*:carlsen", "player:lichess:carlsen", true},
		{"player:*:carlsen", "player:lichess:caruana", false},
		{"exact", "exact", true},
		{"exact", "exact:not", false},
		{"*", "anything", true},
	}
	for _, tc := range cases {
		if got := matchPattern(tc.pattern, tc.key); got != tc.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tc.pattern, tc.key, got, tc.want)
		}
	}
}

func TestStatsAccounting(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	store.ResetStats()

	// 2 misses
	for _, key := range []string{"a", "b"} {
		if _, err := store.Get(ctx, key); !errors.Is(err, cache.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}

	if err := store.Set(ctx, "a", []byte("v"), cache.Forever); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	// 3 hits
	for i := 0; i < 3; i++ {
		if _, err := store.Get(ctx, "a"); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}

	stats := store.Stats()
	if stats.Hits != 3 || stats.Misses != 2 || stats.Total != 5 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.HitRate != "60.00%" {
		t.Fatalf("HitRate = %q, want 60.00%%", stats.HitRate)
	}

	store.ResetStats()
	stats = store.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.HitRate != "0.00%" {
		t.Fatalf("stats after reset = %+v", stats)
	}
	if stats.Entries != 1 {
		t.Fatalf("ResetStats must not drop entries, have %d", stats.Entries)
	}
}

func TestClear(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, key, []byte("v"), cache.Forever); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != 3 {
		t.Fatalf("Clear() removed = %d, want 3", removed)
	}
	if store.Stats().Entries != 0 {
		t.Fatalf("entries after clear = %d", store.Stats().Entries)
	}
}

func TestAgeAndShouldRevalidate(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	if _, err := store.Age("missing"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Age(missing) err = %v", err)
	}
	if store.ShouldRevalidate("missing", 0) {
		t.Fatal("ShouldRevalidate(missing) = true, want false")
	}

	if err := store.Set(ctx, "k", []byte("v"), cache.Forever); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	clock.Advance(10 * time.Second)

	if age, err := store.Age("k"); err != nil || age != 10*time.Second {
		t.Fatalf("Age() = %v, %v", age, err)
	}
	if !store.ShouldRevalidate("k", 5*time.Second) {
		t.Fatal("ShouldRevalidate(10s old, 5s stale) = false")
	}
	if store.ShouldRevalidate("k", 15*time.Second) {
		t.Fatal("ShouldRevalidate(10s old, 15s stale) = true")
	}
}

func TestEndToEndScenario(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	key := cache.PlayerKey("fide", "123")
	if err := store.Set(ctx, key, []byte(`{"name":"X"}`), 5000*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if payload, err := store.Get(ctx, key); err != nil || string(payload) != `{"name":"X"}` {
		t.Fatalf("Get() = %q, %v", payload, err)
	}

	missesBefore := store.Stats().Misses
	clock.Advance(5001 * time.Millisecond)
	if _, err := store.Get(ctx, key); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := store.Stats().Misses; got != missesBefore+1 {
		t.Fatalf("misses = %d, want %d", got, missesBefore+1)
	}
}

func TestContextCancellation(t *testing.T) {
	store, _ := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Set(ctx, "k", []byte("v"), 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
