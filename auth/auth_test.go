package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chesspulse/chesspulse/cache/memory"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword([]byte("knight-to-f3"), 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := ComparePassword(hash, []byte("knight-to-f3")); err != nil {
		t.Fatalf("ComparePassword() error = %v", err)
	}
	if err := ComparePassword(hash, []byte("wrong")); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithClock(func() time.Time { return now }))
	sessions := NewSessionStore(store, SessionStoreOptions{
		DefaultTTL: time.Hour,
		Now:        func() time.Time { return now },
	})
	ctx := context.Background()

	session, err := sessions.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.Token == "" {
		t.Fatal("empty session token")
	}

	got, err := sessions.Get(ctx, session.Token)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Token != session.Token {
		t.Fatalf("Get() token = %q", got.Token)
	}

	now = now.Add(2 * time.Hour)
	if _, err := sessions.Get(ctx, session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestSessionDelete(t *testing.T) {
	store := memory.NewStore()
	sessions := NewSessionStore(store, SessionStoreOptions{})
	ctx := context.Background()

	session, err := sessions.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := sessions.Delete(ctx, session.Token); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := sessions.Get(ctx, session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after delete, got %v", err)
	}
}

func TestMiddlewareRejectsAndAccepts(t *testing.T) {
	store := memory.NewStore()
	sessions := NewSessionStore(store, SessionStoreOptions{})
	mw := NewMiddleware(sessions)
	ctx := context.Background()

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			t.Error("session missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	// no token
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no-token status = %d", rec.Code)
	}

	// bogus token
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bogus-token status = %d", rec.Code)
	}

	// valid token
	session, err := sessions.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("valid-token status = %d", rec.Code)
	}
}
