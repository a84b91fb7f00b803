package chess

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chesspulse/chesspulse/auth"
	"github.com/chesspulse/chesspulse/cache"
	"github.com/chesspulse/chesspulse/cache/memory"
	"github.com/chesspulse/chesspulse/httpx"
)

func newTestServer(t *testing.T, client PlatformClient) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewService(ServiceConfig{
		Clients: map[Platform]PlatformClient{PlatformLichess: client},
		Cache:   store,
	})

	passwordHash, err := auth.HashPassword([]byte("open-sesame"), 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	handler := NewHandler(HandlerConfig{
		Service:           svc,
		Cache:             store,
		Sessions:          auth.NewSessionStore(store, auth.SessionStoreOptions{}),
		AdminPasswordHash: passwordHash,
	})

	server := httpx.NewServer()
	server.RegisterRoutes(handler.Register)
	return server.Handler(), store
}

func doRequest(h http.Handler, method, target, token string, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func waitForKey(t *testing.T, store cache.Store, key string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := store.Get(context.Background(), key); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("key %q never appeared in the store", key)
}

func TestPlayerEndpointMissThenHit(t *testing.T) {
	client := &fakeClient{player: Player{Platform: PlatformLichess, ID: "magnus", Username: "magnus"}}
	h, store := newTestServer(t, client)

	rec := doRequest(h, http.MethodGet, "/api/lichess/player/magnus", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("first status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(httpx.HeaderCacheStatus); got != "MISS" {
		t.Fatalf("first X-Cache = %q, want MISS", got)
	}
	key := rec.Header().Get(httpx.HeaderCacheKey)
	if key != "player:lichess:magnus" {
		t.Fatalf("X-Cache-Key = %q", key)
	}
	waitForKey(t, store, key)

	rec = doRequest(h, http.MethodGet, "/api/lichess/player/magnus", "", "")
	if got := rec.Header().Get(httpx.HeaderCacheStatus); got != "HIT" {
		t.Fatalf("second X-Cache = %q, want HIT", got)
	}
	if client.playerCalls != 1 {
		t.Fatalf("playerCalls = %d, want 1", client.playerCalls)
	}
	var player Player
	if err := json.Unmarshal(rec.Body.Bytes(), &player); err != nil {
		t.Fatalf("unmarshal cached body: %v", err)
	}
	if player.Username != "magnus" {
		t.Fatalf("cached username = %q", player.Username)
	}
}

func TestUnknownPlatformRejected(t *testing.T) {
	h, _ := newTestServer(t, &fakeClient{})

	rec := doRequest(h, http.MethodGet, "/api/icc/player/magnus", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAdminLoginAndStats(t *testing.T) {
	h, _ := newTestServer(t, &fakeClient{})

	// wrong password
	rec := doRequest(h, http.MethodPost, "/api/admin/login", "", `{"password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong-password status = %d", rec.Code)
	}

	// no token
	rec = doRequest(h, http.MethodGet, "/api/admin/cache/stats", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no-token status = %d", rec.Code)
	}

	rec = doRequest(h, http.MethodPost, "/api/admin/login", "", `{"password":"open-sesame"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	if login.Token == "" {
		t.Fatal("empty session token")
	}

	rec = doRequest(h, http.MethodGet, "/api/admin/cache/stats", login.Token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var stats cache.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.HitRate == "" {
		t.Fatal("stats hitRate missing")
	}
}

func TestAdminCacheManagement(t *testing.T) {
	h, store := newTestServer(t, &fakeClient{})
	ctx := context.Background()

	rec := doRequest(h, http.MethodPost, "/api/admin/login", "", `{"password":"open-sesame"}`)
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}

	for _, key := range []string{
		cache.PlayerKey("lichess", "magnus"),
		cache.PlayerKey("chesscom", "hikaru"),
		cache.RankingsKey("lichess", "blitz", 50),
	} {
		if err := store.Set(ctx, key, []byte(`{}`), cache.Forever); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	// pattern parameter is mandatory
	rec = doRequest(h, http.MethodDelete, "/api/admin/cache/pattern", login.Token, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing-pattern status = %d", rec.Code)
	}

	rec = doRequest(h, http.MethodDelete, "/api/admin/cache/pattern?pattern=player:lichess:*", login.Token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pattern status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Removed int `json:"removed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal pattern response: %v", err)
	}
	if result.Removed != 1 {
		t.Fatalf("pattern removed = %d, want 1", result.Removed)
	}

	rec = doRequest(h, http.MethodDelete, "/api/admin/cache", login.Token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal clear response: %v", err)
	}
	// session tokens live in the same store, so the count includes them
	if result.Removed < 2 {
		t.Fatalf("clear removed = %d, want at least 2", result.Removed)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &fakeClient{})
	rec := doRequest(h, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}
