package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chesspulse/chesspulse/cache"
)

// SessionStoreOptions configures session persistence.
type SessionStoreOptions struct {
	Prefix     string
	DefaultTTL time.Duration
	Now        func() time.Time
}

// SessionStore persists admin sessions through a cache.Store, so sessions
// share the cache's lifetime and, with the Redis backend, survive restarts.
type SessionStore struct {
	store      cache.Store
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
}

// NewSessionStore wraps a cache.Store for session persistence.
func NewSessionStore(store cache.Store, opts SessionStoreOptions) *SessionStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "session:admin"
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionStore{store: store, prefix: prefix, defaultTTL: ttl, now: now}
}

func (s *SessionStore) key(token string) string {
	return fmt.Sprintf("%s:%s", s.prefix, token)
}

// Create mints a random session token and persists it with the default TTL.
func (s *SessionStore) Create(ctx context.Context) (Session, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	now := s.now().UTC()
	session := Session{Token: token, IssuedAt: now, ExpiresAt: now.Add(s.defaultTTL)}

	record, err := json.Marshal(session)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.Set(ctx, s.key(token), record, s.defaultTTL); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Get validates a token and returns its session, or ErrSessionExpired when
// the token is unknown or past expiry.
func (s *SessionStore) Get(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrMissingToken
	}
	payload, err := s.store.Get(ctx, s.key(token))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return Session{}, ErrSessionExpired
		}
		return Session{}, err
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return Session{}, err
	}
	if session.Expired(s.now()) {
		_ = s.store.Delete(ctx, s.key(token))
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

// Delete revokes a session token.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	return s.store.Delete(ctx, s.key(token))
}

func newToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
