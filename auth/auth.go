// Package auth guards the admin surface (manual refreshes, cache
// administration). There are no public user accounts; a single admin
// password is verified against a bcrypt hash and grants an opaque session
// token persisted through the cache store.
package auth

import (
	"errors"
	"time"
)

var (
	ErrPasswordMismatch = errors.New("auth: password does not match")
	ErrSessionExpired   = errors.New("auth: session expired")
	ErrMissingToken     = errors.New("auth: missing bearer token")
)

// Session is the persisted shape of an admin session token.
type Session struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(at time.Time) bool {
	return !s.ExpiresAt.IsZero() && at.After(s.ExpiresAt)
}
