package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware rejects requests that lack a valid admin session.
type Middleware struct {
	sessions *SessionStore
}

type sessionContextKey struct{}

// NewMiddleware builds a session-checking middleware.
func NewMiddleware(sessions *SessionStore) *Middleware {
	return &Middleware{sessions: sessions}
}

// Handler validates the bearer token and injects the session into the
// request context before calling next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w, ErrMissingToken)
			return
		}
		session, err := m.sessions.Get(r.Context(), token)
		if err != nil {
			unauthorized(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFromContext returns the session injected by Handler.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(sessionContextKey{}).(Session)
	return session, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
