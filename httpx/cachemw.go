package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/chesspulse/chesspulse/cache"
)

// Cache-status headers are the wire-visible contract of the caching layer;
// frontend tooling inspects them, so the values are exactly HIT or MISS.
const (
	HeaderCacheStatus = "X-Cache"
	HeaderCacheKey    = "X-Cache-Key"
)

const (
	// DefaultCacheTTL applies when no TTL option is given.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultLiveTTL is the short TTL for payloads that are still changing,
	// e.g. ongoing tournaments.
	DefaultLiveTTL = 30 * time.Second
)

// CacheOptions configures a response-cache middleware instance.
type CacheOptions struct {
	// TTL for stored responses; <= 0 stores permanently.
	TTL time.Duration
	// KeyGenerator overrides the default path-derived cache key.
	KeyGenerator func(Context) string
	// IncludeQuery folds the raw query string into the default key.
	IncludeQuery bool
	// SuccessOnly restricts storage to 2xx responses.
	SuccessOnly bool
}

type CacheOption func(*CacheOptions)

func defaultCacheOptions() CacheOptions {
	return CacheOptions{TTL: DefaultCacheTTL, IncludeQuery: true, SuccessOnly: true}
}

// WithCacheTTL sets how long stored responses live; pass cache.Forever for
// permanent entries.
func WithCacheTTL(d time.Duration) CacheOption {
	return func(o *CacheOptions) { o.TTL = d }
}

// WithKeyGenerator supplies a custom request-to-key function.
func WithKeyGenerator(fn func(Context) string) CacheOption {
	return func(o *CacheOptions) {
		if fn != nil {
			o.KeyGenerator = fn
		}
	}
}

// WithoutQuery keys responses on the path alone.
func WithoutQuery() CacheOption {
	return func(o *CacheOptions) { o.IncludeQuery = false }
}

// WithAllStatuses stores non-2xx responses too.
func WithAllStatuses() CacheOption {
	return func(o *CacheOptions) { o.SuccessOnly = false }
}

// Cache returns middleware that serves GET responses from the store and
// captures misses into it. Cache failures are logged and degrade to an
// uncached response; they never fail the request.
func Cache(store cache.Store, opts ...CacheOption) MiddlewareFunc {
	cfg := defaultCacheOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	keyFn := func(c Context) (string, bool) {
		if cfg.KeyGenerator != nil {
			return cfg.KeyGenerator(c), true
		}
		return requestKey(c, cfg.IncludeQuery), true
	}
	ttlFn := func(Context, []byte) time.Duration { return cfg.TTL }
	return cacheResponses(store, keyFn, ttlFn, cfg.SuccessOnly)
}

// TournamentCache keys on the tournament route parameters and decides the
// TTL from the response itself: finished tournaments never change, so they
// are stored permanently; anything else gets the short live TTL. Routes
// without a tournament id bypass caching.
func TournamentCache(store cache.Store, liveTTL time.Duration) MiddlewareFunc {
	if liveTTL <= 0 {
		liveTTL = DefaultLiveTTL
	}
	keyFn := func(c Context) (string, bool) {
		id := c.Param("id")
		if id == "" {
			return "", false
		}
		return cache.TournamentKey(routePlatform(c), id), true
	}
	ttlFn := func(c Context, body []byte) time.Duration {
		var payload struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && tournamentFinished(payload.Status) {
			c.Logger().Infoj(log.JSON{"msg": "tournament finished, caching permanently", "status": payload.Status})
			return cache.Forever
		}
		c.Logger().Infoj(log.JSON{"msg": "tournament live, caching briefly", "ttl": liveTTL.String()})
		return liveTTL
	}
	return cacheResponses(store, keyFn, ttlFn, true)
}

// PlayerCache keys player profile responses on the platform (taken from the
// route's base path) and the username route parameter.
func PlayerCache(store cache.Store, ttl time.Duration) MiddlewareFunc {
	keyFn := func(c Context) (string, bool) {
		username := c.Param("username")
		if username == "" {
			username = c.Param("id")
		}
		if username == "" {
			return "", false
		}
		return cache.PlayerKey(routePlatform(c), username), true
	}
	ttlFn := func(Context, []byte) time.Duration { return ttl }
	return cacheResponses(store, keyFn, ttlFn, true)
}

// RankingsCache keys ranking lists on platform, ranking category, and the
// optional limit query parameter.
func RankingsCache(store cache.Store, ttl time.Duration) MiddlewareFunc {
	keyFn := func(c Context) (string, bool) {
		category := c.Param("category")
		if category == "" {
			return "", false
		}
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		return cache.RankingsKey(routePlatform(c), category, limit), true
	}
	ttlFn := func(Context, []byte) time.Duration { return ttl }
	return cacheResponses(store, keyFn, ttlFn, true)
}

// CurrentTournamentsCache keys the live tournament list on the platform
// alone; there is a single list per platform.
func CurrentTournamentsCache(store cache.Store, ttl time.Duration) MiddlewareFunc {
	keyFn := func(c Context) (string, bool) {
		return cache.CurrentTournamentsKey(routePlatform(c)), true
	}
	ttlFn := func(Context, []byte) time.Duration { return ttl }
	return cacheResponses(store, keyFn, ttlFn, true)
}

// CacheWhen applies mw only when pred returns true; otherwise the request
// passes through uncached.
func CacheWhen(pred func(Context) bool, mw MiddlewareFunc) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		wrapped := mw(next)
		return func(c Context) error {
			if pred != nil && pred(c) {
				return wrapped(c)
			}
			return next(c)
		}
	}
}

// cacheResponses is the engine behind every variant. Per request: non-GET
// bypasses; a hit short-circuits with the stored body; a miss wraps the
// response writer, lets the handler run, and persists the captured body
// asynchronously. The store never makes a request fail.
func cacheResponses(store cache.Store, keyFn func(Context) (string, bool), ttlFn func(Context, []byte) time.Duration, successOnly bool) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			key, ok := keyFn(c)
			if !ok {
				return next(c)
			}

			payload, err := store.Get(c.Request().Context(), key)
			if err == nil {
				header := c.Response().Header()
				header.Set(HeaderCacheStatus, "HIT")
				header.Set(HeaderCacheKey, key)
				return c.JSONBlob(http.StatusOK, payload)
			}
			if !errors.Is(err, cache.ErrNotFound) {
				c.Logger().Errorj(log.JSON{"msg": "cache read failed", "key": key, "error": err.Error()})
			}

			header := c.Response().Header()
			header.Set(HeaderCacheStatus, "MISS")
			header.Set(HeaderCacheKey, key)

			res := c.Response()
			capture := &captureWriter{ResponseWriter: res.Writer}
			res.Writer = capture

			if err := next(c); err != nil {
				// handler errors pass through untouched; the error handler
				// writes its own response and nothing is cached
				return err
			}

			if successOnly && (res.Status < 200 || res.Status >= 300) {
				return nil
			}
			body := append([]byte(nil), capture.body.Bytes()...)
			if len(body) == 0 {
				return nil
			}

			ttl := ttlFn(c, body)
			logger := c.Logger()
			// fire and forget; the response has already been sent
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorj(log.JSON{"msg": "cache write panic", "key": key, "panic": fmt.Sprint(r)})
					}
				}()
				if err := store.Set(context.Background(), key, body, ttl); err != nil {
					logger.Errorj(log.JSON{"msg": "cache write failed", "key": key, "error": err.Error()})
				}
			}()
			return nil
		}
	}
}

// captureWriter records the body while passing every write through.
type captureWriter struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// requestKey is the default key generator: request path plus, optionally,
// the raw query string.
func requestKey(c Context, includeQuery bool) string {
	req := c.Request()
	if includeQuery && req.URL.RawQuery != "" {
		return req.URL.Path + "?" + req.URL.RawQuery
	}
	return req.URL.Path
}

// routePlatform extracts the platform segment from the matched route: an
// explicit :platform parameter wins, otherwise the first concrete segment
// after the API prefix (routes are grouped as /api/<platform>/...).
func routePlatform(c Context) string {
	if p := c.Param("platform"); p != "" {
		return p
	}
	segments := strings.Split(strings.Trim(c.Path(), "/"), "/")
	for i, seg := range segments {
		if seg == "api" && i+1 < len(segments) && !strings.HasPrefix(segments[i+1], ":") {
			return segments[i+1]
		}
	}
	if len(segments) > 0 && !strings.HasPrefix(segments[0], ":") {
		return segments[0]
	}
	return "unknown"
}

func tournamentFinished(status string) bool {
	switch strings.ToLower(status) {
	case "finished", "completed":
		return true
	default:
		return false
	}
}
