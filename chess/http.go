package chess

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/chesspulse/chesspulse/auth"
	"github.com/chesspulse/chesspulse/cache"
	"github.com/chesspulse/chesspulse/httpx"
)

// HandlerConfig wires the HTTP layer. Sessions and AdminPasswordHash are
// optional; without them the admin routes reject every request.
type HandlerConfig struct {
	Service           *Service
	Cache             cache.Store
	Sessions          *auth.SessionStore
	AdminPasswordHash string
	PlayerTTL         time.Duration
	RankingsTTL       time.Duration
	LiveTTL           time.Duration
	Metrics           http.Handler
}

// Handler exposes the service over HTTP.
type Handler struct {
	service      *Service
	cache        cache.Store
	sessions     *auth.SessionStore
	passwordHash string
	playerTTL    time.Duration
	rankingsTTL  time.Duration
	liveTTL      time.Duration
	metrics      http.Handler
}

// NewHandler builds a Handler, filling unset TTLs with the middleware
// defaults.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		service:      cfg.Service,
		cache:        cfg.Cache,
		sessions:     cfg.Sessions,
		passwordHash: cfg.AdminPasswordHash,
		playerTTL:    cfg.PlayerTTL,
		rankingsTTL:  cfg.RankingsTTL,
		liveTTL:      cfg.LiveTTL,
		metrics:      cfg.Metrics,
	}
	if h.playerTTL <= 0 {
		h.playerTTL = httpx.DefaultCacheTTL
	}
	if h.rankingsTTL <= 0 {
		h.rankingsTTL = httpx.DefaultCacheTTL
	}
	if h.liveTTL <= 0 {
		h.liveTTL = httpx.DefaultLiveTTL
	}
	return h
}

// Register attaches every route to the app.
func (h *Handler) Register(a *httpx.App) {
	a.GET("/health", h.health)
	if h.metrics != nil {
		a.GET("/metrics", func(c httpx.Context) error {
			h.metrics.ServeHTTP(c.Response(), c.Request())
			return nil
		})
	}

	api := a.Group("/api")
	api.GET("/:platform/player/:username", h.player,
		httpx.PlayerCache(h.cache, h.playerTTL))
	api.GET("/:platform/player/:username/snapshot", h.storedPlayer)
	api.GET("/:platform/rankings/:category", h.rankings,
		httpx.RankingsCache(h.cache, h.rankingsTTL))
	api.GET("/:platform/tournament/:id", h.tournament,
		httpx.TournamentCache(h.cache, h.liveTTL))
	api.GET("/:platform/tournaments/current", h.currentTournaments,
		httpx.CurrentTournamentsCache(h.cache, h.liveTTL))

	var authMW httpx.MiddlewareFunc
	if h.sessions != nil {
		authMW = httpx.AuthMiddleware(auth.NewMiddleware(h.sessions))
	} else {
		authMW = httpx.AuthMiddleware(nil)
	}

	a.POST("/api/admin/login", h.login)
	admin := a.Group("/api/admin", authMW)
	admin.POST("/logout", h.logout)
	admin.POST("/refresh/:platform/:username", h.refreshPlayer)
	admin.GET("/snapshots/players", h.recentSnapshots)
	admin.GET("/cache/stats", h.cacheStats)
	admin.POST("/cache/stats/reset", h.resetCacheStats)
	admin.DELETE("/cache", h.clearCache)
	admin.DELETE("/cache/pattern", h.deleteCachePattern)
	admin.DELETE("/cache/platform/:platform", h.invalidatePlatform)
}

func (h *Handler) health(c httpx.Context) error {
	return c.JSON(httpx.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) player(c httpx.Context) error {
	platform, err := ParsePlatform(c.Param("platform"))
	if err != nil {
		return httpError(err)
	}
	player, err := h.service.Player(c.Request().Context(), platform, c.Param("username"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, player)
}

func (h *Handler) storedPlayer(c httpx.Context) error {
	platform, err := ParsePlatform(c.Param("platform"))
	if err != nil {
		return httpError(err)
	}
	player, err := h.service.StoredPlayer(c.Request().Context(), platform, c.Param("username"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, player)
}

func (h *Handler) rankings(c httpx.Context) error {
	platform, err := ParsePlatform(c.Param("platform"))
	if err != nil {
		return httpError(err)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := h.service.Rankings(c.Request().Context(), platform, c.Param("category"), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, entries)
}

func (h *Handler) tournament(c httpx.Context) error {
	platform, err := ParsePlatform(c.Param("platform"))
	if err != nil {
		return httpError(err)
	}
	t, err := h.service.Tournament(c.Request().Context(), platform, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, t)
}

func (h *Handler) currentTournaments(c httpx.Context) error {
	platform, err := ParsePlatform(c.Param("platform"))
	if err != nil {
		return httpError(err)
	}
	tournaments, err := h.service.CurrentTournaments(c.Request().Context(), platform)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, tournaments)
}

func (h *Handler) login(c httpx.Context) error {
	if h.sessions == nil || h.passwordHash == "" {
		return httpx.HTTPError(httpx.StatusServiceUnavailable, "admin auth not configured")
	}
	var body struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid request body")
	}
	if err := auth.ComparePassword(h.passwordHash, []byte(body.Password)); err != nil {
		return httpx.HTTPError(httpx.StatusUnauthorized, "invalid credentials")
	}
	session, err := h.sessions.Create(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, map[string]any{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}

func (h *Handler) logout(c httpx.Context) error {
	session, ok := auth.SessionFromContext(c.Request().Context())
	if !ok {
		return httpx.HTTPError(httpx.StatusUnauthorized, "no active session")
	}
	if err := h.sessions.Delete(c.Request().Context(), session.Token); err != nil {
		return httpError(err)
	}
	return c.NoContent(httpx.StatusNoContent)
}

func (h *Handler) refreshPlayer(c httpx.Context) error {
	platform, err := ParsePlatform(c.Param("platform"))
	if err != nil {
		return httpError(err)
	}
	player, err := h.service.RefreshPlayer(c.Request().Context(), platform, c.Param("username"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, player)
}

func (h *Handler) recentSnapshots(c httpx.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	players, err := h.service.RecentSnapshots(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	if players == nil {
		players = []Player{}
	}
	return c.JSON(httpx.StatusOK, players)
}

// statsReporter is the in-memory store's synchronous stats surface.
type statsReporter interface {
	Stats() cache.Stats
}

// contextStatsReporter is the networked variant that has to round-trip.
type contextStatsReporter interface {
	Stats(ctx context.Context) (cache.Stats, error)
}

type statsResetter interface {
	ResetStats()
}

func (h *Handler) cacheStats(c httpx.Context) error {
	switch store := h.cache.(type) {
	case statsReporter:
		return c.JSON(httpx.StatusOK, store.Stats())
	case contextStatsReporter:
		stats, err := store.Stats(c.Request().Context())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(httpx.StatusOK, stats)
	default:
		return httpx.HTTPError(httpx.StatusNotFound, "cache store does not report stats")
	}
}

func (h *Handler) resetCacheStats(c httpx.Context) error {
	store, ok := h.cache.(statsResetter)
	if !ok {
		return httpx.HTTPError(httpx.StatusNotFound, "cache store does not report stats")
	}
	store.ResetStats()
	return c.NoContent(httpx.StatusNoContent)
}

func (h *Handler) clearCache(c httpx.Context) error {
	removed, err := h.cache.Clear(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, map[string]int{"removed": removed})
}

func (h *Handler) deleteCachePattern(c httpx.Context) error {
	pattern := c.QueryParam("pattern")
	if pattern == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, "pattern query parameter is required")
	}
	removed, err := h.cache.DeletePattern(c.Request().Context(), pattern)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, map[string]int{"removed": removed})
}

func (h *Handler) invalidatePlatform(c httpx.Context) error {
	platform, err := ParsePlatform(c.Param("platform"))
	if err != nil {
		return httpError(err)
	}
	removed, err := h.service.InvalidatePlatform(c.Request().Context(), platform)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, map[string]int{"removed": removed})
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownPlatform):
		return httpx.HTTPError(httpx.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnsupported):
		return httpx.HTTPError(httpx.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPlayerNotFound), errors.Is(err, ErrTournamentNotFound):
		return httpx.HTTPError(httpx.StatusNotFound, err.Error())
	default:
		return httpx.HTTPError(httpx.StatusInternalError, err.Error())
	}
}
