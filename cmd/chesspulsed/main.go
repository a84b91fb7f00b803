// Command chesspulsed serves the chess statistics API.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/chesspulse/chesspulse/auth"
	"github.com/chesspulse/chesspulse/cache"
	"github.com/chesspulse/chesspulse/cache/memory"
	"github.com/chesspulse/chesspulse/cache/redis"
	"github.com/chesspulse/chesspulse/chess"
	"github.com/chesspulse/chesspulse/chessapi"
	"github.com/chesspulse/chesspulse/db/sql/postgres"
	"github.com/chesspulse/chesspulse/httpx"
	"github.com/chesspulse/chesspulse/metrics"
)

func main() {
	logger := log.New("chesspulsed")
	logger.SetLevel(log.INFO)

	addr := getEnv("ADDR", ":8080")
	playerTTL := getEnvDuration("CACHE_PLAYER_TTL", httpx.DefaultCacheTTL)
	rankingsTTL := getEnvDuration("CACHE_RANKINGS_TTL", httpx.DefaultCacheTTL)
	liveTTL := getEnvDuration("CACHE_LIVE_TTL", httpx.DefaultLiveTTL)
	sessionTTL := getEnvDuration("ADMIN_SESSION_TTL", time.Hour)
	adminPasswordHash := os.Getenv("ADMIN_PASSWORD_HASH")

	m := metrics.NewMetrics("chesspulse")

	var store cache.Store
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		store = redis.NewStore(redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		})
		logger.Infoj(log.JSON{"msg": "using redis cache", "addr": redisAddr})
	} else {
		store = memory.NewStore(
			memory.WithLogger(log.New("cache")),
			memory.WithMetrics(m),
		)
		logger.Info("using in-memory cache")
	}

	clients := map[chess.Platform]chess.PlatformClient{
		chess.PlatformFIDE:     chessapi.NewFIDE(),
		chess.PlatformLichess:  chessapi.NewLichess(),
		chess.PlatformChessCom: chessapi.NewChessCom(),
	}

	cfg := chess.ServiceConfig{
		Clients: clients,
		Cache:   store,
		Logger:  log.New("chess"),
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := postgres.Open(context.Background(), postgres.WithDSN(dsn))
		if err != nil {
			logger.Fatalj(log.JSON{"msg": "postgres connection failed", "error": err.Error()})
		}
		defer db.Close()
		if err := postgres.ApplyMigrations(context.Background(), db, postgres.Schema()...); err != nil {
			logger.Fatalj(log.JSON{"msg": "migrations failed", "error": err.Error()})
		}
		cfg.Players = postgres.NewPlayerRepository(db)
		cfg.Tournaments = postgres.NewTournamentRepository(db)
		logger.Info("postgres snapshots enabled")
	} else {
		logger.Info("DATABASE_URL not set; snapshots disabled")
	}
	service := chess.NewService(cfg)

	var sessions *auth.SessionStore
	if adminPasswordHash != "" {
		sessions = auth.NewSessionStore(store, auth.SessionStoreOptions{DefaultTTL: sessionTTL})
	} else {
		logger.Warn("ADMIN_PASSWORD_HASH not set; admin routes disabled")
	}

	handler := chess.NewHandler(chess.HandlerConfig{
		Service:           service,
		Cache:             store,
		Sessions:          sessions,
		AdminPasswordHash: adminPasswordHash,
		PlayerTTL:         playerTTL,
		RankingsTTL:       rankingsTTL,
		LiveTTL:           liveTTL,
		Metrics:           m.Handler(),
	})

	server := httpx.NewServer(
		httpx.WithAddress(addr),
		httpx.AppendMiddlewares(m.Middleware()),
	)
	server.RegisterRoutes(handler.Register)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infoj(log.JSON{"msg": "starting server", "addr": addr})
	if err := server.Start(ctx); err != nil && err != context.Canceled {
		logger.Fatalj(log.JSON{"msg": "server stopped", "error": err.Error()})
	}
	logger.Info("shutdown complete")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
