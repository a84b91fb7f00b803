package chess

import (
	"context"
	"io"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/chesspulse/chesspulse/cache"
)

// PlatformClient is implemented by the chessapi clients. Operations a
// platform cannot serve return ErrUnsupported.
type PlatformClient interface {
	Player(ctx context.Context, username string) (Player, error)
	Rankings(ctx context.Context, category string, limit int) ([]RankingEntry, error)
	Tournament(ctx context.Context, id string) (Tournament, error)
	CurrentTournaments(ctx context.Context) ([]Tournament, error)
}

// PlayerStore persists normalized player snapshots.
type PlayerStore interface {
	UpsertPlayer(ctx context.Context, p Player) error
	GetPlayer(ctx context.Context, platform Platform, id string) (Player, error)
	RecentPlayers(ctx context.Context, limit int) ([]Player, error)
}

// TournamentStore persists normalized tournaments.
type TournamentStore interface {
	UpsertTournament(ctx context.Context, t Tournament) error
	ListTournaments(ctx context.Context, platform Platform, status TournamentStatus) ([]Tournament, error)
}

// ServiceConfig wires the dependencies required for Service. Repositories
// are optional; without them the service is a pure API passthrough.
type ServiceConfig struct {
	Clients     map[Platform]PlatformClient
	Players     PlayerStore
	Tournaments TournamentStore
	Cache       cache.Store
	Logger      *log.Logger
}

// Service is the thin orchestration layer between HTTP handlers and the
// platform clients: fetch, normalize, best-effort persist, serve.
type Service struct {
	clients     map[Platform]PlatformClient
	players     PlayerStore
	tournaments TournamentStore
	cache       cache.Store
	logger      *log.Logger
}

// NewService builds a Service from its dependencies.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New("chess")
		logger.SetOutput(io.Discard)
	}
	return &Service{
		clients:     cfg.Clients,
		players:     cfg.Players,
		tournaments: cfg.Tournaments,
		cache:       cfg.Cache,
		logger:      logger,
	}
}

func (s *Service) client(platform Platform) (PlatformClient, error) {
	c, ok := s.clients[platform]
	if !ok {
		return nil, ErrUnknownPlatform
	}
	return c, nil
}

// Player fetches a player profile from the platform and records a snapshot
// when a repository is configured. Persistence failures are logged, not
// returned; serving the profile takes priority.
func (s *Service) Player(ctx context.Context, platform Platform, username string) (Player, error) {
	client, err := s.client(platform)
	if err != nil {
		return Player{}, err
	}
	player, err := client.Player(ctx, username)
	if err != nil {
		return Player{}, err
	}
	s.snapshotPlayer(ctx, player)
	return player, nil
}

// Rankings fetches a platform leaderboard.
func (s *Service) Rankings(ctx context.Context, platform Platform, category string, limit int) ([]RankingEntry, error) {
	client, err := s.client(platform)
	if err != nil {
		return nil, err
	}
	return client.Rankings(ctx, category, limit)
}

// Tournament fetches one tournament and records it when a repository is
// configured.
func (s *Service) Tournament(ctx context.Context, platform Platform, id string) (Tournament, error) {
	client, err := s.client(platform)
	if err != nil {
		return Tournament{}, err
	}
	t, err := client.Tournament(ctx, id)
	if err != nil {
		return Tournament{}, err
	}
	if s.tournaments != nil {
		if err := s.tournaments.UpsertTournament(ctx, t); err != nil {
			s.logger.Errorj(log.JSON{"msg": "tournament snapshot failed", "platform": platform, "id": id, "error": err.Error()})
		}
	}
	return t, nil
}

// CurrentTournaments lists a platform's live tournaments.
func (s *Service) CurrentTournaments(ctx context.Context, platform Platform) ([]Tournament, error) {
	client, err := s.client(platform)
	if err != nil {
		return nil, err
	}
	return client.CurrentTournaments(ctx)
}

// RefreshPlayer force-fetches a player, persists the snapshot, and drops
// the cached profile so the next read serves fresh data.
func (s *Service) RefreshPlayer(ctx context.Context, platform Platform, username string) (Player, error) {
	player, err := s.Player(ctx, platform, username)
	if err != nil {
		return Player{}, err
	}
	if s.cache != nil {
		key := cache.PlayerKey(string(platform), username)
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Errorj(log.JSON{"msg": "cache invalidation failed", "key": key, "error": err.Error()})
		}
	}
	return player, nil
}

// InvalidatePlatform drops every cached entry for a platform.
func (s *Service) InvalidatePlatform(ctx context.Context, platform Platform) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	removed := 0
	for _, pattern := range []string{
		"player:" + string(platform) + ":*",
		"tournament:" + string(platform) + ":*",
		"rankings:" + string(platform) + ":*",
		"tournaments:current:" + string(platform),
	} {
		n, err := s.cache.DeletePattern(ctx, pattern)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	s.logger.Infoj(log.JSON{"msg": "platform cache invalidated", "platform": platform, "removed": removed})
	return removed, nil
}

// StoredPlayer returns the last persisted snapshot, independent of the
// platform APIs being reachable.
func (s *Service) StoredPlayer(ctx context.Context, platform Platform, id string) (Player, error) {
	if s.players == nil {
		return Player{}, ErrPlayerNotFound
	}
	return s.players.GetPlayer(ctx, platform, id)
}

// RecentSnapshots lists the newest persisted player snapshots.
func (s *Service) RecentSnapshots(ctx context.Context, limit int) ([]Player, error) {
	if s.players == nil {
		return nil, nil
	}
	return s.players.RecentPlayers(ctx, limit)
}

func (s *Service) snapshotPlayer(ctx context.Context, player Player) {
	if s.players == nil {
		return
	}
	if player.FetchedAt.IsZero() {
		player.FetchedAt = time.Now().UTC()
	}
	if err := s.players.UpsertPlayer(ctx, player); err != nil {
		s.logger.Errorj(log.JSON{"msg": "player snapshot failed", "platform": player.Platform, "username": player.Username, "error": err.Error()})
	}
}
