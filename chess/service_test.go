package chess

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chesspulse/chesspulse/cache"
	"github.com/chesspulse/chesspulse/cache/memory"
)

type fakeClient struct {
	player      Player
	playerErr   error
	rankings    []RankingEntry
	tournament  Tournament
	tournaments []Tournament
	playerCalls int
}

func (f *fakeClient) Player(ctx context.Context, username string) (Player, error) {
	f.playerCalls++
	return f.player, f.playerErr
}

func (f *fakeClient) Rankings(ctx context.Context, category string, limit int) ([]RankingEntry, error) {
	return f.rankings, nil
}

func (f *fakeClient) Tournament(ctx context.Context, id string) (Tournament, error) {
	return f.tournament, nil
}

func (f *fakeClient) CurrentTournaments(ctx context.Context) ([]Tournament, error) {
	return f.tournaments, nil
}

type fakePlayerStore struct {
	upserts []Player
	stored  map[string]Player
	err     error
}

func (f *fakePlayerStore) UpsertPlayer(ctx context.Context, p Player) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, p)
	return nil
}

func (f *fakePlayerStore) GetPlayer(ctx context.Context, platform Platform, id string) (Player, error) {
	p, ok := f.stored[string(platform)+":"+id]
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	return p, nil
}

func (f *fakePlayerStore) RecentPlayers(ctx context.Context, limit int) ([]Player, error) {
	if limit > 0 && limit < len(f.upserts) {
		return f.upserts[:limit], nil
	}
	return f.upserts, nil
}

type fakeTournamentStore struct {
	upserts []Tournament
}

func (f *fakeTournamentStore) UpsertTournament(ctx context.Context, t Tournament) error {
	f.upserts = append(f.upserts, t)
	return nil
}

func (f *fakeTournamentStore) ListTournaments(ctx context.Context, platform Platform, status TournamentStatus) ([]Tournament, error) {
	return f.upserts, nil
}

func TestServicePlayerRecordsSnapshot(t *testing.T) {
	client := &fakeClient{player: Player{Platform: PlatformLichess, ID: "magnus", Username: "magnus"}}
	players := &fakePlayerStore{}
	svc := NewService(ServiceConfig{
		Clients: map[Platform]PlatformClient{PlatformLichess: client},
		Players: players,
	})

	player, err := svc.Player(context.Background(), PlatformLichess, "magnus")
	if err != nil {
		t.Fatalf("Player() error = %v", err)
	}
	if player.Username != "magnus" {
		t.Fatalf("username = %q", player.Username)
	}
	if len(players.upserts) != 1 {
		t.Fatalf("snapshot upserts = %d, want 1", len(players.upserts))
	}
	if players.upserts[0].FetchedAt.IsZero() {
		t.Fatal("snapshot fetchedAt not set")
	}
}

func TestServicePlayerSnapshotFailureIsNotFatal(t *testing.T) {
	client := &fakeClient{player: Player{Platform: PlatformLichess, Username: "magnus"}}
	players := &fakePlayerStore{err: errors.New("db down")}
	svc := NewService(ServiceConfig{
		Clients: map[Platform]PlatformClient{PlatformLichess: client},
		Players: players,
	})

	if _, err := svc.Player(context.Background(), PlatformLichess, "magnus"); err != nil {
		t.Fatalf("Player() error = %v, want nil despite snapshot failure", err)
	}
}

func TestServiceUnknownPlatform(t *testing.T) {
	svc := NewService(ServiceConfig{Clients: map[Platform]PlatformClient{}})

	if _, err := svc.Player(context.Background(), Platform("icc"), "x"); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("Player() error = %v, want ErrUnknownPlatform", err)
	}
	if _, err := svc.Rankings(context.Background(), Platform("icc"), "blitz", 10); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("Rankings() error = %v, want ErrUnknownPlatform", err)
	}
}

func TestServiceTournamentPersists(t *testing.T) {
	client := &fakeClient{tournament: Tournament{Platform: PlatformLichess, ID: "arena", Status: TournamentOngoing}}
	tournaments := &fakeTournamentStore{}
	svc := NewService(ServiceConfig{
		Clients:     map[Platform]PlatformClient{PlatformLichess: client},
		Tournaments: tournaments,
	})

	got, err := svc.Tournament(context.Background(), PlatformLichess, "arena")
	if err != nil {
		t.Fatalf("Tournament() error = %v", err)
	}
	if got.ID != "arena" {
		t.Fatalf("tournament id = %q", got.ID)
	}
	if len(tournaments.upserts) != 1 {
		t.Fatalf("tournament upserts = %d, want 1", len(tournaments.upserts))
	}
}

func TestRefreshPlayerDropsCachedProfile(t *testing.T) {
	client := &fakeClient{player: Player{Platform: PlatformLichess, Username: "magnus"}}
	store := memory.NewStore()
	svc := NewService(ServiceConfig{
		Clients: map[Platform]PlatformClient{PlatformLichess: client},
		Cache:   store,
	})

	ctx := context.Background()
	key := cache.PlayerKey("lichess", "magnus")
	if err := store.Set(ctx, key, []byte(`{"stale":true}`), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := svc.RefreshPlayer(ctx, PlatformLichess, "magnus"); err != nil {
		t.Fatalf("RefreshPlayer() error = %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("cached profile survived refresh: %v", err)
	}
	if client.playerCalls != 1 {
		t.Fatalf("playerCalls = %d, want 1", client.playerCalls)
	}
}

func TestInvalidatePlatform(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(ServiceConfig{Cache: store})

	ctx := context.Background()
	seed := map[string]string{
		cache.PlayerKey("lichess", "magnus"):      `{}`,
		cache.TournamentKey("lichess", "arena"):   `{}`,
		cache.RankingsKey("lichess", "blitz", 50): `{}`,
		cache.CurrentTournamentsKey("lichess"):    `{}`,
		cache.PlayerKey("chesscom", "hikaru"):     `{}`,
	}
	for key, value := range seed {
		if err := store.Set(ctx, key, []byte(value), cache.Forever); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	removed, err := svc.InvalidatePlatform(ctx, PlatformLichess)
	if err != nil {
		t.Fatalf("InvalidatePlatform() error = %v", err)
	}
	if removed != 4 {
		t.Fatalf("removed = %d, want 4", removed)
	}
	if _, err := store.Get(ctx, cache.PlayerKey("chesscom", "hikaru")); err != nil {
		t.Fatalf("other platform entry removed: %v", err)
	}
}

func TestStoredPlayerWithoutRepository(t *testing.T) {
	svc := NewService(ServiceConfig{})
	if _, err := svc.StoredPlayer(context.Background(), PlatformFIDE, "123"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("StoredPlayer() error = %v, want ErrPlayerNotFound", err)
	}
}

func TestParsePlatform(t *testing.T) {
	for _, valid := range []string{"fide", "lichess", "chesscom"} {
		if _, err := ParsePlatform(valid); err != nil {
			t.Errorf("ParsePlatform(%q) error = %v", valid, err)
		}
	}
	if _, err := ParsePlatform("icc"); !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("ParsePlatform(icc) error = %v, want ErrUnknownPlatform", err)
	}
}
