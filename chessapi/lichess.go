package chessapi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chesspulse/chesspulse/chess"
	"github.com/chesspulse/chesspulse/httpx"
)

const lichessBaseURL = "https://lichess.org"

// Lichess talks to the Lichess public API.
type Lichess struct {
	http *httpx.Client
}

// NewLichess builds a Lichess client; options override the default base URL
// and timeout (tests point it at a stub server).
func NewLichess(opts ...httpx.ClientOption) *Lichess {
	return &Lichess{http: newClient(lichessBaseURL, opts)}
}

type lichessPerf struct {
	Rating int `json:"rating"`
}

type lichessUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Title    string `json:"title"`
	Profile  struct {
		RealName string `json:"realName"`
		Flag     string `json:"flag"`
	} `json:"profile"`
	Perfs map[string]lichessPerf `json:"perfs"`
}

func (u lichessUser) toPlayer() chess.Player {
	ratings := make(map[string]int, len(u.Perfs))
	for perf, p := range u.Perfs {
		if p.Rating > 0 {
			ratings[normalizeCategory(perf)] = p.Rating
		}
	}
	return chess.Player{
		Platform:   chess.PlatformLichess,
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Profile.RealName,
		Title:      u.Title,
		Federation: u.Profile.Flag,
		Ratings:    ratings,
		FetchedAt:  time.Now().UTC(),
	}
}

// Player fetches a user profile.
func (l *Lichess) Player(ctx context.Context, username string) (chess.Player, error) {
	var payload lichessUser
	resp, err := l.http.Get(ctx, "/api/user/"+username, &payload)
	if err != nil {
		if isNotFound(resp) {
			return chess.Player{}, chess.ErrPlayerNotFound
		}
		return chess.Player{}, fmt.Errorf("lichess: player %s: %w", username, err)
	}
	return payload.toPlayer(), nil
}

// Rankings fetches the top players for one perf type.
func (l *Lichess) Rankings(ctx context.Context, category string, limit int) ([]chess.RankingEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 10
	}
	var payload struct {
		Users []lichessUser `json:"users"`
	}
	path := "/api/player/top/" + strconv.Itoa(limit) + "/" + category
	if _, err := l.http.Get(ctx, path, &payload); err != nil {
		return nil, fmt.Errorf("lichess: rankings %s: %w", category, err)
	}
	entries := make([]chess.RankingEntry, 0, len(payload.Users))
	for i, u := range payload.Users {
		entries = append(entries, chess.RankingEntry{
			Rank:     i + 1,
			Username: u.Username,
			Title:    u.Title,
			Rating:   u.Perfs[category].Rating,
			Category: normalizeCategory(category),
		})
	}
	return entries, nil
}

type lichessTournament struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	NbPlayers  int    `json:"nbPlayers"`
	StartsAt   int64  `json:"startsAt"`
	IsStarted  bool   `json:"isStarted"`
	IsFinished bool   `json:"isFinished"`
}

func (t lichessTournament) toTournament() chess.Tournament {
	out := chess.Tournament{
		Platform: chess.PlatformLichess,
		ID:       t.ID,
		Name:     t.FullName,
		Players:  t.NbPlayers,
		Status:   chess.TournamentUpcoming,
	}
	if t.StartsAt > 0 {
		starts := time.UnixMilli(t.StartsAt).UTC()
		out.StartsAt = &starts
	}
	switch {
	case t.IsFinished:
		out.Status = chess.TournamentCompleted
	case t.IsStarted:
		out.Status = chess.TournamentOngoing
	}
	return out
}

// Tournament fetches one arena tournament.
func (l *Lichess) Tournament(ctx context.Context, id string) (chess.Tournament, error) {
	var payload lichessTournament
	resp, err := l.http.Get(ctx, "/api/tournament/"+id, &payload)
	if err != nil {
		if isNotFound(resp) {
			return chess.Tournament{}, chess.ErrTournamentNotFound
		}
		return chess.Tournament{}, fmt.Errorf("lichess: tournament %s: %w", id, err)
	}
	return payload.toTournament(), nil
}

// CurrentTournaments lists the arenas that are running right now.
func (l *Lichess) CurrentTournaments(ctx context.Context) ([]chess.Tournament, error) {
	var payload struct {
		Started []lichessTournament `json:"started"`
	}
	if _, err := l.http.Get(ctx, "/api/tournament", &payload); err != nil {
		return nil, fmt.Errorf("lichess: current tournaments: %w", err)
	}
	out := make([]chess.Tournament, 0, len(payload.Started))
	for _, t := range payload.Started {
		nt := t.toTournament()
		nt.Status = chess.TournamentOngoing
		out = append(out, nt)
	}
	return out, nil
}

// normalizeCategory maps platform perf names onto the domain rating
// categories; lichess calls long time control "classical".
func normalizeCategory(category string) string {
	if category == "classical" {
		return "standard"
	}
	return category
}
