package chessapi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chesspulse/chesspulse/chess"
	"github.com/chesspulse/chesspulse/httpx"
)

// FIDE has no official API; this client targets the community ratings
// mirror, which republishes the monthly rating lists as JSON.
const fideBaseURL = "https://fide-api.vercel.app"

// FIDE reads FIDE rating data from the community mirror.
type FIDE struct {
	http *httpx.Client
}

// NewFIDE builds a FIDE client.
func NewFIDE(opts ...httpx.ClientOption) *FIDE {
	return &FIDE{http: newClient(fideBaseURL, opts)}
}

type fideProfile struct {
	FideID     int64  `json:"fide_id"`
	Name       string `json:"name"`
	Federation string `json:"federation"`
	Title      string `json:"title"`
	Standard   int    `json:"standard_rating"`
	Rapid      int    `json:"rapid_rating"`
	Blitz      int    `json:"blitz_rating"`
}

func (p fideProfile) toPlayer() chess.Player {
	ratings := map[string]int{}
	for category, rating := range map[string]int{"standard": p.Standard, "rapid": p.Rapid, "blitz": p.Blitz} {
		if rating > 0 {
			ratings[category] = rating
		}
	}
	id := strconv.FormatInt(p.FideID, 10)
	return chess.Player{
		Platform:   chess.PlatformFIDE,
		ID:         id,
		Username:   id, // FIDE identifies players by number, not handle
		Name:       p.Name,
		Title:      p.Title,
		Federation: p.Federation,
		Ratings:    ratings,
		FetchedAt:  time.Now().UTC(),
	}
}

// Player fetches a profile by FIDE id.
func (f *FIDE) Player(ctx context.Context, id string) (chess.Player, error) {
	var payload fideProfile
	resp, err := f.http.Get(ctx, "/player/"+id, &payload)
	if err != nil {
		if isNotFound(resp) {
			return chess.Player{}, chess.ErrPlayerNotFound
		}
		return chess.Player{}, fmt.Errorf("fide: player %s: %w", id, err)
	}
	return payload.toPlayer(), nil
}

// Rankings fetches a top list for one rating category.
func (f *FIDE) Rankings(ctx context.Context, category string, limit int) ([]chess.RankingEntry, error) {
	var payload []fideProfile
	opts := []httpx.RequestOption{}
	if limit > 0 {
		opts = append(opts, httpx.WithQuery(map[string]string{"limit": strconv.Itoa(limit)}))
	}
	if _, err := f.http.Get(ctx, "/top/"+category, &payload, opts...); err != nil {
		return nil, fmt.Errorf("fide: rankings %s: %w", category, err)
	}

	entries := make([]chess.RankingEntry, 0, len(payload))
	for i, p := range payload {
		player := p.toPlayer()
		entries = append(entries, chess.RankingEntry{
			Rank:     i + 1,
			Username: player.Name,
			Title:    player.Title,
			Rating:   player.Ratings[category],
			Category: category,
		})
	}
	return entries, nil
}

// Tournament data is not part of the rating lists.
func (f *FIDE) Tournament(context.Context, string) (chess.Tournament, error) {
	return chess.Tournament{}, chess.ErrUnsupported
}

// CurrentTournaments is not part of the rating lists.
func (f *FIDE) CurrentTournaments(context.Context) ([]chess.Tournament, error) {
	return nil, chess.ErrUnsupported
}
