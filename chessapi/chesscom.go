package chessapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chesspulse/chesspulse/chess"
	"github.com/chesspulse/chesspulse/httpx"
)

const chessComBaseURL = "https://api.chess.com/pub"

// ChessCom talks to the Chess.com published-data API.
type ChessCom struct {
	http *httpx.Client
}

// NewChessCom builds a Chess.com client.
func NewChessCom(opts ...httpx.ClientOption) *ChessCom {
	return &ChessCom{http: newClient(chessComBaseURL, opts)}
}

// Player fetches the profile and the ratings in two calls; the published
// API splits them across /player and /player/stats.
func (c *ChessCom) Player(ctx context.Context, username string) (chess.Player, error) {
	var profile struct {
		PlayerID int64  `json:"player_id"`
		Username string `json:"username"`
		Name     string `json:"name"`
		Title    string `json:"title"`
		Country  string `json:"country"`
	}
	resp, err := c.http.Get(ctx, "/player/"+username, &profile)
	if err != nil {
		if isNotFound(resp) {
			return chess.Player{}, chess.ErrPlayerNotFound
		}
		return chess.Player{}, fmt.Errorf("chesscom: player %s: %w", username, err)
	}

	var stats map[string]struct {
		Last struct {
			Rating int `json:"rating"`
		} `json:"last"`
	}
	ratings := map[string]int{}
	if _, err := c.http.Get(ctx, "/player/"+username+"/stats", &stats); err == nil {
		for key, s := range stats {
			category, ok := strings.CutPrefix(key, "chess_")
			if !ok || s.Last.Rating <= 0 {
				continue
			}
			ratings[category] = s.Last.Rating
		}
	}

	return chess.Player{
		Platform:   chess.PlatformChessCom,
		ID:         strconv.FormatInt(profile.PlayerID, 10),
		Username:   profile.Username,
		Name:       profile.Name,
		Title:      profile.Title,
		Federation: countryCode(profile.Country),
		Ratings:    ratings,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// Rankings reads one board of /leaderboards; live categories are published
// under a "live_" prefix.
func (c *ChessCom) Rankings(ctx context.Context, category string, limit int) ([]chess.RankingEntry, error) {
	var payload map[string][]struct {
		Username string `json:"username"`
		Title    string `json:"title"`
		Score    int    `json:"score"`
		Rank     int    `json:"rank"`
	}
	if _, err := c.http.Get(ctx, "/leaderboards", &payload); err != nil {
		return nil, fmt.Errorf("chesscom: leaderboards: %w", err)
	}

	board, ok := payload["live_"+category]
	if !ok {
		board, ok = payload[category]
	}
	if !ok {
		return nil, chess.ErrUnsupported
	}
	if limit <= 0 || limit > len(board) {
		limit = len(board)
	}

	entries := make([]chess.RankingEntry, 0, limit)
	for _, row := range board[:limit] {
		entries = append(entries, chess.RankingEntry{
			Rank:     row.Rank,
			Username: row.Username,
			Title:    row.Title,
			Rating:   row.Score,
			Category: category,
		})
	}
	return entries, nil
}

// Tournament fetches one tournament by its URL identifier.
func (c *ChessCom) Tournament(ctx context.Context, id string) (chess.Tournament, error) {
	var payload struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	resp, err := c.http.Get(ctx, "/tournament/"+id, &payload)
	if err != nil {
		if isNotFound(resp) {
			return chess.Tournament{}, chess.ErrTournamentNotFound
		}
		return chess.Tournament{}, fmt.Errorf("chesscom: tournament %s: %w", id, err)
	}

	status := chess.TournamentUpcoming
	switch payload.Status {
	case "finished":
		status = chess.TournamentCompleted
	case "in_progress":
		status = chess.TournamentOngoing
	}
	return chess.Tournament{
		Platform: chess.PlatformChessCom,
		ID:       id,
		Name:     payload.Name,
		Status:   status,
	}, nil
}

// CurrentTournaments is not published by the Chess.com data API.
func (c *ChessCom) CurrentTournaments(context.Context) ([]chess.Tournament, error) {
	return nil, chess.ErrUnsupported
}

// countryCode extracts the ISO code from the country resource URL
// ("https://api.chess.com/pub/country/NO" -> "NO").
func countryCode(url string) string {
	if url == "" {
		return ""
	}
	return url[strings.LastIndex(url, "/")+1:]
}
