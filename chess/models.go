// Package chess holds the platform-independent domain model and the
// service façade that orchestrates platform clients, repositories, and the
// response cache.
package chess

import (
	"errors"
	"time"
)

var (
	ErrUnknownPlatform    = errors.New("chess: unknown platform")
	ErrUnsupported        = errors.New("chess: operation not supported by platform")
	ErrPlayerNotFound     = errors.New("chess: player not found")
	ErrTournamentNotFound = errors.New("chess: tournament not found")
)

// Platform identifies a data source.
type Platform string

const (
	PlatformFIDE     Platform = "fide"
	PlatformLichess  Platform = "lichess"
	PlatformChessCom Platform = "chesscom"
)

// ParsePlatform normalizes a route segment into a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformFIDE, PlatformLichess, PlatformChessCom:
		return Platform(s), nil
	default:
		return "", ErrUnknownPlatform
	}
}

// Player is a normalized player profile. Ratings are keyed by category
// ("standard", "rapid", "blitz", "bullet"); platforms that don't track a
// category simply omit it.
type Player struct {
	Platform   Platform       `json:"platform"`
	ID         string         `json:"id"`
	Username   string         `json:"username"`
	Name       string         `json:"name,omitempty"`
	Title      string         `json:"title,omitempty"`
	Federation string         `json:"federation,omitempty"`
	Ratings    map[string]int `json:"ratings"`
	FetchedAt  time.Time      `json:"fetchedAt"`
}

// TournamentStatus is the normalized lifecycle of a tournament.
type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentCompleted TournamentStatus = "completed"
)

// Tournament is a normalized tournament record.
type Tournament struct {
	Platform Platform         `json:"platform"`
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Status   TournamentStatus `json:"status"`
	Rounds   int              `json:"rounds,omitempty"`
	Players  int              `json:"players,omitempty"`
	StartsAt *time.Time       `json:"startsAt,omitempty"`
	EndsAt   *time.Time       `json:"endsAt,omitempty"`
}

// Finished reports whether the tournament can no longer change.
func (t Tournament) Finished() bool { return t.Status == TournamentCompleted }

// RankingEntry is one row of a platform leaderboard.
type RankingEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Title    string `json:"title,omitempty"`
	Rating   int    `json:"rating"`
	Category string `json:"category"`
}
