package cache

import (
	"strconv"
	"strings"
)

// Key builders compose canonical cache keys from semantic dimensions.
// Two semantically identical inputs always yield byte-identical keys, and
// distinct inputs never collide because every dimension occupies a fixed
// colon-separated position.

// PlayerKey identifies a player profile on a platform.
func PlayerKey(platform, id string) string {
	return join("player", platform, id)
}

// TournamentKey identifies a tournament on a platform.
func TournamentKey(platform, id string) string {
	return join("tournament", platform, id)
}

// TournamentRoundKey identifies a single round of a tournament.
func TournamentRoundKey(platform, id, round string) string {
	return join("tournament", platform, id, "round", round)
}

// RankingsKey identifies a ranking list. limit <= 0 omits the count segment.
func RankingsKey(platform, category string, limit int) string {
	if limit > 0 {
		return join("rankings", platform, category, strconv.Itoa(limit))
	}
	return join("rankings", platform, category)
}

// CurrentTournamentsKey is the singleton key for a platform's live
// tournament list.
func CurrentTournamentsKey(platform string) string {
	return join("tournaments", "current", platform)
}

func join(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ":")
}
