package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"

	"github.com/chesspulse/chesspulse/chess"
)

// PlayerRepository persists chess.Player snapshots inside PostgreSQL.
type PlayerRepository struct {
	db *sql.DB
}

// NewPlayerRepository wraps an existing *sql.DB connection.
func NewPlayerRepository(db *sql.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// UpsertPlayer inserts or replaces the snapshot for (platform, player id).
func (r *PlayerRepository) UpsertPlayer(ctx context.Context, p chess.Player) error {
	const query = `INSERT INTO player_snapshots (platform, player_id, username, name, title, federation, ratings, fetched_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                   ON CONFLICT (platform, player_id) DO UPDATE SET
                       username = EXCLUDED.username,
                       name = EXCLUDED.name,
                       title = EXCLUDED.title,
                       federation = EXCLUDED.federation,
                       ratings = EXCLUDED.ratings,
                       fetched_at = EXCLUDED.fetched_at`
	ratingsJSON, err := json.Marshal(p.Ratings)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, p.Platform, p.ID, p.Username, p.Name, p.Title, p.Federation, ratingsJSON, p.FetchedAt)
	return translateError(err)
}

// GetPlayer returns the latest snapshot for (platform, player id).
func (r *PlayerRepository) GetPlayer(ctx context.Context, platform chess.Platform, id string) (chess.Player, error) {
	const query = `SELECT platform, player_id, username, name, title, federation, ratings, fetched_at
                   FROM player_snapshots WHERE platform = $1 AND player_id = $2`
	var (
		player      chess.Player
		ratingsJSON []byte
	)
	err := r.db.QueryRowContext(ctx, query, platform, id).Scan(
		&player.Platform,
		&player.ID,
		&player.Username,
		&player.Name,
		&player.Title,
		&player.Federation,
		&ratingsJSON,
		&player.FetchedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chess.Player{}, chess.ErrPlayerNotFound
		}
		return chess.Player{}, translateError(err)
	}
	if len(ratingsJSON) > 0 {
		if err := json.Unmarshal(ratingsJSON, &player.Ratings); err != nil {
			return chess.Player{}, err
		}
	}
	return player, nil
}

// RecentPlayers returns the most recently fetched snapshots across all
// platforms, newest first.
func (r *PlayerRepository) RecentPlayers(ctx context.Context, limit int) ([]chess.Player, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT platform, player_id, username, name, title, federation, ratings, fetched_at
                   FROM player_snapshots ORDER BY fetched_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var players []chess.Player
	for rows.Next() {
		var (
			player      chess.Player
			ratingsJSON []byte
		)
		err := rows.Scan(&player.Platform, &player.ID, &player.Username, &player.Name,
			&player.Title, &player.Federation, &ratingsJSON, &player.FetchedAt)
		if err != nil {
			return nil, err
		}
		if len(ratingsJSON) > 0 {
			if err := json.Unmarshal(ratingsJSON, &player.Ratings); err != nil {
				return nil, err
			}
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
		return chess.ErrPlayerNotFound
	}
	return err
}
