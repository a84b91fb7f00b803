package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/chesspulse/chesspulse/chess"
)

// TournamentRepository persists normalized tournaments.
type TournamentRepository struct {
	db *sql.DB
}

// NewTournamentRepository wraps an existing *sql.DB connection.
func NewTournamentRepository(db *sql.DB) *TournamentRepository {
	return &TournamentRepository{db: db}
}

// UpsertTournament inserts or replaces the record for (platform, tournament id).
func (r *TournamentRepository) UpsertTournament(ctx context.Context, t chess.Tournament) error {
	const query = `INSERT INTO tournaments (platform, tournament_id, name, status, rounds, players, starts_at, ends_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
                   ON CONFLICT (platform, tournament_id) DO UPDATE SET
                       name = EXCLUDED.name,
                       status = EXCLUDED.status,
                       rounds = EXCLUDED.rounds,
                       players = EXCLUDED.players,
                       starts_at = EXCLUDED.starts_at,
                       ends_at = EXCLUDED.ends_at,
                       updated_at = now()`
	_, err := r.db.ExecContext(ctx, query,
		t.Platform, t.ID, t.Name, t.Status, t.Rounds, t.Players,
		nullTime(t.StartsAt), nullTime(t.EndsAt))
	return translateError(err)
}

// GetTournament returns the stored record for (platform, tournament id).
func (r *TournamentRepository) GetTournament(ctx context.Context, platform chess.Platform, id string) (chess.Tournament, error) {
	const query = `SELECT platform, tournament_id, name, status, rounds, players, starts_at, ends_at
                   FROM tournaments WHERE platform = $1 AND tournament_id = $2`
	t, err := scanTournament(r.db.QueryRowContext(ctx, query, platform, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chess.Tournament{}, chess.ErrTournamentNotFound
		}
		return chess.Tournament{}, translateError(err)
	}
	return t, nil
}

// ListTournaments returns the stored tournaments for a platform, optionally
// filtered by status. An empty status matches every record.
func (r *TournamentRepository) ListTournaments(ctx context.Context, platform chess.Platform, status chess.TournamentStatus) ([]chess.Tournament, error) {
	const query = `SELECT platform, tournament_id, name, status, rounds, players, starts_at, ends_at
                   FROM tournaments
                   WHERE platform = $1 AND ($2 = '' OR status = $2)
                   ORDER BY starts_at DESC NULLS LAST, tournament_id`
	rows, err := r.db.QueryContext(ctx, query, platform, status)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var tournaments []chess.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTournament(row rowScanner) (chess.Tournament, error) {
	var (
		t        chess.Tournament
		startsAt sql.NullTime
		endsAt   sql.NullTime
	)
	err := row.Scan(&t.Platform, &t.ID, &t.Name, &t.Status, &t.Rounds, &t.Players, &startsAt, &endsAt)
	if err != nil {
		return chess.Tournament{}, err
	}
	if startsAt.Valid {
		ts := startsAt.Time
		t.StartsAt = &ts
	}
	if endsAt.Valid {
		ts := endsAt.Time
		t.EndsAt = &ts
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
