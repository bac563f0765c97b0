package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GameResult is the final tally of a finished game, one row per session.
type GameResult struct {
	GameID           string
	CreatorIdentity  string
	OpponentIdentity string // empty for single-player games
	CreatorScore     int
	OpponentScore    int
	FinishedAt       time.Time
}

type ResultStore struct {
	db *pgxpool.Pool
}

func NewResultStore(db *pgxpool.Pool) *ResultStore {
	return &ResultStore{db: db}
}

// Record is idempotent: a session finishes once, and replays of the finishing
// action must not produce duplicate rows.
func (s *ResultStore) Record(ctx context.Context, r GameResult) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO game_results (game_id, creator_identity, opponent_identity, creator_score, opponent_score, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id) DO NOTHING
	`, r.GameID, r.CreatorIdentity, r.OpponentIdentity, r.CreatorScore, r.OpponentScore, r.FinishedAt)
	return err
}

func (s *ResultStore) ListByIdentity(ctx context.Context, identity string, limit int) ([]GameResult, error) {
	rows, err := s.db.Query(ctx, `
		SELECT game_id, creator_identity, opponent_identity, creator_score, opponent_score, finished_at
		FROM game_results
		WHERE creator_identity = $1 OR opponent_identity = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`, identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameResult
	for rows.Next() {
		var r GameResult
		if err := rows.Scan(&r.GameID, &r.CreatorIdentity, &r.OpponentIdentity,
			&r.CreatorScore, &r.OpponentScore, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
