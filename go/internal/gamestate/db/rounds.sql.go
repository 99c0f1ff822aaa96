package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createRound = `-- name: CreateRound :one
INSERT INTO rounds (game_id, round_number, start_time, status)
VALUES ($1, $2, $3, 'active')
RETURNING game_id, round_number, start_time, end_time, status`

type CreateRoundParams struct {
	GameID      uuid.UUID `json:"game_id"`
	RoundNumber int32     `json:"round_number"`
	StartTime   time.Time `json:"start_time"`
}

func (q *Queries) CreateRound(ctx context.Context, arg CreateRoundParams) (Round, error) {
	row := q.db.QueryRowContext(ctx, createRound, arg.GameID, arg.RoundNumber, arg.StartTime)
	var i Round
	err := row.Scan(
		&i.GameID,
		&i.RoundNumber,
		&i.StartTime,
		&i.EndTime,
		&i.Status,
	)
	return i, err
}

const completeActiveRounds = `-- name: CompleteActiveRounds :execrows
UPDATE rounds SET status = 'completed', end_time = $2
WHERE game_id = $1 AND status = 'active'`

type CompleteActiveRoundsParams struct {
	GameID  uuid.UUID `json:"game_id"`
	EndTime time.Time `json:"end_time"`
}

func (q *Queries) CompleteActiveRounds(ctx context.Context, arg CompleteActiveRoundsParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, completeActiveRounds, arg.GameID, arg.EndTime)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listRounds = `-- name: ListRounds :many
SELECT game_id, round_number, start_time, end_time, status
FROM rounds WHERE game_id = $1
ORDER BY round_number`

func (q *Queries) ListRounds(ctx context.Context, gameID uuid.UUID) ([]Round, error) {
	rows, err := q.db.QueryContext(ctx, listRounds, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Round
	for rows.Next() {
		var i Round
		if err := rows.Scan(
			&i.GameID,
			&i.RoundNumber,
			&i.StartTime,
			&i.EndTime,
			&i.Status,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteRounds = `-- name: DeleteRounds :exec
DELETE FROM rounds WHERE game_id = $1`

func (q *Queries) DeleteRounds(ctx context.Context, gameID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteRounds, gameID)
	return err
}
