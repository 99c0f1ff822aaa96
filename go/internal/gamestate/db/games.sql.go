package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const gameColumns = `id, total_rounds, current_round, status, operator_id, settings, started_at, ended_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGame(row rowScanner) (Game, error) {
	var i Game
	err := row.Scan(
		&i.ID,
		&i.TotalRounds,
		&i.CurrentRound,
		&i.Status,
		&i.OperatorID,
		&i.Settings,
		&i.StartedAt,
		&i.EndedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createGame = `-- name: CreateGame :one
INSERT INTO games (id, total_rounds, current_round, status, operator_id, settings, created_at, updated_at)
VALUES ($1, $2, 0, 'waiting', $3, $4, $5, $5)
RETURNING ` + gameColumns

type CreateGameParams struct {
	ID          uuid.UUID             `json:"id"`
	TotalRounds int32                 `json:"total_rounds"`
	OperatorID  uuid.UUID             `json:"operator_id"`
	Settings    pqtype.NullRawMessage `json:"settings"`
	CreatedAt   time.Time             `json:"created_at"`
}

func (q *Queries) CreateGame(ctx context.Context, arg CreateGameParams) (Game, error) {
	row := q.db.QueryRowContext(ctx, createGame,
		arg.ID,
		arg.TotalRounds,
		arg.OperatorID,
		arg.Settings,
		arg.CreatedAt,
	)
	return scanGame(row)
}

const getGame = `-- name: GetGame :one
SELECT ` + gameColumns + ` FROM games WHERE id = $1`

func (q *Queries) GetGame(ctx context.Context, id uuid.UUID) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, getGame, id))
}

const getGameForUpdate = `-- name: GetGameForUpdate :one
SELECT ` + gameColumns + ` FROM games WHERE id = $1 FOR UPDATE`

func (q *Queries) GetGameForUpdate(ctx context.Context, id uuid.UUID) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, getGameForUpdate, id))
}

const listGames = `-- name: ListGames :many
SELECT ` + gameColumns + ` FROM games ORDER BY created_at DESC`

func (q *Queries) ListGames(ctx context.Context) ([]Game, error) {
	rows, err := q.db.QueryContext(ctx, listGames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Game
	for rows.Next() {
		i, err := scanGame(rows)
		if err != nil {
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

const startGame = `-- name: StartGame :one
UPDATE games
SET status = 'active', current_round = 1, started_at = $2, ended_at = NULL, updated_at = $2
WHERE id = $1 AND status = 'waiting'
RETURNING ` + gameColumns

type StartGameParams struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

func (q *Queries) StartGame(ctx context.Context, arg StartGameParams) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, startGame, arg.ID, arg.StartedAt))
}

const advanceGameRound = `-- name: AdvanceGameRound :one
UPDATE games
SET current_round = current_round + 1, updated_at = $3
WHERE id = $1 AND status = 'active' AND current_round = $2 AND current_round < total_rounds
RETURNING ` + gameColumns

type AdvanceGameRoundParams struct {
	ID           uuid.UUID `json:"id"`
	CurrentRound int32     `json:"current_round"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (q *Queries) AdvanceGameRound(ctx context.Context, arg AdvanceGameRoundParams) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, advanceGameRound, arg.ID, arg.CurrentRound, arg.UpdatedAt))
}

const endGame = `-- name: EndGame :one
UPDATE games
SET status = 'ended', ended_at = $2, updated_at = $2
WHERE id = $1 AND status = 'active'
RETURNING ` + gameColumns

type EndGameParams struct {
	ID      uuid.UUID `json:"id"`
	EndedAt time.Time `json:"ended_at"`
}

func (q *Queries) EndGame(ctx context.Context, arg EndGameParams) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, endGame, arg.ID, arg.EndedAt))
}

const resetGame = `-- name: ResetGame :one
UPDATE games
SET status = 'waiting', current_round = 0, started_at = NULL, ended_at = NULL, updated_at = $2
WHERE id = $1
RETURNING ` + gameColumns

type ResetGameParams struct {
	ID        uuid.UUID `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Queries) ResetGame(ctx context.Context, arg ResetGameParams) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, resetGame, arg.ID, arg.UpdatedAt))
}
