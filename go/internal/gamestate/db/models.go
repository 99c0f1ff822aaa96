package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Game struct {
	ID           uuid.UUID             `json:"id"`
	TotalRounds  int32                 `json:"total_rounds"`
	CurrentRound int32                 `json:"current_round"`
	Status       string                `json:"status"`
	OperatorID   uuid.UUID             `json:"operator_id"`
	Settings     pqtype.NullRawMessage `json:"settings"`
	StartedAt    sql.NullTime          `json:"started_at"`
	EndedAt      sql.NullTime          `json:"ended_at"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type Round struct {
	GameID      uuid.UUID    `json:"game_id"`
	RoundNumber int32        `json:"round_number"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     sql.NullTime `json:"end_time"`
	Status      string       `json:"status"`
}

type Production struct {
	GameID   uuid.UUID `json:"game_id"`
	Country  string    `json:"country"`
	Product  string    `json:"product"`
	Quantity int32     `json:"quantity"`
}

type Demand struct {
	GameID   uuid.UUID `json:"game_id"`
	Country  string    `json:"country"`
	Product  string    `json:"product"`
	Quantity int32     `json:"quantity"`
}
