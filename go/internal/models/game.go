package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus defines the lifecycle status of a game.
type GameStatus string

const (
	GameStatusWaiting GameStatus = "waiting"
	GameStatusActive  GameStatus = "active"
	// GameStatusPaused is reserved; no operation transitions into it.
	GameStatusPaused GameStatus = "paused"
	GameStatusEnded  GameStatus = "ended"
)

// GameSettings holds the JSONB configuration snapshot taken when a game is created.
type GameSettings struct {
	Countries        []string `json:"countries"`
	Products         []string `json:"products"`
	RoundDurationSec int      `json:"round_duration_sec"`
}

// HasCountry reports whether country takes part in the game.
func (s GameSettings) HasCountry(country string) bool {
	for _, c := range s.Countries {
		if c == country {
			return true
		}
	}
	return false
}

// HasProduct reports whether product is traded in the game.
func (s GameSettings) HasProduct(product string) bool {
	for _, p := range s.Products {
		if p == product {
			return true
		}
	}
	return false
}

// Game represents a single simulation run.
type Game struct {
	ID           uuid.UUID    `json:"id"`
	TotalRounds  int          `json:"total_rounds"`
	CurrentRound int          `json:"current_round"`
	Status       GameStatus   `json:"status"`
	OperatorID   uuid.UUID    `json:"operator_id"`
	Settings     GameSettings `json:"settings"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// AcceptsSubmissions reports whether tariff submissions for round are inside the open window.
func (g *Game) AcceptsSubmissions(round int) bool {
	return g.Status == GameStatusActive && round >= 1 && round == g.CurrentRound
}

// RoundStatus defines the status of a round.
type RoundStatus string

const (
	RoundStatusPending   RoundStatus = "pending"
	RoundStatusActive    RoundStatus = "active"
	RoundStatusCompleted RoundStatus = "completed"
)

// Round is one submission window of a game.
type Round struct {
	GameID      uuid.UUID   `json:"game_id"`
	RoundNumber int         `json:"round_number"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     *time.Time  `json:"end_time,omitempty"`
	Status      RoundStatus `json:"status"`
}
