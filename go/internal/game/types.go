package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/gamestate"
	"github.com/mcdev12/econempire/go/internal/models"
)

// TimerState is the server view of a running round timer.
type TimerState struct {
	Round            int       `json:"round"`
	TimeRemainingSec int       `json:"time_remaining_sec"`
	Deadline         time.Time `json:"deadline"`
	Expired          bool      `json:"expired"`
}

func timerState(t gamestate.RoundTimer, now time.Time) *TimerState {
	return &TimerState{
		Round:            t.Round,
		TimeRemainingSec: t.RemainingSeconds(now),
		Deadline:         t.Deadline,
		Expired:          t.Expired,
	}
}

// Snapshot is the full operator view of a game.
type Snapshot struct {
	Game        *models.Game             `json:"game"`
	Rounds      []models.Round           `json:"rounds"`
	Production  []models.ProductionEntry `json:"production"`
	Demand      []models.DemandEntry     `json:"demand"`
	TariffRates []models.TariffRate      `json:"tariff_rates"`
	Timer       *TimerState              `json:"timer,omitempty"`
}

// PlayerView is what one country may see: its own production and demand and
// the rates applied to the products it imports, up to the current round.
type PlayerView struct {
	Game        *models.Game             `json:"game"`
	Country     string                   `json:"country"`
	Production  []models.ProductionEntry `json:"production"`
	Demand      []models.DemandEntry     `json:"demand"`
	TariffRates []models.TariffRate      `json:"tariff_rates"`
	Timer       *TimerState              `json:"timer,omitempty"`
}

// State is the response of a full-state pull. Exactly one field is set.
type State struct {
	Snapshot   *Snapshot   `json:"snapshot,omitempty"`
	PlayerView *PlayerView `json:"player_view,omitempty"`
}

// CreateGameRequest describes a new game. Zero TotalRounds uses the configured default.
type CreateGameRequest struct {
	TotalRounds int `json:"total_rounds"`
}

// GameSummary is a row of the game list.
type GameSummary struct {
	ID           uuid.UUID         `json:"id"`
	Status       models.GameStatus `json:"status"`
	CurrentRound int               `json:"current_round"`
	TotalRounds  int               `json:"total_rounds"`
	CreatedAt    time.Time         `json:"created_at"`
}
