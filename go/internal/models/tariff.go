package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinTariffRate = 0
	MaxTariffRate = 100
)

// TariffRate is the rate a producing country applies to one product shipped to another country.
type TariffRate struct {
	ID          uuid.UUID  `json:"id"`
	GameID      uuid.UUID  `json:"game_id"`
	RoundNumber int        `json:"round_number"`
	Product     string     `json:"product"`
	FromCountry string     `json:"from_country"`
	ToCountry   string     `json:"to_country"`
	Rate        int        `json:"rate"`
	SubmittedBy *uuid.UUID `json:"submitted_by,omitempty"`
	// SubmitterName is filled by list queries that join users.
	SubmitterName string    `json:"submitter_name,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
