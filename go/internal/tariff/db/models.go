package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type TariffRate struct {
	ID          uuid.UUID     `json:"id"`
	GameID      uuid.UUID     `json:"game_id"`
	RoundNumber int32         `json:"round_number"`
	Product     string        `json:"product"`
	FromCountry string        `json:"from_country"`
	ToCountry   string        `json:"to_country"`
	Rate        int32         `json:"rate"`
	SubmittedBy uuid.NullUUID `json:"submitted_by"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

type ListTariffRatesRow struct {
	TariffRate
	SubmitterName sql.NullString `json:"submitter_name"`
}

type UpsertTariffRateRow struct {
	TariffRate
	Inserted bool `json:"inserted"`
}
