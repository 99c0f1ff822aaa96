package tariff

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/models"
)

// Action tells whether a submission created or replaced a rate.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Change is one requested rate for a product shipped to a country.
type Change struct {
	Product   string `json:"product"`
	ToCountry string `json:"to_country"`
	Rate      int    `json:"rate"`
}

// SubmitRequest is a batch of changes from one player for one round.
type SubmitRequest struct {
	GameID      uuid.UUID
	RoundNumber int
	Submitter   models.Identity
	Changes     []Change
}

// ChangeResult reports the outcome of a single change. Rate is the value
// actually stored, which differs from the request for self tariffs.
type ChangeResult struct {
	Product   string      `json:"product"`
	ToCountry string      `json:"to_country"`
	Rate      int         `json:"rate"`
	Success   bool        `json:"success"`
	Action    Action      `json:"action,omitempty"`
	ErrorKind apperr.Kind `json:"error_kind,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// SubmitResult holds one ChangeResult per requested change, in request order.
type SubmitResult struct {
	GameID      uuid.UUID      `json:"game_id"`
	RoundNumber int            `json:"round_number"`
	FromCountry string         `json:"from_country"`
	Results     []ChangeResult `json:"results"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
}

// RateFilter narrows a rate listing. Zero values do not filter.
type RateFilter struct {
	RoundNumber *int     `json:"round_number,omitempty"`
	MaxRound    *int     `json:"max_round,omitempty"`
	Product     string   `json:"product,omitempty"`
	FromCountry string   `json:"from_country,omitempty"`
	ToCountry   string   `json:"to_country,omitempty"`
	Products    []string `json:"products,omitempty"`
}

// Matches reports whether rate passes the filter.
func (f RateFilter) Matches(rate models.TariffRate) bool {
	if f.RoundNumber != nil && rate.RoundNumber != *f.RoundNumber {
		return false
	}
	if f.MaxRound != nil && rate.RoundNumber > *f.MaxRound {
		return false
	}
	if f.Product != "" && rate.Product != f.Product {
		return false
	}
	if f.FromCountry != "" && rate.FromCountry != f.FromCountry {
		return false
	}
	if f.ToCountry != "" && rate.ToCountry != f.ToCountry {
		return false
	}
	if f.Products != nil {
		found := false
		for _, p := range f.Products {
			if p == rate.Product {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// UpsertParams is one rate write.
type UpsertParams struct {
	GameID      uuid.UUID
	RoundNumber int
	Product     string
	FromCountry string
	ToCountry   string
	Rate        int
	SubmittedBy uuid.UUID
	SubmittedAt time.Time
}

// HistoryEntry groups the rates one country set in one round.
// Tariffs is keyed by product, then destination country.
type HistoryEntry struct {
	RoundNumber int                       `json:"round_number"`
	FromCountry string                    `json:"from_country"`
	SubmittedBy string                    `json:"submitted_by,omitempty"`
	SubmittedAt time.Time                 `json:"submitted_at"`
	Tariffs     map[string]map[string]int `json:"tariffs"`
}

// PlayerStatus tells a player what they can still submit this round.
type PlayerStatus struct {
	GameID            uuid.UUID           `json:"game_id"`
	Country           string              `json:"country"`
	RoundNumber       int                 `json:"round_number"`
	CanSubmit         bool                `json:"can_submit"`
	Reason            string              `json:"reason,omitempty"`
	ProducedProducts  []string            `json:"produced_products"`
	SubmittedProducts []string            `json:"submitted_products"`
	PendingProducts   []string            `json:"pending_products"`
	CurrentTariffs    []models.TariffRate `json:"current_tariffs"`
}

// MatrixCell is one from/to entry of a tariff matrix.
type MatrixCell struct {
	Rate        int       `json:"rate"`
	RoundNumber int       `json:"round_number"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Matrix is the from × to grid of rates for one product. Without a round,
// each cell holds the latest round that set it.
type Matrix struct {
	GameID      uuid.UUID                        `json:"game_id"`
	Product     string                           `json:"product"`
	RoundNumber *int                             `json:"round_number,omitempty"`
	Countries   []string                         `json:"countries"`
	Cells       map[string]map[string]MatrixCell `json:"cells"`
}

// RelayRequest is a tariff change announced over the realtime channel without
// being recorded. FromCountry is only honoured for operators.
type RelayRequest struct {
	GameID      uuid.UUID
	RoundNumber int
	Product     string
	FromCountry string
	ToCountry   string
	Rate        int
}
