package models

import "github.com/google/uuid"

// ProductionEntry is the share of a product produced by one country.
type ProductionEntry struct {
	GameID   uuid.UUID `json:"game_id"`
	Country  string    `json:"country"`
	Product  string    `json:"product"`
	Quantity int       `json:"quantity"`
}

// DemandEntry is the share of a product demanded by one country.
type DemandEntry struct {
	GameID   uuid.UUID `json:"game_id"`
	Country  string    `json:"country"`
	Product  string    `json:"product"`
	Quantity int       `json:"quantity"`
}

// Baseline is the round-0 economy of a game.
type Baseline struct {
	Production []ProductionEntry `json:"production"`
	Demand     []DemandEntry     `json:"demand"`
	Tariffs    []TariffRate      `json:"tariffs"`
}
