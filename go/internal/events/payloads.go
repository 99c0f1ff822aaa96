package events

import (
	"time"

	"github.com/mcdev12/econempire/go/internal/models"
)

// Event payload types that are shared between the game packages and the gateway

// Type names an event pushed to clients.
type Type string

const (
	TypeGameStateChanged  Type = "gameStateChanged"
	TypeRoundTimerUpdated Type = "roundTimerUpdated"
	TypeTariffUpdated     Type = "tariffUpdated"
	TypeNewMessage        Type = "newMessage"
	TypeGameDataUpdated   Type = "gameDataUpdated"
	TypeOnlineUsers       Type = "onlineUsers"
	TypeUserStatusUpdate  Type = "userStatusUpdate"
	TypeSessionEnded      Type = "sessionEnded"
	TypeError             Type = "error"
)

// Command names a message a client sends over the realtime connection.
type Command string

const (
	CommandSendMessage      Command = "sendMessage"
	CommandTariffUpdate     Command = "tariffUpdate"
	CommandGameStateUpdate  Command = "gameStateUpdate"
	CommandRoundTimerUpdate Command = "roundTimerUpdate"
)

// Lifecycle actions carried by gameStateChanged and the gameStateUpdate command.
const (
	ActionCreate  = "create"
	ActionStart   = "start"
	ActionAdvance = "advance"
	ActionEnd     = "end"
	ActionReset   = "reset"
)

// GameStateChangedPayload is the payload for a gameStateChanged event
type GameStateChangedPayload struct {
	GameID       string            `json:"game_id"`
	Action       string            `json:"action"`
	Status       models.GameStatus `json:"status"`
	CurrentRound int               `json:"current_round"`
	TotalRounds  int               `json:"total_rounds"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	EndedAt      *time.Time        `json:"ended_at,omitempty"`
	UpdatedBy    string            `json:"updated_by"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// RoundTimerUpdatedPayload carries the server-computed time left in the current round.
type RoundTimerUpdatedPayload struct {
	GameID           string    `json:"game_id"`
	CurrentRound     int       `json:"current_round"`
	TimeRemainingSec int       `json:"time_remaining_sec"`
	Deadline         time.Time `json:"deadline"`
	TickedAt         time.Time `json:"ticked_at"`
}

// TariffUpdatedPayload is the payload for a tariffUpdated event. Authoritative
// is false for client relays that did not go through the ledger.
type TariffUpdatedPayload struct {
	GameID        string    `json:"game_id"`
	RoundNumber   int       `json:"round_number"`
	Product       string    `json:"product"`
	FromCountry   string    `json:"from_country"`
	ToCountry     string    `json:"to_country"`
	Rate          int       `json:"rate"`
	Action        string    `json:"action,omitempty"`
	Authoritative bool      `json:"authoritative"`
	UpdatedBy     string    `json:"updated_by"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewMessagePayload is the payload for a newMessage event
type NewMessagePayload struct {
	ID               string             `json:"id"`
	GameID           string             `json:"game_id"`
	SenderID         string             `json:"sender_id"`
	SenderName       string             `json:"sender_name"`
	SenderCountry    string             `json:"sender_country"`
	MessageType      models.MessageType `json:"message_type"`
	RecipientCountry string             `json:"recipient_country,omitempty"`
	Content          string             `json:"content"`
	SentAt           time.Time          `json:"sent_at"`
}

// GameDataUpdatedPayload carries economy data. Country is empty for the full
// operator view and set when only that country's slice is included.
type GameDataUpdatedPayload struct {
	GameID      string                   `json:"game_id"`
	Country     string                   `json:"country,omitempty"`
	Production  []models.ProductionEntry `json:"production"`
	Demand      []models.DemandEntry     `json:"demand"`
	TariffRates []models.TariffRate      `json:"tariff_rates"`
}

// UserStatusPayload is the payload for a userStatusUpdate event and an onlineUsers entry
type UserStatusPayload struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	Country  string      `json:"country,omitempty"`
	IsOnline bool        `json:"is_online"`
}

// OnlineUsersPayload is the roster sent to a connection after it joins.
type OnlineUsersPayload struct {
	Users []UserStatusPayload `json:"users"`
}

// ErrorPayload reports a failed command back to the connection that sent it.
type ErrorPayload struct {
	Command string `json:"command,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionEndedPayload tells a client its connection is being closed and why.
// The client must log in again before reconnecting.
type SessionEndedPayload struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}
