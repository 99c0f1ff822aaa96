package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/models"
)

// OperatorsRoom is the room every operator connection joins.
const OperatorsRoom = "operators"

// CountryRoom names the room of the players representing country.
func CountryRoom(country string) string {
	return "country_" + country
}

// roomsFor lists the rooms a connection with identity joins.
func roomsFor(identity models.Identity) []string {
	if identity.IsOperator() {
		return []string{OperatorsRoom}
	}
	if identity.Country != "" {
		return []string{CountryRoom(identity.Country)}
	}
	return nil
}

// Event is the envelope of every message pushed to clients
type Event struct {
	ID        string          `json:"id"`                // Event UUID
	GameID    string          `json:"game_id,omitempty"` // Game UUID
	Type      events.Type     `json:"type"`              // Event type
	Timestamp time.Time       `json:"timestamp"`         // Event creation time
	Data      json.RawMessage `json:"data"`              // Event-specific payload
}

// NewEvent wraps payload in an event envelope.
func NewEvent(eventType events.Type, gameID string, payload any, at time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		GameID:    gameID,
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}

// Audience selects the connections an event is delivered to. A connection
// matches when All is set, it is in one of Rooms, its user is in UserIDs or
// its ID is in ConnectionIDs.
type Audience struct {
	All           bool     `json:"all,omitempty"`
	Rooms         []string `json:"rooms,omitempty"`
	UserIDs       []string `json:"user_ids,omitempty"`
	ConnectionIDs []string `json:"connection_ids,omitempty"`
}

// Everyone addresses every live connection.
func Everyone() Audience {
	return Audience{All: true}
}

// Envelope is an addressed event as carried on the bus.
type Envelope struct {
	Audience Audience `json:"audience"`
	Event    *Event   `json:"event"`
}

// ClientMessage is a command sent by a client
type ClientMessage struct {
	Type events.Command  `json:"type"`
	Data json.RawMessage `json:"data"`
}
