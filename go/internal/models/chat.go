package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType defines who receives a chat message.
type MessageType string

const (
	MessageTypeGroup   MessageType = "group"
	MessageTypePrivate MessageType = "private"
)

// ChatMessage is an append-only chat line within a game.
type ChatMessage struct {
	ID               uuid.UUID   `json:"id"`
	GameID           uuid.UUID   `json:"game_id"`
	SenderID         uuid.UUID   `json:"sender_id"`
	SenderName       string      `json:"sender_name,omitempty"`
	SenderCountry    string      `json:"sender_country"`
	MessageType      MessageType `json:"message_type"`
	RecipientCountry *string     `json:"recipient_country,omitempty"`
	Content          string      `json:"content"`
	SentAt           time.Time   `json:"sent_at"`
}
