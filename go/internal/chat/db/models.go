package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	ID               uuid.UUID      `json:"id"`
	GameID           uuid.UUID      `json:"game_id"`
	SenderID         uuid.UUID      `json:"sender_id"`
	SenderCountry    string         `json:"sender_country"`
	MessageType      string         `json:"message_type"`
	RecipientCountry sql.NullString `json:"recipient_country"`
	Content          string         `json:"content"`
	SentAt           time.Time      `json:"sent_at"`
}

type ListChatMessagesRow struct {
	ChatMessage
	SenderName sql.NullString `json:"sender_name"`
}
