package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const insertChatMessage = `-- name: InsertChatMessage :one
INSERT INTO chat_messages (id, game_id, sender_id, sender_country, message_type, recipient_country, content, sent_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, game_id, sender_id, sender_country, message_type, recipient_country, content, sent_at`

type InsertChatMessageParams struct {
	ID               uuid.UUID      `json:"id"`
	GameID           uuid.UUID      `json:"game_id"`
	SenderID         uuid.UUID      `json:"sender_id"`
	SenderCountry    string         `json:"sender_country"`
	MessageType      string         `json:"message_type"`
	RecipientCountry sql.NullString `json:"recipient_country"`
	Content          string         `json:"content"`
	SentAt           time.Time      `json:"sent_at"`
}

func (q *Queries) InsertChatMessage(ctx context.Context, arg InsertChatMessageParams) (ChatMessage, error) {
	row := q.db.QueryRowContext(ctx, insertChatMessage,
		arg.ID,
		arg.GameID,
		arg.SenderID,
		arg.SenderCountry,
		arg.MessageType,
		arg.RecipientCountry,
		arg.Content,
		arg.SentAt,
	)
	var i ChatMessage
	err := row.Scan(
		&i.ID,
		&i.GameID,
		&i.SenderID,
		&i.SenderCountry,
		&i.MessageType,
		&i.RecipientCountry,
		&i.Content,
		&i.SentAt,
	)
	return i, err
}

// A NULL country returns every message of the game.
const listChatMessages = `-- name: ListChatMessages :many
SELECT m.id, m.game_id, m.sender_id, m.sender_country, m.message_type, m.recipient_country, m.content, m.sent_at,
       u.username AS sender_name
FROM chat_messages m
LEFT JOIN users u ON u.id = m.sender_id
WHERE m.game_id = $1
  AND ($2::text IS NULL
       OR m.message_type = 'group'
       OR m.sender_country = $2::text
       OR m.recipient_country = $2::text)
ORDER BY m.sent_at, m.id
LIMIT $3`

type ListChatMessagesParams struct {
	GameID  uuid.UUID      `json:"game_id"`
	Country sql.NullString `json:"country"`
	Limit   int32          `json:"limit"`
}

func (q *Queries) ListChatMessages(ctx context.Context, arg ListChatMessagesParams) ([]ListChatMessagesRow, error) {
	rows, err := q.db.QueryContext(ctx, listChatMessages, arg.GameID, arg.Country, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListChatMessagesRow
	for rows.Next() {
		var i ListChatMessagesRow
		if err := rows.Scan(
			&i.ID,
			&i.GameID,
			&i.SenderID,
			&i.SenderCountry,
			&i.MessageType,
			&i.RecipientCountry,
			&i.Content,
			&i.SentAt,
			&i.SenderName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
