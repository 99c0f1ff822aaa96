package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/chat/db"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/sqlutil"
)

// historyLimit caps a single history fetch.
const historyLimit = 500

// Querier defines what the repository needs from the database layer
type Querier interface {
	InsertChatMessage(ctx context.Context, arg db.InsertChatMessageParams) (db.ChatMessage, error)
	ListChatMessages(ctx context.Context, arg db.ListChatMessagesParams) ([]db.ListChatMessagesRow, error)
}

// Repository implements chat data access operations
type Repository struct {
	queries Querier
}

// NewRepository creates a new chat repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// InsertChatMessage appends a message.
func (r *Repository) InsertChatMessage(ctx context.Context, msg models.ChatMessage) (*models.ChatMessage, error) {
	row, err := r.queries.InsertChatMessage(ctx, db.InsertChatMessageParams{
		ID:               msg.ID,
		GameID:           msg.GameID,
		SenderID:         msg.SenderID,
		SenderCountry:    msg.SenderCountry,
		MessageType:      string(msg.MessageType),
		RecipientCountry: sqlutil.ToSqlStringPtr(msg.RecipientCountry),
		Content:          msg.Content,
		SentAt:           msg.SentAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat message: %w", err)
	}
	stored := dbMessageToModel(row)
	stored.SenderName = msg.SenderName
	return &stored, nil
}

// ListChatMessages returns messages in send order. A nil country returns all
// messages; otherwise only those visible to that country.
func (r *Repository) ListChatMessages(ctx context.Context, gameID uuid.UUID, country *string) ([]models.ChatMessage, error) {
	rows, err := r.queries.ListChatMessages(ctx, db.ListChatMessagesParams{
		GameID:  gameID,
		Country: sqlutil.ToSqlStringPtr(country),
		Limit:   historyLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	messages := make([]models.ChatMessage, 0, len(rows))
	for _, row := range rows {
		msg := dbMessageToModel(row.ChatMessage)
		msg.SenderName = sqlutil.FromSqlString(row.SenderName)
		messages = append(messages, msg)
	}
	return messages, nil
}

func dbMessageToModel(m db.ChatMessage) models.ChatMessage {
	return models.ChatMessage{
		ID:               m.ID,
		GameID:           m.GameID,
		SenderID:         m.SenderID,
		SenderCountry:    m.SenderCountry,
		MessageType:      models.MessageType(m.MessageType),
		RecipientCountry: sqlutil.FromSqlStringPtr(m.RecipientCountry),
		Content:          m.Content,
		SentAt:           m.SentAt,
	}
}
