package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ChatRepository defines what the app layer needs from the repository
type ChatRepository interface {
	InsertChatMessage(ctx context.Context, msg models.ChatMessage) (*models.ChatMessage, error)
	ListChatMessages(ctx context.Context, gameID uuid.UUID, country *string) ([]models.ChatMessage, error)
}

// GameReader resolves the game a message belongs to.
type GameReader interface {
	Game(ctx context.Context, gameID uuid.UUID) (*models.Game, error)
}

// Notifier receives stored messages for delivery.
type Notifier interface {
	NewMessage(payload events.NewMessagePayload, senderID uuid.UUID)
}

// SendRequest is a message as submitted by a client.
type SendRequest struct {
	GameID           uuid.UUID          `json:"game_id"`
	Content          string             `json:"content"`
	MessageType      models.MessageType `json:"message_type"`
	RecipientCountry string             `json:"recipient_country,omitempty"`
}

// App handles chat business logic
type App struct {
	repo      ChatRepository
	games     GameReader
	notifier  Notifier
	clock     clockwork.Clock
	maxLength int
}

// NewApp creates a new chat App
func NewApp(repo ChatRepository, games GameReader, notifier Notifier, clock clockwork.Clock, maxLength int) *App {
	return &App{
		repo:      repo,
		games:     games,
		notifier:  notifier,
		clock:     clock,
		maxLength: maxLength,
	}
}

// Send validates, stores and publishes a message.
func (a *App) Send(ctx context.Context, sender models.Identity, req SendRequest) (*models.ChatMessage, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperr.New(apperr.KindValidationFailed, "message content cannot be empty")
	}
	if a.maxLength > 0 && utf8.RuneCountInString(content) > a.maxLength {
		return nil, apperr.New(apperr.KindValidationFailed, "message is longer than %d characters", a.maxLength)
	}

	msgType := req.MessageType
	if msgType == "" {
		msgType = models.MessageTypeGroup
	}
	if msgType != models.MessageTypeGroup && msgType != models.MessageTypePrivate {
		return nil, apperr.New(apperr.KindValidationFailed, "unknown message type %q", msgType)
	}

	game, err := a.games.Game(ctx, req.GameID)
	if err != nil {
		return nil, err
	}

	msg := models.ChatMessage{
		ID:            uuid.New(),
		GameID:        game.ID,
		SenderID:      sender.UserID,
		SenderName:    sender.Username,
		SenderCountry: sender.Country,
		MessageType:   msgType,
		Content:       content,
		SentAt:        a.clock.Now(),
	}

	if msgType == models.MessageTypePrivate {
		recipient := req.RecipientCountry
		if recipient == "" {
			return nil, apperr.New(apperr.KindValidationFailed, "private messages need a recipient country")
		}
		if len(game.Settings.Countries) > 0 && !game.Settings.HasCountry(recipient) {
			return nil, apperr.New(apperr.KindValidationFailed, "unknown country %q", recipient)
		}
		if recipient == sender.Country {
			return nil, apperr.New(apperr.KindValidationFailed, "cannot send a private message to your own country")
		}
		msg.RecipientCountry = &recipient
	}

	stored, err := a.repo.InsertChatMessage(ctx, msg)
	if err != nil {
		log.Error().Err(err).Str("game_id", req.GameID.String()).Msg("failed to store chat message")
		return nil, apperr.Internal(err)
	}

	a.notifier.NewMessage(ToPayload(stored), sender.UserID)
	return stored, nil
}

// List returns the messages viewer may read: operators see everything,
// players see group messages and private messages to or from their country.
func (a *App) List(ctx context.Context, viewer models.Identity, gameID uuid.UUID) ([]models.ChatMessage, error) {
	if _, err := a.games.Game(ctx, gameID); err != nil {
		return nil, err
	}

	var country *string
	if !viewer.IsOperator() {
		c := viewer.Country
		country = &c
	}

	messages, err := a.repo.ListChatMessages(ctx, gameID, country)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to list chat messages")
		return nil, apperr.Internal(err)
	}
	return messages, nil
}

// ToPayload converts a stored message into its event payload.
func ToPayload(m *models.ChatMessage) events.NewMessagePayload {
	p := events.NewMessagePayload{
		ID:            m.ID.String(),
		GameID:        m.GameID.String(),
		SenderID:      m.SenderID.String(),
		SenderName:    m.SenderName,
		SenderCountry: m.SenderCountry,
		MessageType:   m.MessageType,
		Content:       m.Content,
		SentAt:        m.SentAt,
	}
	if m.RecipientCountry != nil {
		p.RecipientCountry = *m.RecipientCountry
	}
	return p
}
