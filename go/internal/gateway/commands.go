package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/chat"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/tariff"
	"github.com/rs/zerolog/log"
)

// HandleMessage decodes a client command and routes it. Failures are reported
// to the sending connection as an error event.
func (s *Service) HandleMessage(c *Connection, message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.sendError(c, "", apperr.New(apperr.KindValidationFailed, "malformed message"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.CommandTimeout)
	defer cancel()

	log.Debug().
		Str("connection_id", c.ID).
		Str("command", string(msg.Type)).
		Msg("received client command")

	var err error
	switch msg.Type {
	case events.CommandSendMessage:
		err = s.handleSendMessage(ctx, c.Identity, msg.Data)
	case events.CommandTariffUpdate:
		err = s.handleTariffUpdate(ctx, c.Identity, msg.Data)
	case events.CommandGameStateUpdate:
		err = s.handleGameStateUpdate(ctx, c.Identity, msg.Data)
	case events.CommandRoundTimerUpdate:
		err = s.handleRoundTimerUpdate(ctx, c.Identity, msg.Data)
	default:
		err = apperr.New(apperr.KindValidationFailed, "unknown command %q", msg.Type)
	}
	if err != nil {
		s.sendError(c, msg.Type, err)
	}
}

func (s *Service) handleSendMessage(ctx context.Context, caller models.Identity, data json.RawMessage) error {
	var cmd events.SendMessageCommand
	if err := decode(data, &cmd); err != nil {
		return err
	}
	gameID, err := parseGameID(cmd.GameID)
	if err != nil {
		return err
	}
	_, err = s.deps.Chat.Send(ctx, caller, chat.SendRequest{
		GameID:           gameID,
		Content:          cmd.Content,
		MessageType:      models.MessageType(cmd.MessageType),
		RecipientCountry: cmd.RecipientCountry,
	})
	return err
}

func (s *Service) handleTariffUpdate(ctx context.Context, caller models.Identity, data json.RawMessage) error {
	var cmd events.TariffUpdateCommand
	if err := decode(data, &cmd); err != nil {
		return err
	}
	gameID, err := parseGameID(cmd.GameID)
	if err != nil {
		return err
	}
	_, err = s.deps.Tariffs.Relay(ctx, caller, tariff.RelayRequest{
		GameID:      gameID,
		RoundNumber: cmd.RoundNumber,
		Product:     cmd.Product,
		FromCountry: cmd.FromCountry,
		ToCountry:   cmd.ToCountry,
		Rate:        cmd.Rate,
	})
	return err
}

func (s *Service) handleGameStateUpdate(ctx context.Context, caller models.Identity, data json.RawMessage) error {
	if !caller.IsOperator() {
		return apperr.New(apperr.KindForbidden, "only the operator can change the game state")
	}
	var cmd events.GameStateUpdateCommand
	if err := decode(data, &cmd); err != nil {
		return err
	}
	_, err := s.deps.Games.Apply(ctx, caller, cmd)
	return err
}

func (s *Service) handleRoundTimerUpdate(ctx context.Context, caller models.Identity, data json.RawMessage) error {
	if !caller.IsOperator() {
		return apperr.New(apperr.KindForbidden, "only the operator can sync the round timer")
	}
	var cmd events.RoundTimerUpdateCommand
	if err := decode(data, &cmd); err != nil {
		return err
	}
	gameID, err := parseGameID(cmd.GameID)
	if err != nil {
		return err
	}
	_, err = s.deps.Games.SyncRoundTimer(ctx, caller, gameID)
	return err
}

func (s *Service) sendError(c *Connection, command events.Command, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Error().Err(err).Str("connection_id", c.ID).Str("command", string(command)).Msg("command failed")
	}
	s.sendEvent(c, events.TypeError, "", events.ErrorPayload{
		Command: string(command),
		Kind:    string(kind),
		Message: apperr.PublicMessage(err),
	})
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return apperr.New(apperr.KindValidationFailed, "missing command data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Wrap(apperr.KindValidationFailed, err, fmt.Sprintf("malformed command data: %v", err))
	}
	return nil
}

func parseGameID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindValidationFailed, "invalid game id")
	}
	return id, nil
}
