// Package game implements the round coordinator: the state machine that
// creates, starts, advances, ends and resets games.
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/config"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/gamestate"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/tariff"
	"github.com/rs/zerolog/log"
)

// Generator produces the round-0 economy of a game.
type Generator interface {
	Generate(gameID uuid.UUID, products, countries []string) models.Baseline
}

// RateReader lists tariff rates.
type RateReader interface {
	RatesFor(ctx context.Context, gameID uuid.UUID, filter tariff.RateFilter) ([]models.TariffRate, error)
}

// PresenceReader reports which countries have an online player.
type PresenceReader interface {
	OnlinePlayerCountries() map[string]uuid.UUID
}

// Notifier receives lifecycle, data and timer changes for delivery.
type Notifier interface {
	GameStateChanged(payload events.GameStateChangedPayload)
	GameDataUpdated(payload events.GameDataUpdatedPayload)
	RoundTimerUpdated(payload events.RoundTimerUpdatedPayload)
}

// Coordinator owns every game lifecycle transition.
type Coordinator struct {
	store     *gamestate.Store
	generator Generator
	rates     RateReader
	presence  PresenceReader
	notifier  Notifier
	rules     config.GameConfig
	clock     clockwork.Clock
}

// NewCoordinator creates a coordinator. New games take their countries,
// products and round window from rules.
func NewCoordinator(
	store *gamestate.Store,
	generator Generator,
	rates RateReader,
	presence PresenceReader,
	notifier Notifier,
	rules config.GameConfig,
) *Coordinator {
	return &Coordinator{
		store:     store,
		generator: generator,
		rates:     rates,
		presence:  presence,
		notifier:  notifier,
		rules:     rules,
		clock:     store.Clock(),
	}
}

// CreateGame creates a waiting game and generates its baseline economy.
func (c *Coordinator) CreateGame(ctx context.Context, caller models.Identity, req CreateGameRequest) (*models.Game, error) {
	if !caller.IsOperator() {
		return nil, apperr.New(apperr.KindForbidden, "only the operator can create games")
	}
	totalRounds := req.TotalRounds
	if totalRounds == 0 {
		totalRounds = c.rules.DefaultTotalRounds
	}
	if totalRounds < 1 {
		return nil, apperr.New(apperr.KindValidationFailed, "total rounds must be at least 1")
	}

	id := uuid.New()
	settings := models.GameSettings{
		Countries:        append([]string(nil), c.rules.Countries...),
		Products:         append([]string(nil), c.rules.Products...),
		RoundDurationSec: int(c.rules.RoundDuration / time.Second),
	}
	baseline := c.generator.Generate(id, settings.Products, settings.Countries)

	game, err := c.store.Create(ctx, gamestate.CreateGameParams{
		ID:          id,
		TotalRounds: totalRounds,
		OperatorID:  caller.UserID,
		Settings:    settings,
		CreatedAt:   c.clock.Now(),
	}, baseline)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("game_id", game.ID.String()).
		Int("total_rounds", game.TotalRounds).
		Int("baseline_tariffs", len(baseline.Tariffs)).
		Msg("game created")

	c.notifyState(game, events.ActionCreate, caller)
	c.notifier.GameDataUpdated(baselinePayload(game.ID, baseline))
	return game, nil
}

// StartGame opens round 1. Every country of the game must have an online player.
func (c *Coordinator) StartGame(ctx context.Context, caller models.Identity, gameID uuid.UUID) (*models.Game, error) {
	unlock := c.store.Lock(gameID)
	defer unlock()

	game, err := c.ownedGame(ctx, caller, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusWaiting {
		return nil, apperr.New(apperr.KindPreconditionFailed, "game is %s, only a waiting game can be started", game.Status)
	}

	need := len(game.Settings.Countries)
	have := c.onlineCountries(game)
	if have != need {
		return nil, apperr.New(apperr.KindPreconditionFailed, "need %d players online, currently have %d", need, have)
	}

	now := c.clock.Now()
	game, err = c.store.Start(ctx, gameID, now)
	if err != nil {
		return nil, err
	}
	timer := c.store.StartTimer(gameID, game.CurrentRound, now, c.window(game))

	log.Info().Str("game_id", gameID.String()).Int("players", have).Msg("game started")

	c.notifyState(game, events.ActionStart, caller)
	c.notifyTimer(timer, now)
	c.publishPlayerViews(ctx, game)
	return game, nil
}

// AdvanceRound completes the current round and opens the next one. A non-zero
// expectedRound must equal the current round, so a repeated request for the
// same round fails instead of advancing twice.
func (c *Coordinator) AdvanceRound(ctx context.Context, caller models.Identity, gameID uuid.UUID, expectedRound int) (*models.Game, error) {
	unlock := c.store.Lock(gameID)
	defer unlock()

	game, err := c.ownedGame(ctx, caller, gameID)
	if err != nil {
		return nil, err
	}
	switch game.Status {
	case models.GameStatusActive:
	case models.GameStatusEnded:
		return nil, apperr.New(apperr.KindPreconditionFailed, "game has already ended")
	case models.GameStatusWaiting:
		return nil, apperr.New(apperr.KindPreconditionFailed, "game has not started")
	default:
		return nil, apperr.New(apperr.KindPreconditionFailed, "game is %s", game.Status)
	}
	if expectedRound != 0 && expectedRound != game.CurrentRound {
		return nil, apperr.New(apperr.KindPreconditionFailed, "round %d is already closed, current round is %d", expectedRound, game.CurrentRound)
	}
	if game.CurrentRound >= game.TotalRounds {
		return nil, apperr.New(apperr.KindPreconditionFailed, "game has already ended: round %d is the last of %d", game.CurrentRound, game.TotalRounds)
	}

	now := c.clock.Now()
	game, err = c.store.Advance(ctx, gameID, game.CurrentRound, now)
	if err != nil {
		return nil, err
	}
	timer := c.store.StartTimer(gameID, game.CurrentRound, now, c.window(game))

	log.Info().Str("game_id", gameID.String()).Int("round", game.CurrentRound).Msg("round advanced")

	c.notifyState(game, events.ActionAdvance, caller)
	c.notifyTimer(timer, now)
	c.publishPlayerViews(ctx, game)
	return game, nil
}

// EndGame closes the game. Ending an ended game returns it unchanged.
func (c *Coordinator) EndGame(ctx context.Context, caller models.Identity, gameID uuid.UUID) (*models.Game, error) {
	unlock := c.store.Lock(gameID)
	defer unlock()

	game, err := c.ownedGame(ctx, caller, gameID)
	if err != nil {
		return nil, err
	}
	switch game.Status {
	case models.GameStatusEnded:
		return game, nil
	case models.GameStatusWaiting:
		return nil, apperr.New(apperr.KindPreconditionFailed, "game has not started")
	}

	game, err = c.store.End(ctx, gameID, c.clock.Now())
	if err != nil {
		return nil, err
	}
	c.store.StopTimer(gameID)

	log.Info().Str("game_id", gameID.String()).Int("round", game.CurrentRound).Msg("game ended")

	c.notifyState(game, events.ActionEnd, caller)
	return game, nil
}

// ResetGame wipes rounds and economy data and regenerates the baseline. The
// game returns to waiting from any state.
func (c *Coordinator) ResetGame(ctx context.Context, caller models.Identity, gameID uuid.UUID) (*models.Game, error) {
	unlock := c.store.Lock(gameID)
	defer unlock()

	game, err := c.ownedGame(ctx, caller, gameID)
	if err != nil {
		return nil, err
	}

	baseline := c.generator.Generate(gameID, game.Settings.Products, game.Settings.Countries)
	game, err = c.store.Reset(ctx, gameID, baseline, c.clock.Now())
	if err != nil {
		return nil, err
	}
	c.store.StopTimer(gameID)

	log.Info().Str("game_id", gameID.String()).Msg("game reset")

	c.notifyState(game, events.ActionReset, caller)
	c.notifier.GameDataUpdated(baselinePayload(gameID, baseline))
	return game, nil
}

// Apply runs a lifecycle action by name, as sent over the realtime channel.
func (c *Coordinator) Apply(ctx context.Context, caller models.Identity, cmd events.GameStateUpdateCommand) (*models.Game, error) {
	if cmd.Action == events.ActionCreate {
		return c.CreateGame(ctx, caller, CreateGameRequest{TotalRounds: cmd.TotalRounds})
	}
	gameID, err := uuid.Parse(cmd.GameID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidationFailed, "invalid game id")
	}
	switch cmd.Action {
	case events.ActionStart:
		return c.StartGame(ctx, caller, gameID)
	case events.ActionAdvance:
		return c.AdvanceRound(ctx, caller, gameID, cmd.ExpectedRound)
	case events.ActionEnd:
		return c.EndGame(ctx, caller, gameID)
	case events.ActionReset:
		return c.ResetGame(ctx, caller, gameID)
	}
	return nil, apperr.New(apperr.KindValidationFailed, "unknown game action %q", cmd.Action)
}

// ownedGame loads a game the caller may drive. Only the operator who created
// a game can change it.
func (c *Coordinator) ownedGame(ctx context.Context, caller models.Identity, gameID uuid.UUID) (*models.Game, error) {
	if !caller.IsOperator() {
		return nil, apperr.New(apperr.KindForbidden, "only the operator can change the game state")
	}
	game, err := c.store.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.OperatorID != caller.UserID {
		return nil, apperr.New(apperr.KindForbidden, "game belongs to another operator")
	}
	return game, nil
}

// onlineCountries counts the game's countries that currently have an online player.
func (c *Coordinator) onlineCountries(game *models.Game) int {
	online := c.presence.OnlinePlayerCountries()
	n := 0
	for _, country := range game.Settings.Countries {
		if _, ok := online[country]; ok {
			n++
		}
	}
	return n
}

func (c *Coordinator) window(game *models.Game) time.Duration {
	return gamestate.RoundWindow(game, c.rules.RoundDuration)
}

func (c *Coordinator) notifyState(game *models.Game, action string, caller models.Identity) {
	c.notifier.GameStateChanged(events.GameStateChangedPayload{
		GameID:       game.ID.String(),
		Action:       action,
		Status:       game.Status,
		CurrentRound: game.CurrentRound,
		TotalRounds:  game.TotalRounds,
		StartedAt:    game.StartedAt,
		EndedAt:      game.EndedAt,
		UpdatedBy:    caller.Username,
		UpdatedAt:    game.UpdatedAt,
	})
}

func (c *Coordinator) notifyTimer(t gamestate.RoundTimer, now time.Time) {
	c.notifier.RoundTimerUpdated(timerPayload(t, now))
}

func timerPayload(t gamestate.RoundTimer, now time.Time) events.RoundTimerUpdatedPayload {
	return events.RoundTimerUpdatedPayload{
		GameID:           t.GameID.String(),
		CurrentRound:     t.Round,
		TimeRemainingSec: t.RemainingSeconds(now),
		Deadline:         t.Deadline,
		TickedAt:         now,
	}
}

func baselinePayload(gameID uuid.UUID, b models.Baseline) events.GameDataUpdatedPayload {
	return events.GameDataUpdatedPayload{
		GameID:      gameID.String(),
		Production:  b.Production,
		Demand:      b.Demand,
		TariffRates: b.Tariffs,
	}
}
