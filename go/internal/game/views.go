package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/tariff"
	"github.com/rs/zerolog/log"
)

// ListGames lists every game, newest first.
func (c *Coordinator) ListGames(ctx context.Context) ([]GameSummary, error) {
	games, err := c.store.Games(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, GameSummary{
			ID:           g.ID,
			Status:       g.Status,
			CurrentRound: g.CurrentRound,
			TotalRounds:  g.TotalRounds,
			CreatedAt:    g.CreatedAt,
		})
	}
	return out, nil
}

// Snapshot returns everything the operator console shows for a game.
func (c *Coordinator) Snapshot(ctx context.Context, caller models.Identity, gameID uuid.UUID) (*Snapshot, error) {
	if !caller.IsOperator() {
		return nil, apperr.New(apperr.KindForbidden, "only the operator can view the full game state")
	}
	game, err := c.store.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	rounds, err := c.store.Rounds(ctx, gameID)
	if err != nil {
		return nil, err
	}
	production, err := c.store.Production(ctx, gameID)
	if err != nil {
		return nil, err
	}
	demand, err := c.store.Demand(ctx, gameID)
	if err != nil {
		return nil, err
	}
	rates, err := c.rates.RatesFor(ctx, gameID, tariff.RateFilter{})
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Game:        game,
		Rounds:      rounds,
		Production:  production,
		Demand:      demand,
		TariffRates: rates,
	}
	if t, ok := c.store.Timer(gameID); ok {
		snap.Timer = timerState(t, c.clock.Now())
	}
	return snap, nil
}

// PlayerView returns the slice of a game that country may see.
func (c *Coordinator) PlayerView(ctx context.Context, gameID uuid.UUID, country string) (*PlayerView, error) {
	if country == "" {
		return nil, apperr.New(apperr.KindPreconditionFailed, "no country is assigned to you")
	}
	game, err := c.store.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.Settings.HasCountry(country) {
		return nil, apperr.New(apperr.KindValidationFailed, "country %s does not take part in this game", country)
	}

	production, err := c.store.Production(ctx, gameID)
	if err != nil {
		return nil, err
	}
	demand, err := c.store.Demand(ctx, gameID)
	if err != nil {
		return nil, err
	}

	view := &PlayerView{
		Game:        game,
		Country:     country,
		Production:  []models.ProductionEntry{},
		Demand:      []models.DemandEntry{},
		TariffRates: []models.TariffRate{},
	}
	for _, p := range production {
		if p.Country == country {
			view.Production = append(view.Production, p)
		}
	}
	var imported []string
	for _, d := range demand {
		if d.Country == country {
			view.Demand = append(view.Demand, d)
			imported = append(imported, d.Product)
		}
	}

	if len(imported) > 0 {
		maxRound := game.CurrentRound
		view.TariffRates, err = c.rates.RatesFor(ctx, gameID, tariff.RateFilter{
			MaxRound: &maxRound,
			Products: imported,
		})
		if err != nil {
			return nil, err
		}
	}

	if t, ok := c.store.Timer(gameID); ok {
		view.Timer = timerState(t, c.clock.Now())
	}
	return view, nil
}

// State returns the full-state pull for caller: the snapshot for the
// operator, the player view otherwise.
func (c *Coordinator) State(ctx context.Context, caller models.Identity, gameID uuid.UUID) (*State, error) {
	if caller.IsOperator() {
		snap, err := c.Snapshot(ctx, caller, gameID)
		if err != nil {
			return nil, err
		}
		return &State{Snapshot: snap}, nil
	}
	view, err := c.PlayerView(ctx, gameID, caller.Country)
	if err != nil {
		return nil, err
	}
	return &State{PlayerView: view}, nil
}

// SyncRoundTimer re-publishes the server's remaining time for a game's round.
// Whatever the client believes is ignored.
func (c *Coordinator) SyncRoundTimer(ctx context.Context, caller models.Identity, gameID uuid.UUID) (*events.RoundTimerUpdatedPayload, error) {
	if !caller.IsOperator() {
		return nil, apperr.New(apperr.KindForbidden, "only the operator can sync the round timer")
	}
	if _, err := c.store.Game(ctx, gameID); err != nil {
		return nil, err
	}
	t, ok := c.store.Timer(gameID)
	if !ok {
		return nil, apperr.New(apperr.KindPreconditionFailed, "no round is running")
	}
	payload := timerPayload(t, c.clock.Now())
	c.notifier.RoundTimerUpdated(payload)
	return &payload, nil
}

// publishPlayerViews sends each country its own view of the game.
func (c *Coordinator) publishPlayerViews(ctx context.Context, game *models.Game) {
	for _, country := range game.Settings.Countries {
		view, err := c.PlayerView(ctx, game.ID, country)
		if err != nil {
			log.Warn().Err(err).Str("game_id", game.ID.String()).Str("country", country).Msg("failed to build player view")
			continue
		}
		c.notifier.GameDataUpdated(events.GameDataUpdatedPayload{
			GameID:      game.ID.String(),
			Country:     country,
			Production:  view.Production,
			Demand:      view.Demand,
			TariffRates: view.TariffRates,
		})
	}
}
