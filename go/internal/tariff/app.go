package tariff

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/events"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TariffRepository defines what the ledger needs from persistence
type TariffRepository interface {
	ProducedProducts(ctx context.Context, gameID uuid.UUID, country string) ([]string, error)
	UpsertTariffRate(ctx context.Context, params UpsertParams) (*models.TariffRate, bool, error)
	ListTariffRates(ctx context.Context, gameID uuid.UUID, filter RateFilter) ([]models.TariffRate, error)
}

// GameReader is the slice of the game store the ledger relies on.
type GameReader interface {
	Game(ctx context.Context, gameID uuid.UUID) (*models.Game, error)
	RLock(gameID uuid.UUID) (unlock func())
}

// Notifier receives accepted tariff changes.
type Notifier interface {
	TariffUpdated(payload events.TariffUpdatedPayload)
}

// Ledger records per-round tariff submissions.
type Ledger struct {
	repo     TariffRepository
	games    GameReader
	notifier Notifier
	clock    clockwork.Clock
}

// NewLedger creates a new tariff ledger
func NewLedger(repo TariffRepository, games GameReader, notifier Notifier, clock clockwork.Clock) *Ledger {
	return &Ledger{
		repo:     repo,
		games:    games,
		notifier: notifier,
		clock:    clock,
	}
}

// Submit applies a batch of changes for the submitter's country. Request level
// problems fail the whole call; item level problems are reported per change
// and do not stop the rest of the batch.
func (l *Ledger) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if len(req.Changes) == 0 {
		return nil, apperr.New(apperr.KindValidationFailed, "no tariff changes submitted")
	}
	from := req.Submitter.Country
	if from == "" {
		return nil, apperr.New(apperr.KindPreconditionFailed, "no country is assigned to you")
	}

	// The shared lock keeps the round open until every item is written.
	unlock := l.games.RLock(req.GameID)
	defer unlock()

	game, err := l.games.Game(ctx, req.GameID)
	if err != nil {
		return nil, err
	}
	if err := submissionWindowError(game, req.RoundNumber); err != nil {
		return nil, err
	}

	produced, err := l.producedSet(ctx, req.GameID, from)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{
		GameID:      req.GameID,
		RoundNumber: req.RoundNumber,
		FromCountry: from,
		Results:     make([]ChangeResult, 0, len(req.Changes)),
	}
	for _, change := range req.Changes {
		res := l.apply(ctx, game, req, produced, change)
		if res.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, res)
	}

	log.Info().
		Str("game_id", req.GameID.String()).
		Int("round", req.RoundNumber).
		Str("country", from).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("tariff submission processed")

	return result, nil
}

func (l *Ledger) apply(ctx context.Context, game *models.Game, req SubmitRequest, produced map[string]bool, change Change) ChangeResult {
	from := req.Submitter.Country
	res := ChangeResult{Product: change.Product, ToCountry: change.ToCountry, Rate: change.Rate}

	fail := func(err *apperr.Error) ChangeResult {
		res.ErrorKind = err.Kind
		res.Error = err.Message
		return res
	}

	if !produced[change.Product] {
		return fail(apperr.New(apperr.KindValidationFailed, "your country (%s) does not produce %s", from, change.Product))
	}
	if change.Rate < models.MinTariffRate || change.Rate > models.MaxTariffRate {
		return fail(apperr.New(apperr.KindValidationFailed, "tariff rate must be between %d and %d", models.MinTariffRate, models.MaxTariffRate))
	}
	if len(game.Settings.Countries) > 0 && !game.Settings.HasCountry(change.ToCountry) {
		return fail(apperr.New(apperr.KindValidationFailed, "unknown country %q", change.ToCountry))
	}
	if change.ToCountry == from {
		res.Rate = 0
	}

	stored, created, err := l.repo.UpsertTariffRate(ctx, UpsertParams{
		GameID:      req.GameID,
		RoundNumber: req.RoundNumber,
		Product:     change.Product,
		FromCountry: from,
		ToCountry:   change.ToCountry,
		Rate:        res.Rate,
		SubmittedBy: req.Submitter.UserID,
		SubmittedAt: l.clock.Now(),
	})
	if err != nil {
		if errors.Is(err, ErrSuperseded) {
			return fail(apperr.New(apperr.KindConflict, "%s", ErrSuperseded.Error()))
		}
		log.Error().
			Err(err).
			Str("game_id", req.GameID.String()).
			Str("product", change.Product).
			Str("to_country", change.ToCountry).
			Msg("failed to store tariff rate")
		return fail(apperr.Internal(err))
	}

	res.Success = true
	res.Action = ActionUpdated
	if created {
		res.Action = ActionCreated
	}

	l.notifier.TariffUpdated(events.TariffUpdatedPayload{
		GameID:        stored.GameID.String(),
		RoundNumber:   stored.RoundNumber,
		Product:       stored.Product,
		FromCountry:   stored.FromCountry,
		ToCountry:     stored.ToCountry,
		Rate:          stored.Rate,
		Action:        string(res.Action),
		Authoritative: true,
		UpdatedBy:     req.Submitter.Username,
		UpdatedAt:     stored.SubmittedAt,
	})
	return res
}

// Relay announces a tariff change to the operators and the countries
// involved without storing it. Players always relay as their own country.
func (l *Ledger) Relay(ctx context.Context, caller models.Identity, req RelayRequest) (*events.TariffUpdatedPayload, error) {
	from := req.FromCountry
	if !caller.IsOperator() {
		from = caller.Country
	}
	if from == "" {
		return nil, apperr.New(apperr.KindPreconditionFailed, "no country is assigned to you")
	}
	if req.Product == "" || req.ToCountry == "" {
		return nil, apperr.New(apperr.KindValidationFailed, "product and destination country are required")
	}
	if req.Rate < models.MinTariffRate || req.Rate > models.MaxTariffRate {
		return nil, apperr.New(apperr.KindValidationFailed, "tariff rate must be between %d and %d", models.MinTariffRate, models.MaxTariffRate)
	}
	if _, err := l.games.Game(ctx, req.GameID); err != nil {
		return nil, err
	}

	rate := req.Rate
	if from == req.ToCountry {
		rate = 0
	}
	payload := events.TariffUpdatedPayload{
		GameID:        req.GameID.String(),
		RoundNumber:   req.RoundNumber,
		Product:       req.Product,
		FromCountry:   from,
		ToCountry:     req.ToCountry,
		Rate:          rate,
		Authoritative: false,
		UpdatedBy:     caller.Username,
		UpdatedAt:     l.clock.Now(),
	}
	l.notifier.TariffUpdated(payload)
	return &payload, nil
}

// submissionWindowError explains why round is not open for submissions, or returns nil.
func submissionWindowError(game *models.Game, round int) error {
	switch {
	case game.Status != models.GameStatusActive:
		return apperr.New(apperr.KindPreconditionFailed, "game is not active")
	case round < 1:
		return apperr.New(apperr.KindPreconditionFailed, "tariff changes are only allowed from round 1 onwards")
	case round != game.CurrentRound:
		return apperr.New(apperr.KindPreconditionFailed, "round %d is not open for submissions, current round is %d", round, game.CurrentRound)
	}
	return nil
}

func (l *Ledger) producedSet(ctx context.Context, gameID uuid.UUID, country string) (map[string]bool, error) {
	products, err := l.repo.ProducedProducts(ctx, gameID, country)
	if err != nil {
		return nil, l.internal(err, gameID, "list produced products")
	}
	set := make(map[string]bool, len(products))
	for _, p := range products {
		set[p] = true
	}
	return set, nil
}

// RatesFor lists rates of a game matching filter.
func (l *Ledger) RatesFor(ctx context.Context, gameID uuid.UUID, filter RateFilter) ([]models.TariffRate, error) {
	if _, err := l.games.Game(ctx, gameID); err != nil {
		return nil, err
	}
	rates, err := l.repo.ListTariffRates(ctx, gameID, filter)
	if err != nil {
		return nil, l.internal(err, gameID, "list tariff rates")
	}
	return rates, nil
}

// HistoryFor groups every rate of a game by round and exporting country,
// newest round first.
func (l *Ledger) HistoryFor(ctx context.Context, gameID uuid.UUID) ([]HistoryEntry, error) {
	rates, err := l.RatesFor(ctx, gameID, RateFilter{})
	if err != nil {
		return nil, err
	}

	type key struct {
		round int
		from  string
	}
	index := make(map[key]int)
	var history []HistoryEntry
	for _, rate := range rates {
		k := key{rate.RoundNumber, rate.FromCountry}
		i, ok := index[k]
		if !ok {
			i = len(history)
			index[k] = i
			history = append(history, HistoryEntry{
				RoundNumber: rate.RoundNumber,
				FromCountry: rate.FromCountry,
				Tariffs:     make(map[string]map[string]int),
			})
		}
		entry := &history[i]
		if entry.Tariffs[rate.Product] == nil {
			entry.Tariffs[rate.Product] = make(map[string]int)
		}
		entry.Tariffs[rate.Product][rate.ToCountry] = rate.Rate
		if rate.SubmittedAt.After(entry.SubmittedAt) {
			entry.SubmittedAt = rate.SubmittedAt
			entry.SubmittedBy = rate.SubmitterName
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		if history[i].RoundNumber != history[j].RoundNumber {
			return history[i].RoundNumber > history[j].RoundNumber
		}
		return history[i].FromCountry < history[j].FromCountry
	})
	return history, nil
}

// PlayerStatus reports which produced products of country still lack a rate
// in round. Round 0 means the game's current round.
func (l *Ledger) PlayerStatus(ctx context.Context, gameID uuid.UUID, country string, round int) (*PlayerStatus, error) {
	if country == "" {
		return nil, apperr.New(apperr.KindPreconditionFailed, "no country is assigned to you")
	}
	game, err := l.games.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if round == 0 {
		round = game.CurrentRound
	}

	products, err := l.repo.ProducedProducts(ctx, gameID, country)
	if err != nil {
		return nil, l.internal(err, gameID, "list produced products")
	}
	rates, err := l.repo.ListTariffRates(ctx, gameID, RateFilter{RoundNumber: &round, FromCountry: country})
	if err != nil {
		return nil, l.internal(err, gameID, "list tariff rates")
	}

	status := &PlayerStatus{
		GameID:            gameID,
		Country:           country,
		RoundNumber:       round,
		CanSubmit:         true,
		ProducedProducts:  nonNil(products),
		SubmittedProducts: []string{},
		PendingProducts:   []string{},
		CurrentTariffs:    rates,
	}

	submitted := make(map[string]bool)
	for _, r := range rates {
		submitted[r.Product] = true
	}
	for _, p := range products {
		if submitted[p] {
			status.SubmittedProducts = append(status.SubmittedProducts, p)
		} else {
			status.PendingProducts = append(status.PendingProducts, p)
		}
	}

	if err := submissionWindowError(game, round); err != nil {
		status.CanSubmit = false
		status.Reason = apperr.PublicMessage(err)
	} else if len(products) == 0 {
		status.CanSubmit = false
		status.Reason = fmt.Sprintf("your country (%s) does not produce any products", country)
	}
	return status, nil
}

// MatrixFor builds the from × to grid for product. With round nil every cell
// shows the most recent round that set it.
func (l *Ledger) MatrixFor(ctx context.Context, gameID uuid.UUID, product string, round *int) (*Matrix, error) {
	game, err := l.games.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if product == "" {
		return nil, apperr.New(apperr.KindValidationFailed, "product is required")
	}
	if len(game.Settings.Products) > 0 && !game.Settings.HasProduct(product) {
		return nil, apperr.New(apperr.KindValidationFailed, "unknown product %q", product)
	}

	rates, err := l.repo.ListTariffRates(ctx, gameID, RateFilter{RoundNumber: round, Product: product})
	if err != nil {
		return nil, l.internal(err, gameID, "list tariff rates")
	}

	matrix := &Matrix{
		GameID:      gameID,
		Product:     product,
		RoundNumber: round,
		Countries:   nonNil(game.Settings.Countries),
		Cells:       make(map[string]map[string]MatrixCell),
	}
	for _, rate := range rates {
		row := matrix.Cells[rate.FromCountry]
		if row == nil {
			row = make(map[string]MatrixCell)
			matrix.Cells[rate.FromCountry] = row
		}
		if existing, ok := row[rate.ToCountry]; ok && existing.RoundNumber >= rate.RoundNumber {
			continue
		}
		row[rate.ToCountry] = MatrixCell{
			Rate:        rate.Rate,
			RoundNumber: rate.RoundNumber,
			SubmittedAt: rate.SubmittedAt,
		}
	}
	return matrix, nil
}

func (l *Ledger) internal(err error, gameID uuid.UUID, op string) error {
	log.Error().Err(err).Str("game_id", gameID.String()).Str("op", op).Msg("tariff ledger failure")
	return apperr.Internal(err)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
