// Package gamestate owns the canonical state of each game: the persisted
// game and round rows, the per-game locks that serialize mutations, and the
// server-side round timers.
package gamestate

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/econempire/go/internal/apperr"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/rs/zerolog/log"
)

// GameRepository defines what the store needs from persistence
type GameRepository interface {
	CreateGame(ctx context.Context, params CreateGameParams, baseline models.Baseline) (*models.Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	ListGames(ctx context.Context) ([]models.Game, error)
	ListRounds(ctx context.Context, gameID uuid.UUID) ([]models.Round, error)
	ListProduction(ctx context.Context, gameID uuid.UUID) ([]models.ProductionEntry, error)
	ListDemand(ctx context.Context, gameID uuid.UUID) ([]models.DemandEntry, error)
	StartGame(ctx context.Context, gameID uuid.UUID, at time.Time) (*models.Game, error)
	AdvanceRound(ctx context.Context, gameID uuid.UUID, fromRound int, at time.Time) (*models.Game, error)
	EndGame(ctx context.Context, gameID uuid.UUID, at time.Time) (*models.Game, error)
	ResetGame(ctx context.Context, gameID uuid.UUID, baseline models.Baseline, at time.Time) (*models.Game, error)
}

// CreateGameParams describes a new game. The ID is chosen by the caller so the
// baseline can reference it before the row exists.
type CreateGameParams struct {
	ID          uuid.UUID
	TotalRounds int
	OperatorID  uuid.UUID
	Settings    models.GameSettings
	CreatedAt   time.Time
}

// Store is the single owner of per-game state.
type Store struct {
	repo  GameRepository
	clock clockwork.Clock

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.RWMutex

	timersMu sync.RWMutex
	timers   map[uuid.UUID]*RoundTimer
}

// NewStore creates a store backed by repo.
func NewStore(repo GameRepository, clock clockwork.Clock) *Store {
	return &Store{
		repo:   repo,
		clock:  clock,
		locks:  make(map[uuid.UUID]*sync.RWMutex),
		timers: make(map[uuid.UUID]*RoundTimer),
	}
}

// Clock returns the store's time source.
func (s *Store) Clock() clockwork.Clock {
	return s.clock
}

func (s *Store) lockFor(gameID uuid.UUID) *sync.RWMutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[gameID]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[gameID] = l
	}
	return l
}

// Lock takes the exclusive lifecycle lock of a game. Lifecycle changes hold it
// for their whole read-modify-write.
func (s *Store) Lock(gameID uuid.UUID) (unlock func()) {
	l := s.lockFor(gameID)
	l.Lock()
	return l.Unlock
}

// RLock takes the shared lock of a game. Tariff submissions hold it so a round
// cannot close underneath them.
func (s *Store) RLock(gameID uuid.UUID) (unlock func()) {
	l := s.lockFor(gameID)
	l.RLock()
	return l.RUnlock
}

// Game loads a game, returning NotFound for unknown ids.
func (s *Store) Game(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	game, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, s.translate(err, gameID, "load game")
	}
	return game, nil
}

// Games lists every game.
func (s *Store) Games(ctx context.Context) ([]models.Game, error) {
	games, err := s.repo.ListGames(ctx)
	if err != nil {
		return nil, s.translate(err, uuid.Nil, "list games")
	}
	return games, nil
}

// Rounds lists the rounds of a game.
func (s *Store) Rounds(ctx context.Context, gameID uuid.UUID) ([]models.Round, error) {
	rounds, err := s.repo.ListRounds(ctx, gameID)
	if err != nil {
		return nil, s.translate(err, gameID, "list rounds")
	}
	return rounds, nil
}

// Production lists the production table of a game.
func (s *Store) Production(ctx context.Context, gameID uuid.UUID) ([]models.ProductionEntry, error) {
	entries, err := s.repo.ListProduction(ctx, gameID)
	if err != nil {
		return nil, s.translate(err, gameID, "list production")
	}
	return entries, nil
}

// Demand lists the demand table of a game.
func (s *Store) Demand(ctx context.Context, gameID uuid.UUID) ([]models.DemandEntry, error) {
	entries, err := s.repo.ListDemand(ctx, gameID)
	if err != nil {
		return nil, s.translate(err, gameID, "list demand")
	}
	return entries, nil
}

// Create persists a new waiting game with its baseline.
func (s *Store) Create(ctx context.Context, params CreateGameParams, baseline models.Baseline) (*models.Game, error) {
	game, err := s.repo.CreateGame(ctx, params, baseline)
	if err != nil {
		return nil, s.translate(err, params.ID, "create game")
	}
	return game, nil
}

// Start moves a waiting game to round 1. Callers must hold Lock.
func (s *Store) Start(ctx context.Context, gameID uuid.UUID, at time.Time) (*models.Game, error) {
	game, err := s.repo.StartGame(ctx, gameID, at)
	if err != nil {
		return nil, s.translate(err, gameID, "start game")
	}
	return game, nil
}

// Advance closes fromRound and opens the next. Callers must hold Lock.
func (s *Store) Advance(ctx context.Context, gameID uuid.UUID, fromRound int, at time.Time) (*models.Game, error) {
	game, err := s.repo.AdvanceRound(ctx, gameID, fromRound, at)
	if err != nil {
		return nil, s.translate(err, gameID, "advance round")
	}
	return game, nil
}

// End closes the game. Callers must hold Lock.
func (s *Store) End(ctx context.Context, gameID uuid.UUID, at time.Time) (*models.Game, error) {
	game, err := s.repo.EndGame(ctx, gameID, at)
	if err != nil {
		return nil, s.translate(err, gameID, "end game")
	}
	return game, nil
}

// Reset returns the game to waiting with a fresh baseline. Callers must hold Lock.
func (s *Store) Reset(ctx context.Context, gameID uuid.UUID, baseline models.Baseline, at time.Time) (*models.Game, error) {
	game, err := s.repo.ResetGame(ctx, gameID, baseline, at)
	if err != nil {
		return nil, s.translate(err, gameID, "reset game")
	}
	return game, nil
}

// translate maps repository failures onto the error taxonomy. Unexpected
// errors are logged here and reach the caller redacted.
func (s *Store) translate(err error, gameID uuid.UUID, op string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.Wrap(apperr.KindNotFound, err, "game not found")
	case errors.Is(err, ErrStateChanged):
		return apperr.Wrap(apperr.KindPreconditionFailed, err, "game state changed, reload and retry")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	log.Error().Err(err).Str("game_id", gameID.String()).Str("op", op).Msg("game store failure")
	return apperr.Internal(err)
}
