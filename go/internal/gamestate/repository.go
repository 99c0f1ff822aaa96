package gamestate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/gamestate/db"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// ErrStateChanged is returned when a conditional update finds the game in a
// different state than the caller expected.
var ErrStateChanged = errors.New("game state changed concurrently")

// Repository implements game persistence on Postgres.
type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

// NewRepository creates a new game repository
func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		db:      database,
		queries: db.New(database),
	}
}

func (r *Repository) inTx(ctx context.Context, fn func(q *db.Queries) error) error {
	return sqlutil.Run(ctx, r.db, r.queries.WithTx, fn)
}

// CreateGame inserts the game and its baseline in one transaction.
func (r *Repository) CreateGame(ctx context.Context, params CreateGameParams, baseline models.Baseline) (*models.Game, error) {
	settings, err := encodeSettings(params.Settings)
	if err != nil {
		return nil, err
	}

	var created db.Game
	err = r.inTx(ctx, func(q *db.Queries) error {
		created, err = q.CreateGame(ctx, db.CreateGameParams{
			ID:          params.ID,
			TotalRounds: int32(params.TotalRounds),
			OperatorID:  params.OperatorID,
			Settings:    settings,
			CreatedAt:   params.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}
		return insertBaseline(ctx, q, params.ID, baseline, params.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return dbGameToModel(created)
}

// GetGame retrieves a game by ID
func (r *Repository) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	game, err := r.queries.GetGame(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return dbGameToModel(game)
}

// ListGames returns every game, newest first.
func (r *Repository) ListGames(ctx context.Context) ([]models.Game, error) {
	rows, err := r.queries.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	games := make([]models.Game, 0, len(rows))
	for _, row := range rows {
		g, err := dbGameToModel(row)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, nil
}

// ListRounds returns the rounds of a game in order.
func (r *Repository) ListRounds(ctx context.Context, gameID uuid.UUID) ([]models.Round, error) {
	rows, err := r.queries.ListRounds(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	rounds := make([]models.Round, 0, len(rows))
	for _, row := range rows {
		rounds = append(rounds, dbRoundToModel(row))
	}
	return rounds, nil
}

// ListProduction returns the production table of a game.
func (r *Repository) ListProduction(ctx context.Context, gameID uuid.UUID) ([]models.ProductionEntry, error) {
	rows, err := r.queries.ListProduction(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list production: %w", err)
	}
	entries := make([]models.ProductionEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.ProductionEntry{
			GameID:   row.GameID,
			Country:  row.Country,
			Product:  row.Product,
			Quantity: int(row.Quantity),
		})
	}
	return entries, nil
}

// ListDemand returns the demand table of a game.
func (r *Repository) ListDemand(ctx context.Context, gameID uuid.UUID) ([]models.DemandEntry, error) {
	rows, err := r.queries.ListDemand(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list demand: %w", err)
	}
	entries := make([]models.DemandEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.DemandEntry{
			GameID:   row.GameID,
			Country:  row.Country,
			Product:  row.Product,
			Quantity: int(row.Quantity),
		})
	}
	return entries, nil
}

// StartGame moves a waiting game to round 1 and opens that round.
func (r *Repository) StartGame(ctx context.Context, gameID uuid.UUID, at time.Time) (*models.Game, error) {
	var updated db.Game
	err := r.inTx(ctx, func(q *db.Queries) error {
		var err error
		updated, err = q.StartGame(ctx, db.StartGameParams{ID: gameID, StartedAt: at})
		if err != nil {
			return conditional(err)
		}
		_, err = q.CreateRound(ctx, db.CreateRoundParams{GameID: gameID, RoundNumber: 1, StartTime: at})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}
	return dbGameToModel(updated)
}

// AdvanceRound closes round fromRound and opens the next one. It fails with
// ErrStateChanged if the game is no longer at fromRound.
func (r *Repository) AdvanceRound(ctx context.Context, gameID uuid.UUID, fromRound int, at time.Time) (*models.Game, error) {
	var updated db.Game
	err := r.inTx(ctx, func(q *db.Queries) error {
		var err error
		updated, err = q.AdvanceGameRound(ctx, db.AdvanceGameRoundParams{
			ID:           gameID,
			CurrentRound: int32(fromRound),
			UpdatedAt:    at,
		})
		if err != nil {
			return conditional(err)
		}
		if _, err := q.CompleteActiveRounds(ctx, db.CompleteActiveRoundsParams{GameID: gameID, EndTime: at}); err != nil {
			return fmt.Errorf("complete round: %w", err)
		}
		_, err = q.CreateRound(ctx, db.CreateRoundParams{
			GameID:      gameID,
			RoundNumber: updated.CurrentRound,
			StartTime:   at,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance round: %w", err)
	}
	return dbGameToModel(updated)
}

// EndGame closes any active round and marks the game ended.
func (r *Repository) EndGame(ctx context.Context, gameID uuid.UUID, at time.Time) (*models.Game, error) {
	var updated db.Game
	err := r.inTx(ctx, func(q *db.Queries) error {
		var err error
		updated, err = q.EndGame(ctx, db.EndGameParams{ID: gameID, EndedAt: at})
		if err != nil {
			return conditional(err)
		}
		_, err = q.CompleteActiveRounds(ctx, db.CompleteActiveRoundsParams{GameID: gameID, EndTime: at})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to end game: %w", err)
	}
	return dbGameToModel(updated)
}

// ResetGame wipes rounds and economy data, returns the game to waiting and
// stores a fresh baseline.
func (r *Repository) ResetGame(ctx context.Context, gameID uuid.UUID, baseline models.Baseline, at time.Time) (*models.Game, error) {
	var updated db.Game
	err := r.inTx(ctx, func(q *db.Queries) error {
		var err error
		if _, err = q.GetGameForUpdate(ctx, gameID); err != nil {
			return err
		}
		if err := q.DeleteTariffRates(ctx, gameID); err != nil {
			return fmt.Errorf("delete tariffs: %w", err)
		}
		if err := q.DeleteProduction(ctx, gameID); err != nil {
			return fmt.Errorf("delete production: %w", err)
		}
		if err := q.DeleteDemand(ctx, gameID); err != nil {
			return fmt.Errorf("delete demand: %w", err)
		}
		if err := q.DeleteRounds(ctx, gameID); err != nil {
			return fmt.Errorf("delete rounds: %w", err)
		}
		updated, err = q.ResetGame(ctx, db.ResetGameParams{ID: gameID, UpdatedAt: at})
		if err != nil {
			return err
		}
		return insertBaseline(ctx, q, gameID, baseline, at)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}
	return dbGameToModel(updated)
}

func insertBaseline(ctx context.Context, q *db.Queries, gameID uuid.UUID, baseline models.Baseline, at time.Time) error {
	for _, p := range baseline.Production {
		if err := q.InsertProduction(ctx, db.InsertProductionParams{
			GameID:   gameID,
			Country:  p.Country,
			Product:  p.Product,
			Quantity: int32(p.Quantity),
		}); err != nil {
			return fmt.Errorf("insert production: %w", err)
		}
	}
	for _, d := range baseline.Demand {
		if err := q.InsertDemand(ctx, db.InsertDemandParams{
			GameID:   gameID,
			Country:  d.Country,
			Product:  d.Product,
			Quantity: int32(d.Quantity),
		}); err != nil {
			return fmt.Errorf("insert demand: %w", err)
		}
	}
	for _, t := range baseline.Tariffs {
		id := t.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if err := q.InsertBaselineTariff(ctx, db.InsertBaselineTariffParams{
			ID:          id,
			GameID:      gameID,
			Product:     t.Product,
			FromCountry: t.FromCountry,
			ToCountry:   t.ToCountry,
			Rate:        int32(t.Rate),
			SubmittedAt: at,
		}); err != nil {
			return fmt.Errorf("insert baseline tariff: %w", err)
		}
	}
	return nil
}

// conditional turns "no row matched the guarded update" into ErrStateChanged.
func conditional(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStateChanged
	}
	return err
}

func encodeSettings(settings models.GameSettings) (pqtype.NullRawMessage, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("encode settings: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

func dbGameToModel(g db.Game) (*models.Game, error) {
	game := &models.Game{
		ID:           g.ID,
		TotalRounds:  int(g.TotalRounds),
		CurrentRound: int(g.CurrentRound),
		Status:       models.GameStatus(g.Status),
		OperatorID:   g.OperatorID,
		StartedAt:    sqlutil.FromSqlTime(g.StartedAt),
		EndedAt:      sqlutil.FromSqlTime(g.EndedAt),
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
	if g.Settings.Valid {
		if err := json.Unmarshal(g.Settings.RawMessage, &game.Settings); err != nil {
			return nil, fmt.Errorf("decode settings for game %s: %w", g.ID, err)
		}
	}
	return game, nil
}

func dbRoundToModel(r db.Round) models.Round {
	return models.Round{
		GameID:      r.GameID,
		RoundNumber: int(r.RoundNumber),
		StartTime:   r.StartTime,
		EndTime:     sqlutil.FromSqlTime(r.EndTime),
		Status:      models.RoundStatus(r.Status),
	}
}
