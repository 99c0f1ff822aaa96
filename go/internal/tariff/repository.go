package tariff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/econempire/go/internal/models"
	"github.com/mcdev12/econempire/go/internal/sqlutil"
	"github.com/mcdev12/econempire/go/internal/tariff/db"
)

// ErrSuperseded is returned when a newer submission for the same key is already stored.
var ErrSuperseded = errors.New("superseded by a newer submission")

// Querier defines what the repository needs from the database layer
type Querier interface {
	ListProducedProducts(ctx context.Context, arg db.ListProducedProductsParams) ([]string, error)
	UpsertTariffRate(ctx context.Context, arg db.UpsertTariffRateParams) (db.UpsertTariffRateRow, error)
	ListTariffRates(ctx context.Context, arg db.ListTariffRatesParams) ([]db.ListTariffRatesRow, error)
}

// Repository implements tariff data access operations
type Repository struct {
	queries Querier
}

// NewRepository creates a new tariff repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// ProducedProducts lists the products country produces in a game.
func (r *Repository) ProducedProducts(ctx context.Context, gameID uuid.UUID, country string) ([]string, error) {
	products, err := r.queries.ListProducedProducts(ctx, db.ListProducedProductsParams{
		GameID:  gameID,
		Country: country,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list produced products: %w", err)
	}
	return products, nil
}

// UpsertTariffRate writes a rate and reports whether the row was created.
func (r *Repository) UpsertTariffRate(ctx context.Context, params UpsertParams) (*models.TariffRate, bool, error) {
	submittedBy := params.SubmittedBy
	row, err := r.queries.UpsertTariffRate(ctx, db.UpsertTariffRateParams{
		ID:          uuid.New(),
		GameID:      params.GameID,
		RoundNumber: int32(params.RoundNumber),
		Product:     params.Product,
		FromCountry: params.FromCountry,
		ToCountry:   params.ToCountry,
		Rate:        int32(params.Rate),
		SubmittedBy: sqlutil.ToNullUUID(&submittedBy),
		SubmittedAt: params.SubmittedAt,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrSuperseded
		}
		return nil, false, fmt.Errorf("failed to upsert tariff rate: %w", err)
	}
	rate := dbRateToModel(row.TariffRate)
	return &rate, row.Inserted, nil
}

// ListTariffRates lists rates ordered by round (newest first), product, from and to country.
func (r *Repository) ListTariffRates(ctx context.Context, gameID uuid.UUID, filter RateFilter) ([]models.TariffRate, error) {
	params := db.ListTariffRatesParams{
		GameID:      gameID,
		Product:     sqlutil.ToSqlString(filter.Product),
		FromCountry: sqlutil.ToSqlString(filter.FromCountry),
		ToCountry:   sqlutil.ToSqlString(filter.ToCountry),
		Products:    filter.Products,
	}
	if filter.RoundNumber != nil {
		params.RoundNumber = sql.NullInt32{Int32: int32(*filter.RoundNumber), Valid: true}
	}
	if filter.MaxRound != nil {
		params.MaxRound = sql.NullInt32{Int32: int32(*filter.MaxRound), Valid: true}
	}

	rows, err := r.queries.ListTariffRates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list tariff rates: %w", err)
	}

	rates := make([]models.TariffRate, 0, len(rows))
	for _, row := range rows {
		rate := dbRateToModel(row.TariffRate)
		rate.SubmitterName = sqlutil.FromSqlString(row.SubmitterName)
		rates = append(rates, rate)
	}
	return rates, nil
}

func dbRateToModel(t db.TariffRate) models.TariffRate {
	return models.TariffRate{
		ID:          t.ID,
		GameID:      t.GameID,
		RoundNumber: int(t.RoundNumber),
		Product:     t.Product,
		FromCountry: t.FromCountry,
		ToCountry:   t.ToCountry,
		Rate:        int(t.Rate),
		SubmittedBy: sqlutil.FromNullUUID(t.SubmittedBy),
		SubmittedAt: t.SubmittedAt,
	}
}
