package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const insertProduction = `-- name: InsertProduction :exec
INSERT INTO production (game_id, country, product, quantity) VALUES ($1, $2, $3, $4)`

type InsertProductionParams struct {
	GameID   uuid.UUID `json:"game_id"`
	Country  string    `json:"country"`
	Product  string    `json:"product"`
	Quantity int32     `json:"quantity"`
}

func (q *Queries) InsertProduction(ctx context.Context, arg InsertProductionParams) error {
	_, err := q.db.ExecContext(ctx, insertProduction, arg.GameID, arg.Country, arg.Product, arg.Quantity)
	return err
}

const insertDemand = `-- name: InsertDemand :exec
INSERT INTO demand (game_id, country, product, quantity) VALUES ($1, $2, $3, $4)`

type InsertDemandParams struct {
	GameID   uuid.UUID `json:"game_id"`
	Country  string    `json:"country"`
	Product  string    `json:"product"`
	Quantity int32     `json:"quantity"`
}

func (q *Queries) InsertDemand(ctx context.Context, arg InsertDemandParams) error {
	_, err := q.db.ExecContext(ctx, insertDemand, arg.GameID, arg.Country, arg.Product, arg.Quantity)
	return err
}

const insertBaselineTariff = `-- name: InsertBaselineTariff :exec
INSERT INTO tariff_rates (id, game_id, round_number, product, from_country, to_country, rate, submitted_at)
VALUES ($1, $2, 0, $3, $4, $5, $6, $7)`

type InsertBaselineTariffParams struct {
	ID          uuid.UUID `json:"id"`
	GameID      uuid.UUID `json:"game_id"`
	Product     string    `json:"product"`
	FromCountry string    `json:"from_country"`
	ToCountry   string    `json:"to_country"`
	Rate        int32     `json:"rate"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (q *Queries) InsertBaselineTariff(ctx context.Context, arg InsertBaselineTariffParams) error {
	_, err := q.db.ExecContext(ctx, insertBaselineTariff,
		arg.ID,
		arg.GameID,
		arg.Product,
		arg.FromCountry,
		arg.ToCountry,
		arg.Rate,
		arg.SubmittedAt,
	)
	return err
}

const listProduction = `-- name: ListProduction :many
SELECT game_id, country, product, quantity FROM production
WHERE game_id = $1 ORDER BY product, country`

func (q *Queries) ListProduction(ctx context.Context, gameID uuid.UUID) ([]Production, error) {
	rows, err := q.db.QueryContext(ctx, listProduction, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Production
	for rows.Next() {
		var i Production
		if err := rows.Scan(&i.GameID, &i.Country, &i.Product, &i.Quantity); err != nil {
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

const listDemand = `-- name: ListDemand :many
SELECT game_id, country, product, quantity FROM demand
WHERE game_id = $1 ORDER BY product, country`

func (q *Queries) ListDemand(ctx context.Context, gameID uuid.UUID) ([]Demand, error) {
	rows, err := q.db.QueryContext(ctx, listDemand, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Demand
	for rows.Next() {
		var i Demand
		if err := rows.Scan(&i.GameID, &i.Country, &i.Product, &i.Quantity); err != nil {
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

const deleteProduction = `-- name: DeleteProduction :exec
DELETE FROM production WHERE game_id = $1`

func (q *Queries) DeleteProduction(ctx context.Context, gameID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteProduction, gameID)
	return err
}

const deleteDemand = `-- name: DeleteDemand :exec
DELETE FROM demand WHERE game_id = $1`

func (q *Queries) DeleteDemand(ctx context.Context, gameID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteDemand, gameID)
	return err
}

const deleteTariffRates = `-- name: DeleteTariffRates :exec
DELETE FROM tariff_rates WHERE game_id = $1`

func (q *Queries) DeleteTariffRates(ctx context.Context, gameID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteTariffRates, gameID)
	return err
}
