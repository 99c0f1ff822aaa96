package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const listProducedProducts = `-- name: ListProducedProducts :many
SELECT product FROM production
WHERE game_id = $1 AND country = $2
ORDER BY product`

type ListProducedProductsParams struct {
	GameID  uuid.UUID `json:"game_id"`
	Country string    `json:"country"`
}

func (q *Queries) ListProducedProducts(ctx context.Context, arg ListProducedProductsParams) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listProducedProducts, arg.GameID, arg.Country)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var product string
		if err := rows.Scan(&product); err != nil {
			return nil, err
		}
		items = append(items, product)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// The WHERE on the conflict branch keeps the newest submission when two
// writes for the same key race.
const upsertTariffRate = `-- name: UpsertTariffRate :one
INSERT INTO tariff_rates (id, game_id, round_number, product, from_country, to_country, rate, submitted_by, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (game_id, round_number, product, from_country, to_country) DO UPDATE
SET rate = EXCLUDED.rate, submitted_by = EXCLUDED.submitted_by, submitted_at = EXCLUDED.submitted_at
WHERE tariff_rates.submitted_at <= EXCLUDED.submitted_at
RETURNING id, game_id, round_number, product, from_country, to_country, rate, submitted_by, submitted_at, (xmax = 0) AS inserted`

type UpsertTariffRateParams struct {
	ID          uuid.UUID     `json:"id"`
	GameID      uuid.UUID     `json:"game_id"`
	RoundNumber int32         `json:"round_number"`
	Product     string        `json:"product"`
	FromCountry string        `json:"from_country"`
	ToCountry   string        `json:"to_country"`
	Rate        int32         `json:"rate"`
	SubmittedBy uuid.NullUUID `json:"submitted_by"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

func (q *Queries) UpsertTariffRate(ctx context.Context, arg UpsertTariffRateParams) (UpsertTariffRateRow, error) {
	row := q.db.QueryRowContext(ctx, upsertTariffRate,
		arg.ID,
		arg.GameID,
		arg.RoundNumber,
		arg.Product,
		arg.FromCountry,
		arg.ToCountry,
		arg.Rate,
		arg.SubmittedBy,
		arg.SubmittedAt,
	)
	var i UpsertTariffRateRow
	err := row.Scan(
		&i.ID,
		&i.GameID,
		&i.RoundNumber,
		&i.Product,
		&i.FromCountry,
		&i.ToCountry,
		&i.Rate,
		&i.SubmittedBy,
		&i.SubmittedAt,
		&i.Inserted,
	)
	return i, err
}

const listTariffRates = `-- name: ListTariffRates :many
SELECT tr.id, tr.game_id, tr.round_number, tr.product, tr.from_country, tr.to_country, tr.rate,
       tr.submitted_by, tr.submitted_at, u.username AS submitter_name
FROM tariff_rates tr
LEFT JOIN users u ON u.id = tr.submitted_by
WHERE tr.game_id = $1
  AND ($2::int IS NULL OR tr.round_number = $2::int)
  AND ($3::int IS NULL OR tr.round_number <= $3::int)
  AND ($4::text IS NULL OR tr.product = $4::text)
  AND ($5::text IS NULL OR tr.from_country = $5::text)
  AND ($6::text IS NULL OR tr.to_country = $6::text)
  AND ($7::text[] IS NULL OR tr.product = ANY($7::text[]))
ORDER BY tr.round_number DESC, tr.product, tr.from_country, tr.to_country`

type ListTariffRatesParams struct {
	GameID      uuid.UUID      `json:"game_id"`
	RoundNumber sql.NullInt32  `json:"round_number"`
	MaxRound    sql.NullInt32  `json:"max_round"`
	Product     sql.NullString `json:"product"`
	FromCountry sql.NullString `json:"from_country"`
	ToCountry   sql.NullString `json:"to_country"`
	Products    []string       `json:"products"`
}

func (q *Queries) ListTariffRates(ctx context.Context, arg ListTariffRatesParams) ([]ListTariffRatesRow, error) {
	rows, err := q.db.QueryContext(ctx, listTariffRates,
		arg.GameID,
		arg.RoundNumber,
		arg.MaxRound,
		arg.Product,
		arg.FromCountry,
		arg.ToCountry,
		pq.Array(arg.Products),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListTariffRatesRow
	for rows.Next() {
		var i ListTariffRatesRow
		if err := rows.Scan(
			&i.ID,
			&i.GameID,
			&i.RoundNumber,
			&i.Product,
			&i.FromCountry,
			&i.ToCountry,
			&i.Rate,
			&i.SubmittedBy,
			&i.SubmittedAt,
			&i.SubmitterName,
		); err != nil {
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
