package market

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Quote is the last known price of an asset as stored in the database.
type Quote struct {
	AssetID           string          `json:"assetId"`
	PriceUSD          decimal.Decimal `json:"priceUsd"`
	ChangePercent24Hr float64         `json:"changePercent24Hr"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// QuoteRepository persists the last known quote per asset.
type QuoteRepository interface {
	SaveQuotes(ctx context.Context, quotes []Quote) error
	GetAllQuotes(ctx context.Context) ([]Quote, error)
}

// PgQuoteRepository implements QuoteRepository with PostgreSQL.
type PgQuoteRepository struct {
	pool *pgxpool.Pool
}

// NewPgQuoteRepository creates a new PostgreSQL quote repository.
func NewPgQuoteRepository(pool *pgxpool.Pool) *PgQuoteRepository {
	return &PgQuoteRepository{pool: pool}
}

func (r *PgQuoteRepository) SaveQuotes(ctx context.Context, quotes []Quote) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, q := range quotes {
		_, err := tx.Exec(ctx,
			`INSERT INTO market_quotes (asset_id, price_usd, change_24h, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (asset_id) DO UPDATE SET price_usd = $2, change_24h = $3, updated_at = NOW()`,
			q.AssetID, q.PriceUSD, q.ChangePercent24Hr)
		if err != nil {
			return fmt.Errorf("saving quote for %s: %w", q.AssetID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing quotes: %w", err)
	}
	return nil
}

func (r *PgQuoteRepository) GetAllQuotes(ctx context.Context) ([]Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT asset_id, price_usd, change_24h, updated_at FROM market_quotes ORDER BY asset_id`)
	if err != nil {
		return nil, fmt.Errorf("getting all quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.AssetID, &q.PriceUSD, &q.ChangePercent24Hr, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
