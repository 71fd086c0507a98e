package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coinrank/coinrank-backend/internal/domain"
)

// priceRepository implements domain.PriceRepository
type priceRepository struct {
	db *DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *DB) domain.PriceRepository {
	return &priceRepository{db: db}
}

// Append inserts all observations in a single database transaction
func (r *priceRepository) Append(ctx context.Context, observations []*domain.PriceObservation) error {
	if len(observations) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO price_observations (id, symbol, price, source, observed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, obs := range observations {
		_, err := dbTx.ExecContext(ctx, query,
			obs.ID,
			obs.Symbol,
			obs.Price.String(),
			obs.Source,
			obs.ObservedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert price observation for %s: %w", obs.Symbol, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price observations: %w", err)
	}
	return nil
}

// LatestBySymbol returns the most recent observed price per symbol
func (r *priceRepository) LatestBySymbol(ctx context.Context) (map[string]decimal.Decimal, error) {
	query := `
		SELECT DISTINCT ON (symbol) symbol, price
		FROM price_observations
		ORDER BY symbol, observed_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]decimal.Decimal)
	for rows.Next() {
		var symbol, priceStr string
		if err := rows.Scan(&symbol, &priceStr); err != nil {
			return nil, fmt.Errorf("failed to scan latest price: %w", err)
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price for %s: %w", symbol, err)
		}
		prices[symbol] = price
	}
	return prices, rows.Err()
}
