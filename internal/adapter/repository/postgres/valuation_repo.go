package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinrank/coinrank-backend/internal/domain"
)

// valuationRepository implements domain.ValuationRepository
type valuationRepository struct {
	db *DB
}

// NewValuationRepository creates a new valuation repository
func NewValuationRepository(db *DB) domain.ValuationRepository {
	return &valuationRepository{db: db}
}

// InTx runs fn against a store scoped to one database transaction, so
// every read and write of a valuation run shares the same snapshot.
// Any error from fn rolls the whole run back.
func (r *valuationRepository) InTx(ctx context.Context, fn func(domain.ValuationStore) error) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin valuation transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(&valuationStore{tx: dbTx}); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit valuation run: %w", err)
	}
	return nil
}

// LatestForUser retrieves the current valuation row of one user
func (r *valuationRepository) LatestForUser(ctx context.Context, userID uuid.UUID) (*domain.ValuationSnapshot, error) {
	query := `
		SELECT user_id, total_value, pct_change_24h, computed_at
		FROM valuations_latest
		WHERE user_id = $1
	`
	var snap domain.ValuationSnapshot
	var totalStr string
	var pct sql.NullString

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&snap.UserID,
		&totalStr,
		&pct,
		&snap.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrValuationNotFound)
		}
		return nil, fmt.Errorf("failed to get latest valuation: %w", err)
	}

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total_value: %w", err)
	}
	snap.TotalValue = total
	if snap.PctChange24h, err = parseNullDecimal(pct); err != nil {
		return nil, err
	}
	return &snap, nil
}

// valuationStore implements domain.ValuationStore on top of one sql.Tx
type valuationStore struct {
	tx *sql.Tx
}

func (s *valuationStore) HoldingsForAllUsers(ctx context.Context) ([]*domain.Holding, error) {
	query := `
		SELECT user_id, symbol, total_amount
		FROM holdings
		ORDER BY user_id, symbol
	`
	rows, err := s.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	return scanHoldings(rows)
}

func (s *valuationStore) LatestPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	query := `
		SELECT DISTINCT ON (symbol) symbol, price
		FROM price_observations
		ORDER BY symbol, observed_at DESC
	`
	rows, err := s.tx.QueryContext(ctx, query)
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

func (s *valuationStore) PriorTotals(ctx context.Context, cutoff time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	query := `
		SELECT DISTINCT ON (user_id) user_id, total_value
		FROM valuation_snapshots
		WHERE computed_at <= $1
		ORDER BY user_id, computed_at DESC
	`
	rows, err := s.tx.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query prior snapshots: %w", err)
	}
	defer rows.Close()

	priors := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var userID uuid.UUID
		var totalStr string
		if err := rows.Scan(&userID, &totalStr); err != nil {
			return nil, fmt.Errorf("failed to scan prior snapshot: %w", err)
		}
		total, err := decimal.NewFromString(totalStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prior total: %w", err)
		}
		priors[userID] = total
	}
	return priors, rows.Err()
}

func (s *valuationStore) AppendSnapshots(ctx context.Context, snapshots []*domain.ValuationSnapshot) error {
	query := `
		INSERT INTO valuation_snapshots (id, user_id, total_value, pct_change_24h, computed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, snap := range snapshots {
		_, err := s.tx.ExecContext(ctx, query,
			snap.ID,
			snap.UserID,
			snap.TotalValue.String(),
			nullDecimalParam(snap.PctChange24h),
			snap.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert valuation snapshot for user %s: %w", snap.UserID, err)
		}
	}
	return nil
}

func (s *valuationStore) UpsertLatest(ctx context.Context, snapshots []*domain.ValuationSnapshot) error {
	query := `
		INSERT INTO valuations_latest (user_id, total_value, pct_change_24h, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			total_value = EXCLUDED.total_value,
			pct_change_24h = EXCLUDED.pct_change_24h,
			computed_at = EXCLUDED.computed_at
	`
	for _, snap := range snapshots {
		_, err := s.tx.ExecContext(ctx, query,
			snap.UserID,
			snap.TotalValue.String(),
			nullDecimalParam(snap.PctChange24h),
			snap.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert latest valuation for user %s: %w", snap.UserID, err)
		}
	}
	return nil
}
