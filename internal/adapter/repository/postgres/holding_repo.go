package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinrank/coinrank-backend/internal/domain"
)

// holdingRepository implements domain.HoldingRepository.
// The holdings table is maintained by a database trigger applying the
// signed amount of every committed transaction; this repository only
// ever reads it.
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

// ListForUser retrieves the current holdings of one user
func (r *holdingRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Holding, error) {
	query := `
		SELECT user_id, symbol, total_amount
		FROM holdings
		WHERE user_id = $1
		ORDER BY symbol
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanHoldings(rows)
}

// scanHoldings reads (user_id, symbol, total_amount) rows.
// Shared with the valuation store, which runs the all-users variant
// inside its transaction.
func scanHoldings(rows *sql.Rows) ([]*domain.Holding, error) {
	holdings := make([]*domain.Holding, 0)
	for rows.Next() {
		var h domain.Holding
		var amountStr string
		if err := rows.Scan(&h.UserID, &h.Symbol, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse holding amount: %w", err)
		}
		h.TotalAmount = amount
		holdings = append(holdings, &h)
	}
	return holdings, rows.Err()
}
