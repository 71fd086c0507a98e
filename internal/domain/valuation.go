package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// pctScale is the number of decimal places pct_change_24h is rounded to.
const pctScale = 6

// ValuationSnapshot represents one user's total portfolio value at one
// instant. Rows in the time series are append-only; the companion
// "latest" row per user is upserted in place by the valuation engine.
type ValuationSnapshot struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TotalValue decimal.Decimal
	// PctChange24h is nil when no prior snapshot at least 24h older
	// exists, or when the prior value is not positive.
	PctChange24h *decimal.Decimal
	ComputedAt   time.Time
}

// PctChange24h computes the trailing percentage change between a prior
// total and the current total, rounded to 6 decimal places.
// Returns nil when the prior value is zero or negative (division guard).
func PctChange24h(current, prior decimal.Decimal) *decimal.Decimal {
	if prior.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	pct := current.Sub(prior).
		Div(prior).
		Mul(decimal.NewFromInt(100)).
		Round(pctScale)
	return &pct
}
