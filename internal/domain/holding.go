package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holding represents the current aggregated amount of one asset held by
// one user. Holdings are exclusively derived from committed transactions
// (signed sum per user and symbol) and are never written directly by any
// pipeline stage.
type Holding struct {
	UserID      uuid.UUID
	Symbol      string
	TotalAmount decimal.Decimal
}
