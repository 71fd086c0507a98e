package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxType represents the type of a holdings transaction
type TxType string

const (
	TxTypeBuy  TxType = "BUY"
	TxTypeSell TxType = "SELL"
)

// Transaction represents a single accepted holdings transaction.
// Rows are immutable once committed; holdings are derived from them and
// never written directly.
type Transaction struct {
	ID     uuid.UUID
	UserID uuid.UUID
	// ExternalID is the identifier assigned by the originating system.
	// When present, (UserID, ExternalID) is unique — re-ingesting the
	// same external record is a no-op.
	ExternalID *string
	Symbol     string
	Type       TxType
	Amount     decimal.Decimal // ABSOLUTE VALUE (Always Positive)
	OccurredAt time.Time
	BatchID    string
}

// Validate ensures the transaction adheres to domain rules
// Returns an error if validation fails
func (t *Transaction) Validate() error {
	if t.UserID == uuid.Nil {
		return errors.New("transaction must have an owning user")
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return errors.New("transaction symbol cannot be empty")
	}
	if t.Type == "" {
		return errors.New("transaction type cannot be empty")
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("transaction amount must be positive")
	}
	if t.OccurredAt.IsZero() {
		return errors.New("transaction must have an occurred_at timestamp")
	}
	return nil
}

// SignedAmount returns the amount with the sign implied by the
// transaction type: SELL subtracts from the holding, every other type
// adds to it. The holdings ledger applies exactly this rule.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TxTypeSell {
		return t.Amount.Neg()
	}
	return t.Amount
}
