package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceObservation represents one observed price for an asset symbol.
// Observations are append-only and immutable once written; the current
// price of a symbol is its most recent observation by ObservedAt.
type PriceObservation struct {
	ID         uuid.UUID
	Symbol     string
	Price      decimal.Decimal
	Source     string
	ObservedAt time.Time
}

// Validate ensures the observation adheres to domain rules
func (p *PriceObservation) Validate() error {
	if p.Symbol == "" {
		return errors.New("price observation symbol cannot be empty")
	}
	if p.Price.LessThanOrEqual(decimal.Zero) {
		return errors.New("price must be positive")
	}
	if p.ObservedAt.IsZero() {
		return errors.New("price observation must have an observed_at timestamp")
	}
	return nil
}
