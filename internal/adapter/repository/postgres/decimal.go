package postgres

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// nullDecimalParam converts an optional decimal into a bind parameter.
func nullDecimalParam(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// parseNullDecimal converts a scanned nullable NUMERIC column back into
// an optional decimal.
func parseNullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse decimal column: %w", err)
	}
	return &d, nil
}
