package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinrank/coinrank-backend/internal/domain"
)

// Format selects the serialization of an export
type Format string

const (
	FormatCSV  Format = "CSV"
	FormatJSON Format = "JSON"
)

// ParseFormat maps a user-supplied format string to a Format.
// Defaults to CSV for an empty string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "CSV":
		return FormatCSV, nil
	case "JSON":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ValuedHolding is one row of an export: a holding priced at the latest
// observation, zero when no observation exists.
type ValuedHolding struct {
	Symbol      string          `json:"symbol"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Value       decimal.Decimal `json:"value_usd"`
}

// Service serializes a user's valued holdings to a downloadable format.
// It is a thin consumer of the holdings and price read models.
type Service struct {
	HoldingRepo domain.HoldingRepository
	PriceRepo   domain.PriceRepository
}

// NewService creates a new export Service instance
func NewService(holdingRepo domain.HoldingRepository, priceRepo domain.PriceRepository) *Service {
	return &Service{
		HoldingRepo: holdingRepo,
		PriceRepo:   priceRepo,
	}
}

// ValuedHoldings returns the user's holdings priced at the latest
// observation per symbol, in repository order.
func (s *Service) ValuedHoldings(ctx context.Context, userID uuid.UUID) ([]ValuedHolding, error) {
	holdings, err := s.HoldingRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings for user %s: %w", userID, err)
	}
	prices, err := s.PriceRepo.LatestBySymbol(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest prices: %w", err)
	}

	rows := make([]ValuedHolding, 0, len(holdings))
	for _, h := range holdings {
		value := decimal.Zero
		if price, ok := prices[h.Symbol]; ok {
			value = h.TotalAmount.Mul(price)
		}
		rows = append(rows, ValuedHolding{
			Symbol:      h.Symbol,
			TotalAmount: h.TotalAmount,
			Value:       value,
		})
	}
	return rows, nil
}

// Export serializes the user's valued holdings.
// Returns the payload and its content type.
func (s *Service) Export(ctx context.Context, userID uuid.UUID, format Format) ([]byte, string, error) {
	rows, err := s.ValuedHoldings(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case FormatCSV:
		payload, err := writeCSV(rows)
		if err != nil {
			return nil, "", err
		}
		return payload, "text/csv", nil
	case FormatJSON:
		payload, err := json.Marshal(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal export: %w", err)
		}
		return payload, "application/json", nil
	}
	return nil, "", fmt.Errorf("unsupported export format %q", format)
}

func writeCSV(rows []ValuedHolding) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"symbol", "total_amount", "value_usd"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.Symbol, row.TotalAmount.String(), row.Value.String()}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}
