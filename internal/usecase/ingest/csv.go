package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Header aliases accepted in uploaded files. The canonical names are the
// first entry of each list; the alternates match common broker exports.
var headerAliases = map[string][]string{
	"external_id": {"external_id", "external_tx_id", "tx_id"},
	"symbol":      {"symbol", "token_symbol", "asset"},
	"type":        {"type", "tx_type", "side"},
	"amount":      {"amount", "quantity", "qty"},
	"occurred_at": {"occurred_at", "date", "timestamp"},
}

// ReadCSV parses an uploaded CSV stream with a header row into raw
// records. Only the header is required to be well-formed here; field
// content is validated row by row during ingestion, so a malformed value
// surfaces as a row error rather than a parse failure.
func ReadCSV(r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Rows with a wrong column count are still returned; missing cells
	// become empty strings and fail row validation downstream.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	idx := columnIndexes(header)
	if _, ok := idx["symbol"]; !ok {
		return nil, fmt.Errorf("CSV header has no symbol column")
	}

	records := make([]RawRecord, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		records = append(records, RawRecord{
			ExternalID: cell(row, idx, "external_id"),
			Symbol:     cell(row, idx, "symbol"),
			Type:       cell(row, idx, "type"),
			Amount:     cell(row, idx, "amount"),
			OccurredAt: cell(row, idx, "occurred_at"),
		})
	}
	return records, nil
}

// columnIndexes maps canonical field names to column positions.
func columnIndexes(header []string) map[string]int {
	idx := make(map[string]int)
	for pos, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for canonical, aliases := range headerAliases {
			for _, alias := range aliases {
				if name == alias {
					if _, taken := idx[canonical]; !taken {
						idx[canonical] = pos
					}
				}
			}
		}
	}
	return idx
}

func cell(row []string, idx map[string]int, field string) string {
	pos, ok := idx[field]
	if !ok || pos >= len(row) {
		return ""
	}
	return row[pos]
}
