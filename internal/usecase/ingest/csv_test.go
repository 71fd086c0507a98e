package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_CanonicalHeader(t *testing.T) {
	input := strings.Join([]string{
		"external_id,symbol,type,amount,occurred_at",
		"tx-1,BTC,BUY,0.5,2026-08-30T10:00:00Z",
		",ETH,SELL,1.25,2026-08-29",
	}, "\n")

	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "tx-1", records[0].ExternalID)
	assert.Equal(t, "BTC", records[0].Symbol)
	assert.Equal(t, "BUY", records[0].Type)
	assert.Equal(t, "0.5", records[0].Amount)
	assert.Equal(t, "", records[1].ExternalID)
	assert.Equal(t, "2026-08-29", records[1].OccurredAt)
}

func TestReadCSV_AliasedHeader(t *testing.T) {
	// Header names used by the legacy upload format.
	input := strings.Join([]string{
		"external_tx_id,token_symbol,tx_type,amount,occurred_at",
		"tx-2,SOL,BUY,10,2026-08-30 09:30:00",
	}, "\n")

	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tx-2", records[0].ExternalID)
	assert.Equal(t, "SOL", records[0].Symbol)
	assert.Equal(t, "BUY", records[0].Type)
}

func TestReadCSV_ShortRowsYieldEmptyFields(t *testing.T) {
	input := strings.Join([]string{
		"symbol,type,amount,occurred_at",
		"BTC,BUY", // truncated row: missing cells fail validation later
	}, "\n")

	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "BTC", records[0].Symbol)
	assert.Equal(t, "", records[0].Amount)
	assert.Equal(t, "", records[0].OccurredAt)
}

func TestReadCSV_MissingSymbolColumn(t *testing.T) {
	input := "foo,bar\n1,2\n"
	_, err := ReadCSV(strings.NewReader(input))
	assert.Error(t, err)
}

func TestReadCSV_EmptyInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}
