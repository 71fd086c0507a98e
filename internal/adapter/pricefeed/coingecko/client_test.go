package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplePrices_DecodesUSDQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":50000.12},"ethereum":{"usd":3000}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 60)
	prices, err := client.SimplePrices(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)

	require.Len(t, prices, 2)
	assert.True(t, prices["bitcoin"].Equal(decimal.RequireFromString("50000.12")))
	assert.True(t, prices["ethereum"].Equal(decimal.NewFromInt(3000)))
}

func TestSimplePrices_UnknownIDAbsentFromResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":50000}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 60)
	prices, err := client.SimplePrices(context.Background(), []string{"bitcoin", "no-such-coin"})
	require.NoError(t, err)

	require.Len(t, prices, 1)
	_, ok := prices["no-such-coin"]
	assert.False(t, ok)
}

func TestSimplePrices_NonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, 60)
	_, err := client.SimplePrices(context.Background(), []string{"bitcoin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSimplePrices_MalformedPayloadIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 60)
	_, err := client.SimplePrices(context.Background(), []string{"bitcoin"})
	assert.Error(t, err)
}

func TestSimplePrices_MissingUSDQuoteSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 60)
	prices, err := client.SimplePrices(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	assert.Empty(t, prices)
}
