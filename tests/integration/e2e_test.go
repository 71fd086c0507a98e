//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinrank/coinrank-backend/internal/adapter/repository/postgres"
	"github.com/coinrank/coinrank-backend/internal/domain"
	"github.com/coinrank/coinrank-backend/internal/usecase/ingest"
	"github.com/coinrank/coinrank-backend/internal/usecase/leaderboard"
	"github.com/coinrank/coinrank-backend/internal/usecase/seeder"
	"github.com/coinrank/coinrank-backend/internal/usecase/valuation"
)

var db *postgres.DB

// TestMain sets up a clean database for the pipeline run
func TestMain(m *testing.M) {
	var err error
	db, err = postgres.NewDB(getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()

	if err := db.Migrate("../../migrations"); err != nil {
		panic(fmt.Sprintf("Failed to run migrations: %v", err))
	}
	if err := truncateAll(context.Background()); err != nil {
		panic(fmt.Sprintf("Failed to reset tables: %v", err))
	}

	os.Exit(m.Run())
}

func getDBConnectionString() string {
	if s := os.Getenv("DB_CONN_STR"); s != "" {
		return s
	}
	return "host=localhost port=5432 user=postgres password=postgres dbname=coinrank_test sslmode=disable"
}

func truncateAll(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE leaderboard_entries, valuations_latest, valuation_snapshots,
		         holdings, transactions, ingest_batches, price_observations, assets
	`)
	return err
}

func seedMarket(t *testing.T, ctx context.Context) {
	t.Helper()

	assetRepo := postgres.NewAssetRepository(db)
	assetSeeder := seeder.NewAssetSeeder(assetRepo)
	require.NoError(t, assetSeeder.Seed(ctx, []seeder.SeedAsset{
		{Symbol: "BTC", Name: "Bitcoin", FeedID: "bitcoin", Decimals: 8},
		{Symbol: "ETH", Name: "Ethereum", FeedID: "ethereum", Decimals: 18},
	}))

	priceRepo := postgres.NewPriceRepository(db)
	now := time.Now().UTC()
	require.NoError(t, priceRepo.Append(ctx, []*domain.PriceObservation{
		{ID: uuid.New(), Symbol: "BTC", Price: decimal.RequireFromString("50000"), Source: "test", ObservedAt: now},
		{ID: uuid.New(), Symbol: "ETH", Price: decimal.RequireFromString("2500"), Source: "test", ObservedAt: now},
	}))
}

func ingestRecords(t *testing.T, ctx context.Context, userID uuid.UUID, records []ingest.RawRecord) *domain.IngestBatch {
	t.Helper()

	service := ingest.NewService(postgres.NewTransactionRepository(db), postgres.NewBatchRepository(db))
	batch, err := service.NewBatch(ctx, userID, "e2e.csv")
	require.NoError(t, err)
	batch, err = service.ProcessBatch(ctx, batch, records)
	require.NoError(t, err)
	return batch
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	seedMarket(t, ctx)

	alice := uuid.New()
	bob := uuid.New()

	// Alice: 0.5 BTC and 4 ETH bought, 2 ETH sold -> 0.5 BTC + 2 ETH.
	batch := ingestRecords(t, ctx, alice, []ingest.RawRecord{
		{ExternalID: "a-1", Symbol: "BTC", Type: "BUY", Amount: "0.5", OccurredAt: "2026-01-01T00:00:00Z"},
		{ExternalID: "a-2", Symbol: "ETH", Type: "BUY", Amount: "4", OccurredAt: "2026-01-02T00:00:00Z"},
		{ExternalID: "a-3", Symbol: "eth", Type: "sell", Amount: "2", OccurredAt: "2026-01-03T00:00:00Z"},
	})
	assert.Equal(t, domain.BatchStatusCompleted, batch.Status)
	assert.Equal(t, 3, batch.ProcessedRows)

	// Bob: 1 ETH.
	ingestRecords(t, ctx, bob, []ingest.RawRecord{
		{ExternalID: "b-1", Symbol: "ETH", Type: "BUY", Amount: "1", OccurredAt: "2026-01-01T00:00:00Z"},
	})

	// Re-submitting Alice's file must not change holdings.
	rerun := ingestRecords(t, ctx, alice, []ingest.RawRecord{
		{ExternalID: "a-1", Symbol: "BTC", Type: "BUY", Amount: "0.5", OccurredAt: "2026-01-01T00:00:00Z"},
		{ExternalID: "a-2", Symbol: "ETH", Type: "BUY", Amount: "4", OccurredAt: "2026-01-02T00:00:00Z"},
		{ExternalID: "a-3", Symbol: "ETH", Type: "SELL", Amount: "2", OccurredAt: "2026-01-03T00:00:00Z"},
	})
	assert.Equal(t, domain.BatchStatusCompleted, rerun.Status)
	assert.Equal(t, 0, rerun.ProcessedRows)

	// Holdings derived by the database trigger.
	holdings, err := postgres.NewHoldingRepository(db).ListForUser(ctx, alice)
	require.NoError(t, err)
	bySymbol := make(map[string]decimal.Decimal, len(holdings))
	for _, h := range holdings {
		bySymbol[h.Symbol] = h.TotalAmount
	}
	assert.True(t, bySymbol["BTC"].Equal(decimal.RequireFromString("0.5")))
	assert.True(t, bySymbol["ETH"].Equal(decimal.RequireFromString("2")))

	// Valuation: Alice 0.5*50000 + 2*2500 = 30000, Bob 1*2500 = 2500.
	valuationRepo := postgres.NewValuationRepository(db)
	count, err := valuation.NewService(valuationRepo).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	aliceSnap, err := valuationRepo.LatestForUser(ctx, alice)
	require.NoError(t, err)
	assert.True(t, aliceSnap.TotalValue.Equal(decimal.RequireFromString("30000")),
		"got %s", aliceSnap.TotalValue)
	assert.Nil(t, aliceSnap.PctChange24h, "first snapshot has no 24h baseline")

	// Leaderboard: Alice first, Bob second.
	leaderboardService := leaderboard.NewService(postgres.NewLeaderboardRepository(db))
	count, err = leaderboardService.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	entries, err := leaderboardService.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, alice, entries[0].UserID)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, bob, entries[1].UserID)
}

func TestPipelinePartialBatch(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	batch := ingestRecords(t, ctx, userID, []ingest.RawRecord{
		{ExternalID: "p-1", Symbol: "BTC", Type: "BUY", Amount: "1", OccurredAt: "2026-02-01T00:00:00Z"},
		{ExternalID: "p-2", Symbol: "", Type: "BUY", Amount: "not-a-number", OccurredAt: "2026-02-01T00:00:00Z"},
	})
	assert.Equal(t, domain.BatchStatusPartial, batch.Status)
	assert.Equal(t, 1, batch.ProcessedRows)
	assert.Equal(t, 1, batch.InvalidRows)

	// Batch metadata round-trips through the store, error detail included.
	stored, err := postgres.NewBatchRepository(db).GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusPartial, stored.Status)
	require.Len(t, stored.ErrorDetail, 1)
	assert.Equal(t, 2, stored.ErrorDetail[0].Row)
	require.NotNil(t, stored.CompletedAt)
}
