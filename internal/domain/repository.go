package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetRepository defines the interface for asset registry persistence
type AssetRepository interface {
	// GetBySymbol retrieves an asset by its symbol
	GetBySymbol(ctx context.Context, symbol string) (*Asset, error)

	// Create creates a new asset
	Create(ctx context.Context, asset *Asset) error

	// ListActive retrieves all active assets that carry a feed ID
	ListActive(ctx context.Context) ([]*Asset, error)
}

// PriceRepository defines the interface for price observation persistence
type PriceRepository interface {
	// Append inserts all observations within a single database
	// transaction: either all observations commit or none do.
	Append(ctx context.Context, observations []*PriceObservation) error

	// LatestBySymbol returns the most recent observed price per symbol
	LatestBySymbol(ctx context.Context) (map[string]decimal.Decimal, error)
}

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	// InsertBatch inserts the given transactions within one database
	// transaction, chunked to bound statement size. Rows whose
	// (user_id, external_id) already exists are skipped. Returns the
	// number of rows actually inserted; on error nothing is inserted.
	InsertBatch(ctx context.Context, txs []*Transaction) (int, error)
}

// HoldingRepository defines the read interface over the derived holdings
// ledger. Holdings are never written through this interface.
type HoldingRepository interface {
	// ListForUser retrieves the current holdings of one user
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Holding, error)
}

// BatchRepository defines the interface for ingest batch metadata
type BatchRepository interface {
	// Create persists a new batch in its initial state
	Create(ctx context.Context, batch *IngestBatch) error

	// GetByID retrieves a batch by its ID
	GetByID(ctx context.Context, id string) (*IngestBatch, error)

	// SetStatus updates only the batch status
	SetStatus(ctx context.Context, id string, status BatchStatus) error

	// RecordResult writes the terminal outcome of a run (status, row
	// counts, error detail, completion time) exactly once.
	RecordResult(ctx context.Context, batch *IngestBatch) error
}

// ValuationStore is the view of the store a valuation run operates on.
// All methods are executed against the same database transaction, so
// every user valued in a run sees the same latest-price snapshot.
type ValuationStore interface {
	// HoldingsForAllUsers retrieves every current (user, symbol, amount)
	HoldingsForAllUsers(ctx context.Context) ([]*Holding, error)

	// LatestPrices returns the most recent price per symbol
	LatestPrices(ctx context.Context) (map[string]decimal.Decimal, error)

	// PriorTotals returns, per user, the total value of the most recent
	// time-series snapshot computed at or before the cutoff
	PriorTotals(ctx context.Context, cutoff time.Time) (map[uuid.UUID]decimal.Decimal, error)

	// AppendSnapshots appends rows to the valuation time series
	AppendSnapshots(ctx context.Context, snapshots []*ValuationSnapshot) error

	// UpsertLatest inserts or overwrites the current valuation per user
	UpsertLatest(ctx context.Context, snapshots []*ValuationSnapshot) error
}

// ValuationRepository defines the interface for valuation persistence
type ValuationRepository interface {
	// InTx runs fn against a ValuationStore scoped to one database
	// transaction; any error from fn rolls the whole run back.
	InTx(ctx context.Context, fn func(store ValuationStore) error) error

	// LatestForUser retrieves the current valuation row of one user
	LatestForUser(ctx context.Context, userID uuid.UUID) (*ValuationSnapshot, error)
}

// LeaderboardStore is the view of the store a ranking run operates on,
// scoped to one database transaction.
type LeaderboardStore interface {
	// CurrentValuations retrieves the latest valuation row per user
	CurrentValuations(ctx context.Context) ([]*ValuationSnapshot, error)

	// AppendEntries appends one ranking generation
	AppendEntries(ctx context.Context, entries []*LeaderboardEntry) error
}

// LeaderboardRepository defines the interface for leaderboard persistence
type LeaderboardRepository interface {
	// InTx runs fn against a LeaderboardStore scoped to one database
	// transaction; any error from fn rolls the whole run back.
	InTx(ctx context.Context, fn func(store LeaderboardStore) error) error

	// LatestGeneration retrieves all entries of the most recent
	// snapshot_at, ordered by rank ascending
	LatestGeneration(ctx context.Context) ([]*LeaderboardEntry, error)
}
