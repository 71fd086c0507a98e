package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coinrank/coinrank-backend/internal/domain"
)

// leaderboardRepository implements domain.LeaderboardRepository
type leaderboardRepository struct {
	db *DB
}

// NewLeaderboardRepository creates a new leaderboard repository
func NewLeaderboardRepository(db *DB) domain.LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

// InTx runs fn against a store scoped to one database transaction, so a
// ranking generation is read and written atomically.
func (r *leaderboardRepository) InTx(ctx context.Context, fn func(domain.LeaderboardStore) error) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin leaderboard transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(&leaderboardStore{tx: dbTx}); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit leaderboard run: %w", err)
	}
	return nil
}

// LatestGeneration retrieves all entries of the most recent snapshot_at,
// ordered by rank ascending
func (r *leaderboardRepository) LatestGeneration(ctx context.Context) ([]*domain.LeaderboardEntry, error) {
	query := `
		SELECT id, snapshot_at, user_id, rank, total_value, pct_change_24h
		FROM leaderboard_entries
		WHERE snapshot_at = (SELECT MAX(snapshot_at) FROM leaderboard_entries)
		ORDER BY rank, user_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.LeaderboardEntry, 0)
	for rows.Next() {
		var entry domain.LeaderboardEntry
		var totalStr string
		var pct sql.NullString
		if err := rows.Scan(&entry.ID, &entry.SnapshotAt, &entry.UserID, &entry.Rank, &totalStr, &pct); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		total, err := decimal.NewFromString(totalStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total_value: %w", err)
		}
		entry.TotalValue = total
		if entry.PctChange24h, err = parseNullDecimal(pct); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// leaderboardStore implements domain.LeaderboardStore on top of one sql.Tx
type leaderboardStore struct {
	tx *sql.Tx
}

func (s *leaderboardStore) CurrentValuations(ctx context.Context) ([]*domain.ValuationSnapshot, error) {
	query := `
		SELECT user_id, total_value, pct_change_24h, computed_at
		FROM valuations_latest
	`
	rows, err := s.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query current valuations: %w", err)
	}
	defer rows.Close()

	valuations := make([]*domain.ValuationSnapshot, 0)
	for rows.Next() {
		var snap domain.ValuationSnapshot
		var totalStr string
		var pct sql.NullString
		if err := rows.Scan(&snap.UserID, &totalStr, &pct, &snap.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan current valuation: %w", err)
		}
		total, err := decimal.NewFromString(totalStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total_value: %w", err)
		}
		snap.TotalValue = total
		if snap.PctChange24h, err = parseNullDecimal(pct); err != nil {
			return nil, err
		}
		valuations = append(valuations, &snap)
	}
	return valuations, rows.Err()
}

func (s *leaderboardStore) AppendEntries(ctx context.Context, entries []*domain.LeaderboardEntry) error {
	query := `
		INSERT INTO leaderboard_entries (id, snapshot_at, user_id, rank, total_value, pct_change_24h)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, entry := range entries {
		_, err := s.tx.ExecContext(ctx, query,
			entry.ID,
			entry.SnapshotAt,
			entry.UserID,
			entry.Rank,
			entry.TotalValue.String(),
			nullDecimalParam(entry.PctChange24h),
		)
		if err != nil {
			return fmt.Errorf("failed to insert leaderboard entry for user %s: %w", entry.UserID, err)
		}
	}
	return nil
}
