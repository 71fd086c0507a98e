package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coinrank/coinrank-backend/internal/domain"
)

// batchRepository implements domain.BatchRepository
type batchRepository struct {
	db *DB
}

// NewBatchRepository creates a new ingest batch repository
func NewBatchRepository(db *DB) domain.BatchRepository {
	return &batchRepository{db: db}
}

// Create persists a new batch in its initial state
func (r *batchRepository) Create(ctx context.Context, batch *domain.IngestBatch) error {
	query := `
		INSERT INTO ingest_batches (id, user_id, filename, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		batch.ID,
		batch.UserID,
		batch.Filename,
		string(batch.Status),
		batch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ingest batch: %w", err)
	}
	return nil
}

// GetByID retrieves a batch by its ID
func (r *batchRepository) GetByID(ctx context.Context, id string) (*domain.IngestBatch, error) {
	query := `
		SELECT id, user_id, filename, status, total_rows, processed_rows, invalid_rows, error_detail, created_at, completed_at
		FROM ingest_batches
		WHERE id = $1
	`
	var batch domain.IngestBatch
	var status string
	var errorDetail []byte
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&batch.ID,
		&batch.UserID,
		&batch.Filename,
		&status,
		&batch.TotalRows,
		&batch.ProcessedRows,
		&batch.InvalidRows,
		&errorDetail,
		&batch.CreatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("batch %s: %w", id, domain.ErrBatchNotFound)
		}
		return nil, fmt.Errorf("failed to get ingest batch %s: %w", id, err)
	}

	batch.Status = domain.BatchStatus(status)
	if len(errorDetail) > 0 {
		if err := json.Unmarshal(errorDetail, &batch.ErrorDetail); err != nil {
			return nil, fmt.Errorf("failed to parse error detail of batch %s: %w", id, err)
		}
	}
	if completedAt.Valid {
		batch.CompletedAt = &completedAt.Time
	}
	return &batch, nil
}

// SetStatus updates only the batch status
func (r *batchRepository) SetStatus(ctx context.Context, id string, status domain.BatchStatus) error {
	query := `UPDATE ingest_batches SET status = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update status of batch %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("batch %s: %w", id, domain.ErrBatchNotFound)
	}
	return nil
}

// RecordResult writes the terminal outcome of a run exactly once
func (r *batchRepository) RecordResult(ctx context.Context, batch *domain.IngestBatch) error {
	errorDetail, err := json.Marshal(batch.ErrorDetail)
	if err != nil {
		return fmt.Errorf("failed to marshal error detail: %w", err)
	}

	query := `
		UPDATE ingest_batches
		SET status = $2,
		    total_rows = $3,
		    processed_rows = $4,
		    invalid_rows = $5,
		    error_detail = $6,
		    completed_at = $7
		WHERE id = $1
	`
	_, err = r.db.ExecContext(ctx, query,
		batch.ID,
		string(batch.Status),
		batch.TotalRows,
		batch.ProcessedRows,
		batch.InvalidRows,
		errorDetail,
		batch.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record result of batch %s: %w", batch.ID, err)
	}
	return nil
}
