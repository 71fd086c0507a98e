package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/coinrank/coinrank-backend/internal/domain"
	"github.com/coinrank/coinrank-backend/internal/logger"
	"github.com/coinrank/coinrank-backend/internal/metrics"
)

// RawRecord is one loosely-typed candidate record from an external bulk
// source. All fields arrive as strings; validation turns a record into a
// domain.Transaction or a domain.RowError, never both.
type RawRecord struct {
	ExternalID string
	Symbol     string
	Type       string
	Amount     string
	OccurredAt string
}

// rowResult tags the outcome of validating one raw record: exactly one
// of tx and invalid is set.
type rowResult struct {
	tx      *domain.Transaction
	invalid *domain.RowError
}

// Accepted timestamp layouts for occurred_at, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Service ingests batches of external transaction records: it validates
// rows individually, applies the valid set idempotently in one database
// transaction, and records the batch outcome exactly once.
type Service struct {
	TransactionRepo domain.TransactionRepository
	BatchRepo       domain.BatchRepository
}

// NewService creates a new ingestion Service instance
func NewService(transactionRepo domain.TransactionRepository, batchRepo domain.BatchRepository) *Service {
	return &Service{
		TransactionRepo: transactionRepo,
		BatchRepo:       batchRepo,
	}
}

// NewBatch registers a fresh ingest batch in the UPLOADED state.
// Batch IDs are ULIDs so listings sort by submission time.
func (s *Service) NewBatch(ctx context.Context, userID uuid.UUID, filename string) (*domain.IngestBatch, error) {
	batch := &domain.IngestBatch{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Filename:  filename,
		Status:    domain.BatchStatusUploaded,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.BatchRepo.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create ingest batch: %w", err)
	}
	return batch, nil
}

// ProcessBatch runs the full ingestion for a batch in the UPLOADED
// state. Row-level validation failures never abort the batch; a failure
// of the insert transaction aborts it with zero rows applied.
//
// The returned batch always reflects the terminal state. The error is
// non-nil only for transactional or metadata failures, not for invalid
// rows.
func (s *Service) ProcessBatch(ctx context.Context, batch *domain.IngestBatch, records []RawRecord) (*domain.IngestBatch, error) {
	if err := batch.TransitionTo(domain.BatchStatusProcessing); err != nil {
		return nil, fmt.Errorf("batch %s cannot start processing: %w", batch.ID, err)
	}
	if err := s.BatchRepo.SetStatus(ctx, batch.ID, domain.BatchStatusProcessing); err != nil {
		return nil, fmt.Errorf("failed to mark batch %s processing: %w", batch.ID, err)
	}

	valid := make([]*domain.Transaction, 0, len(records))
	rowErrors := make([]domain.RowError, 0)
	for i, rec := range records {
		res := validateRecord(batch.UserID, batch.ID, i+1, rec)
		if res.invalid != nil {
			rowErrors = append(rowErrors, *res.invalid)
			continue
		}
		valid = append(valid, res.tx)
	}

	inserted := 0
	var insertErr error
	if len(valid) > 0 {
		inserted, insertErr = s.TransactionRepo.InsertBatch(ctx, valid)
	}

	now := time.Now().UTC()
	batch.TotalRows = len(records)
	batch.InvalidRows = len(rowErrors)
	batch.ErrorDetail = rowErrors
	batch.CompletedAt = &now

	var terminal domain.BatchStatus
	switch {
	case insertErr != nil:
		// Rollback happened inside the repository; nothing was applied.
		terminal = domain.BatchStatusFailed
		batch.ProcessedRows = 0
		batch.ErrorDetail = append(batch.ErrorDetail, domain.RowError{
			Row:     0, // row 0 marks a batch-level failure
			Reasons: []string{insertErr.Error()},
		})
		logger.L.Error("ingest insert transaction failed",
			"batchID", batch.ID, "userID", batch.UserID, "error", insertErr)
	case len(valid) == 0:
		terminal = domain.BatchStatusFailed
		batch.ProcessedRows = 0
	case len(rowErrors) > 0:
		terminal = domain.BatchStatusPartial
		batch.ProcessedRows = inserted
	default:
		terminal = domain.BatchStatusCompleted
		batch.ProcessedRows = inserted
	}

	if err := batch.TransitionTo(terminal); err != nil {
		return nil, err
	}
	if err := s.BatchRepo.RecordResult(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to record result of batch %s: %w", batch.ID, err)
	}

	metrics.IngestedRows.Add(float64(batch.ProcessedRows))
	metrics.InvalidRows.Add(float64(batch.InvalidRows))
	logger.L.Info("ingest batch finished",
		"batchID", batch.ID,
		"userID", batch.UserID,
		"status", batch.Status,
		"total", batch.TotalRows,
		"processed", batch.ProcessedRows,
		"invalid", batch.InvalidRows,
	)

	if insertErr != nil {
		return batch, fmt.Errorf("batch %s failed: %w", batch.ID, insertErr)
	}
	return batch, nil
}

// validateRecord applies field-level validation to one raw record.
// Row indexes are 1-based for operator-facing error detail.
func validateRecord(userID uuid.UUID, batchID string, row int, rec RawRecord) rowResult {
	reasons := make([]string, 0)

	symbol := strings.ToUpper(strings.TrimSpace(rec.Symbol))
	if symbol == "" {
		reasons = append(reasons, "symbol missing")
	}

	txType := strings.ToUpper(strings.TrimSpace(rec.Type))
	if txType == "" {
		reasons = append(reasons, "type missing")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(rec.Amount))
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		reasons = append(reasons, "amount invalid")
	}

	occurredAt, err := parseTimestamp(rec.OccurredAt)
	if err != nil {
		reasons = append(reasons, "occurred_at invalid")
	}

	if len(reasons) > 0 {
		return rowResult{invalid: &domain.RowError{Row: row, Reasons: reasons}}
	}

	tx := &domain.Transaction{
		ID:         uuid.New(),
		UserID:     userID,
		Symbol:     symbol,
		Type:       domain.TxType(txType),
		Amount:     amount,
		OccurredAt: occurredAt,
		BatchID:    batchID,
	}
	if extID := strings.TrimSpace(rec.ExternalID); extID != "" {
		tx.ExternalID = &extID
	}
	return rowResult{tx: tx}
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
