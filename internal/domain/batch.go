package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// BatchStatus represents the lifecycle state of an ingestion batch
type BatchStatus string

const (
	BatchStatusUploaded   BatchStatus = "UPLOADED"
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusPartial    BatchStatus = "PARTIAL"
	BatchStatusFailed     BatchStatus = "FAILED"
)

// ErrInvalidBatchTransition is returned when a batch status change
// violates the lifecycle UPLOADED → PROCESSING → {COMPLETED|PARTIAL|FAILED}.
var ErrInvalidBatchTransition = errors.New("invalid ingest batch status transition")

// RowError records why a single ingested row was rejected.
// Row indexes are 1-based, matching the position in the submitted batch.
type RowError struct {
	Row     int      `json:"row"`
	Reasons []string `json:"reasons"`
}

// IngestBatch holds the metadata of one ingestion run. Terminal states
// are COMPLETED, PARTIAL and FAILED; a re-submission needs a fresh batch
// ID, with previously accepted rows protected by the (user_id,
// external_id) uniqueness invariant.
type IngestBatch struct {
	ID            string // ULID, time-sortable
	UserID        uuid.UUID
	Filename      string
	Status        BatchStatus
	TotalRows     int
	ProcessedRows int
	InvalidRows   int
	ErrorDetail   []RowError
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Terminal reports whether the status is final.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusPartial, BatchStatusFailed:
		return true
	}
	return false
}

// TransitionTo moves the batch to the next lifecycle state.
// Returns ErrInvalidBatchTransition if the move is not allowed.
func (b *IngestBatch) TransitionTo(next BatchStatus) error {
	allowed := map[BatchStatus][]BatchStatus{
		BatchStatusUploaded:   {BatchStatusProcessing},
		BatchStatusProcessing: {BatchStatusCompleted, BatchStatusPartial, BatchStatusFailed},
	}
	for _, s := range allowed[b.Status] {
		if s == next {
			b.Status = next
			return nil
		}
	}
	return ErrInvalidBatchTransition
}
