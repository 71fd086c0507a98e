package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/coinrank/coinrank-backend/internal/domain"
)

// insertChunkSize bounds the number of rows per INSERT statement so the
// parameter count stays well under the Postgres limit (8 per row).
const insertChunkSize = 500

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

// InsertBatch inserts all transactions within one database transaction,
// chunked to bound statement size. Rows whose (user_id, external_id)
// already exists are skipped by the conflict rule; the returned count is
// the number of rows actually inserted. Either every chunk commits or
// the whole batch rolls back.
func (r *transactionRepository) InsertBatch(ctx context.Context, txs []*domain.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	inserted := 0
	for start := 0; start < len(txs); start += insertChunkSize {
		end := min(start+insertChunkSize, len(txs))
		n, err := insertChunk(ctx, dbTx, txs[start:end])
		if err != nil {
			return 0, err
		}
		inserted += n
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction batch: %w", err)
	}
	return inserted, nil
}

// insertChunk issues one multi-row INSERT for up to insertChunkSize
// transactions and returns how many rows the conflict rule let through.
func insertChunk(ctx context.Context, dbTx *sql.Tx, txs []*domain.Transaction) (int, error) {
	const cols = 8
	valueClauses := make([]string, 0, len(txs))
	params := make([]any, 0, len(txs)*cols)

	for i, tx := range txs {
		base := i * cols
		valueClauses = append(valueClauses, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		var externalID any
		if tx.ExternalID != nil {
			externalID = *tx.ExternalID
		}
		params = append(params,
			tx.ID,
			tx.UserID,
			externalID,
			tx.Symbol,
			string(tx.Type),
			tx.Amount.String(),
			tx.OccurredAt,
			tx.BatchID,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO transactions (id, user_id, external_id, symbol, tx_type, amount, occurred_at, batch_id)
		VALUES %s
		ON CONFLICT (user_id, external_id) WHERE external_id IS NOT NULL DO NOTHING
	`, strings.Join(valueClauses, ","))

	res, err := dbTx.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction chunk: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count inserted rows: %w", err)
	}
	return int(affected), nil
}
