package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
)

const transactionColumns = `id, group_id, bill_id, debt_id, from_user_id, to_user_id, amount, type,
	status, method, metadata, created_at, updated_at, analytics_applied_at`

// CreateTransaction appends a transaction to the log.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	metadata, err := encodeJSON(t.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.GroupID, t.BillID, t.DebtID, t.FromUserID, t.ToUserID, t.Amount, t.Type,
		t.Status, t.Method, metadata, toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
		nullableMillis(t.AnalyticsAppliedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// ListUnappliedTransactions returns the oldest transactions whose analytics
// are still pending.
func (s *SQLiteStore) ListUnappliedTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE analytics_applied_at IS NULL ORDER BY created_at, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var metadata string
	var createdAt, updatedAt int64
	var appliedAt sql.NullInt64
	err := row.Scan(
		&t.ID, &t.GroupID, &t.BillID, &t.DebtID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Type,
		&t.Status, &t.Method, &metadata, &createdAt, &updatedAt, &appliedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(metadata, &t.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	t.AnalyticsAppliedAt = fromNullMillis(appliedAt)
	return t, nil
}
