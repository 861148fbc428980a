package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const debtColumns = `id, group_id, from_user_id, from_name, to_user_id, to_name, bill_id, amount,
	remaining_amount, status, settlements, due_date, reminder_count, note, created_by,
	created_at, updated_at, version`

// CreateDebt persists a new debt to the database.
func (s *SQLiteStore) CreateDebt(ctx context.Context, debt *models.Debt) error {
	// Generate ID if not set
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	if debt.CreatedAt.IsZero() {
		debt.CreatedAt = time.Now().UTC()
	}
	if debt.UpdatedAt.IsZero() {
		debt.UpdatedAt = debt.CreatedAt
	}
	debt.Version = 1

	settlements, err := encodeJSON(nonNil(debt.Settlements))
	if err != nil {
		return fmt.Errorf("failed to encode settlements: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO debts (`+debtColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.ID, debt.GroupID, debt.From.UserID, debt.From.Name, debt.To.UserID, debt.To.Name,
		debt.BillID, debt.Amount, debt.RemainingAmount, debt.Status, settlements,
		nullableMillis(debt.DueDate), debt.ReminderCount, debt.Note, debt.CreatedBy,
		toMillis(debt.CreatedAt), toMillis(debt.UpdatedAt), debt.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert debt: %w", err)
	}

	return nil
}

// GetDebt retrieves a debt by ID.
func (s *SQLiteStore) GetDebt(ctx context.Context, debtID string) (*models.Debt, error) {
	debt, err := scanDebt(s.db.QueryRowContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE id = ?`,
		debtID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("debt %s: %w", debtID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return debt, nil
}

// UpdateDebt writes the debt if its stored version still matches and bumps
// debt.Version on success.
func (s *SQLiteStore) UpdateDebt(ctx context.Context, debt *models.Debt) error {
	settlements, err := encodeJSON(nonNil(debt.Settlements))
	if err != nil {
		return fmt.Errorf("failed to encode settlements: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE debts SET remaining_amount = ?, status = ?, settlements = ?, due_date = ?,
			reminder_count = ?, note = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		debt.RemainingAmount, debt.Status, settlements, nullableMillis(debt.DueDate),
		debt.ReminderCount, debt.Note, toMillis(debt.UpdatedAt),
		debt.ID, debt.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	if err := s.checkUpdated(ctx, res, "debts", debt.ID); err != nil {
		return err
	}

	debt.Version++
	return nil
}

// ListDebts returns one page of debts matching filter, newest first.
func (s *SQLiteStore) ListDebts(ctx context.Context, filter storage.DebtFilter, page storage.Page) ([]*models.Debt, int, error) {
	var conds []string
	var args []any
	if filter.GroupID != "" {
		conds = append(conds, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.UserID != "" {
		conds = append(conds, "(from_user_id = ? OR to_user_id = ?)")
		args = append(args, filter.UserID, filter.UserID)
	}
	if filter.FromUserID != "" {
		conds = append(conds, "from_user_id = ?")
		args = append(args, filter.FromUserID)
	}
	if filter.ToUserID != "" {
		conds = append(conds, "to_user_id = ?")
		args = append(args, filter.ToUserID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	where := whereClause(conds)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM debts"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count debts: %w", err)
	}

	debts, err := s.queryDebts(ctx,
		`SELECT `+debtColumns+` FROM debts`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...,
	)
	if err != nil {
		return nil, 0, err
	}
	return debts, total, nil
}

// ListOutstandingDebts returns every unsettled debt in a group.
func (s *SQLiteStore) ListOutstandingDebts(ctx context.Context, groupID string) ([]*models.Debt, error) {
	return s.queryDebts(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE group_id = ? AND status != ? ORDER BY created_at, id`,
		groupID, models.DebtSettled,
	)
}

func (s *SQLiteStore) queryDebts(ctx context.Context, query string, args ...any) ([]*models.Debt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}
	return debts, nil
}

func scanDebt(row scanner) (*models.Debt, error) {
	debt := &models.Debt{}
	var settlements string
	var dueDate sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(
		&debt.ID, &debt.GroupID, &debt.From.UserID, &debt.From.Name, &debt.To.UserID, &debt.To.Name,
		&debt.BillID, &debt.Amount, &debt.RemainingAmount, &debt.Status, &settlements,
		&dueDate, &debt.ReminderCount, &debt.Note, &debt.CreatedBy,
		&createdAt, &updatedAt, &debt.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(settlements, &debt.Settlements); err != nil {
		return nil, fmt.Errorf("failed to decode settlements: %w", err)
	}
	debt.DueDate = fromNullMillis(dueDate)
	debt.CreatedAt = fromMillis(createdAt)
	debt.UpdatedAt = fromMillis(updatedAt)
	return debt, nil
}
