package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const billColumns = `id, group_id, title, amount, currency, category, split_method, payer_id,
	participants, status, payments, created_by, created_at, updated_at, version`

// CreateBill persists a new bill to the database.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	// Generate IDs if not set
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	if bill.UpdatedAt.IsZero() {
		bill.UpdatedAt = bill.CreatedAt
	}
	if bill.Title == "" {
		bill.Title = generateTitle(bill.Category, len(bill.Participants), bill.CreatedAt)
	}
	bill.Version = 1

	participants, payments, err := encodeBillLists(bill)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.GroupID, bill.Title, bill.Amount, bill.Currency, bill.Category,
		bill.SplitMethod, bill.PayerID, participants, bill.Status, payments,
		bill.CreatedBy, toMillis(bill.CreatedAt), toMillis(bill.UpdatedAt), bill.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	return nil
}

// GetBill retrieves a bill by ID, including participants and payments.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill, err := scanBill(s.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ?`,
		billID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return bill, nil
}

// UpdateBill writes the bill if its stored version still matches and bumps
// bill.Version on success.
func (s *SQLiteStore) UpdateBill(ctx context.Context, bill *models.Bill) error {
	participants, payments, err := encodeBillLists(bill)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE bills SET title = ?, amount = ?, currency = ?, category = ?, split_method = ?,
			payer_id = ?, participants = ?, status = ?, payments = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		bill.Title, bill.Amount, bill.Currency, bill.Category, bill.SplitMethod,
		bill.PayerID, participants, bill.Status, payments, toMillis(bill.UpdatedAt),
		bill.ID, bill.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	if err := s.checkUpdated(ctx, res, "bills", bill.ID); err != nil {
		return err
	}

	bill.Version++
	return nil
}

// DeleteBill removes a bill if it is still at version.
func (s *SQLiteStore) DeleteBill(ctx context.Context, billID string, version int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ? AND version = ?", billID, version)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	return s.checkUpdated(ctx, res, "bills", billID)
}

// ListBills returns one page of bills matching filter, newest first.
func (s *SQLiteStore) ListBills(ctx context.Context, filter storage.BillFilter, page storage.Page) ([]*models.Bill, int, error) {
	var conds []string
	var args []any
	if filter.GroupID != "" {
		conds = append(conds, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	where := whereClause(conds)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bills"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate bills: %w", err)
	}

	return bills, total, nil
}

func scanBill(row scanner) (*models.Bill, error) {
	bill := &models.Bill{}
	var participants, payments string
	var createdAt, updatedAt int64
	err := row.Scan(
		&bill.ID, &bill.GroupID, &bill.Title, &bill.Amount, &bill.Currency, &bill.Category,
		&bill.SplitMethod, &bill.PayerID, &participants, &bill.Status, &payments,
		&bill.CreatedBy, &createdAt, &updatedAt, &bill.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(participants, &bill.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}
	if err := decodeJSON(payments, &bill.Payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	bill.CreatedAt = fromMillis(createdAt)
	bill.UpdatedAt = fromMillis(updatedAt)
	return bill, nil
}

func encodeBillLists(bill *models.Bill) (string, string, error) {
	participants, err := encodeJSON(nonNil(bill.Participants))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode participants: %w", err)
	}
	payments, err := encodeJSON(nonNil(bill.Payments))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode payments: %w", err)
	}
	return participants, payments, nil
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// generateTitle creates an auto-generated title for a bill without one.
func generateTitle(category string, participants int, at time.Time) string {
	label := "Bill"
	if category != "" {
		r, size := utf8.DecodeRuneInString(category)
		label = string(unicode.ToUpper(r)) + category[size:]
	}
	if participants <= 1 {
		return fmt.Sprintf("%s - %s", label, at.Format("Jan 2, 2006"))
	}
	return fmt.Sprintf("%s split %d ways - %s", label, participants, at.Format("Jan 2, 2006"))
}
