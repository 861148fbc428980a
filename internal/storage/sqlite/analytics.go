package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// ApplyTransaction marks txID as applied and increments the rollups in the
// same database transaction. A transaction already marked is skipped.
func (s *SQLiteStore) ApplyTransaction(ctx context.Context, txID string, deltas []models.AnalyticsDelta) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE transactions SET analytics_applied_at = ? WHERE id = ? AND analytics_applied_at IS NULL",
		toMillis(now), txID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	for _, d := range deltas {
		if err := incrementRollup(ctx, tx, d, now); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// IncrementUserAnalytics applies a single delta.
func (s *SQLiteStore) IncrementUserAnalytics(ctx context.Context, delta models.AnalyticsDelta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := incrementRollup(ctx, tx, delta, time.Now().UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func incrementRollup(ctx context.Context, tx *sql.Tx, d models.AnalyticsDelta, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO user_analytics (user_id, group_id, year, month, total_spent, total_paid, total_debt, transaction_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, group_id, year, month) DO UPDATE SET
			total_spent = total_spent + excluded.total_spent,
			total_paid = total_paid + excluded.total_paid,
			total_debt = total_debt + excluded.total_debt,
			transaction_count = transaction_count + excluded.transaction_count,
			updated_at = excluded.updated_at`,
		d.UserID, d.GroupID, d.Year, d.Month, d.Spent, d.Paid, d.Debt, d.Transactions, toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user analytics: %w", err)
	}

	if d.Category == "" {
		return nil
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_analytics_categories (user_id, group_id, year, month, category, amount)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, group_id, year, month, category) DO UPDATE SET
			amount = amount + excluded.amount`,
		d.UserID, d.GroupID, d.Year, d.Month, d.Category, d.Spent,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert category spend: %w", err)
	}
	return nil
}

// ListUserAnalytics returns the rollup rows matching query ordered by
// year, month and group.
func (s *SQLiteStore) ListUserAnalytics(ctx context.Context, query storage.AnalyticsQuery) ([]*models.UserAnalytics, error) {
	var conds []string
	var args []any
	if query.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, query.UserID)
	}
	if query.GroupID != "" {
		conds = append(conds, "group_id = ?")
		args = append(args, query.GroupID)
	}
	if query.Year != 0 {
		conds = append(conds, "year = ?")
		args = append(args, query.Year)
	}
	if query.Month != 0 {
		conds = append(conds, "month = ?")
		args = append(args, query.Month)
	}
	where := whereClause(conds)

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, group_id, year, month, total_spent, total_paid, total_debt, transaction_count, updated_at
		 FROM user_analytics`+where+` ORDER BY year, month, group_id, user_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user analytics: %w", err)
	}
	defer rows.Close()

	type key struct {
		user, group string
		year, month int
	}
	var result []*models.UserAnalytics
	byKey := make(map[key]*models.UserAnalytics)
	for rows.Next() {
		ua := &models.UserAnalytics{CategorySpend: make(map[string]float64)}
		var updatedAt int64
		if err := rows.Scan(&ua.UserID, &ua.GroupID, &ua.Year, &ua.Month,
			&ua.TotalSpent, &ua.TotalPaid, &ua.TotalDebt, &ua.TransactionCount, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user analytics: %w", err)
		}
		ua.UpdatedAt = fromMillis(updatedAt)
		result = append(result, ua)
		byKey[key{ua.UserID, ua.GroupID, ua.Year, ua.Month}] = ua
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user analytics: %w", err)
	}
	rows.Close()

	catRows, err := s.db.QueryContext(ctx,
		`SELECT user_id, group_id, year, month, category, amount
		 FROM user_analytics_categories`+where,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list category spend: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var k key
		var category string
		var amount float64
		if err := catRows.Scan(&k.user, &k.group, &k.year, &k.month, &category, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan category spend: %w", err)
		}
		ua, ok := byKey[k]
		if !ok {
			continue
		}
		ua.CategorySpend[category] += amount
		ua.FrequentCategories = append(ua.FrequentCategories, category)
	}
	if err := catRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category spend: %w", err)
	}

	for _, ua := range result {
		sort.Strings(ua.FrequentCategories)
	}
	return result, nil
}
