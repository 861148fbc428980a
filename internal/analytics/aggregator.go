// Package analytics maintains per-user monthly rollups from ledger
// transactions and serves the read paths over them.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// topCategoryCount bounds AnalyticsOverview.TopCategories.
const topCategoryCount = 5

// Aggregator turns transactions into rollup increments.
type Aggregator struct {
	store storage.AnalyticsStore
}

// NewAggregator creates an aggregator over store.
func NewAggregator(store storage.AnalyticsStore) *Aggregator {
	return &Aggregator{store: store}
}

// ProcessTransaction applies the rollups of tx exactly once. Replaying an
// already applied transaction is a no-op.
func (a *Aggregator) ProcessTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := a.apply(ctx, tx)
	return err
}

func (a *Aggregator) apply(ctx context.Context, tx *models.Transaction) (bool, error) {
	if tx.ID == "" {
		return false, fmt.Errorf("transaction has no id")
	}
	deltas, err := Deltas(tx)
	if err != nil {
		return false, err
	}
	applied, err := a.store.ApplyTransaction(ctx, tx.ID, deltas)
	if err != nil {
		return false, fmt.Errorf("failed to apply transaction %s: %w", tx.ID, err)
	}
	return applied, nil
}

// Deltas returns the rollup increments of a transaction.
//
// Payments and adjustments count as spend for the source user and as paid
// for the destination user. Refunds reverse that: both users are credited as
// paid. A transaction tied to a debt also reduces the source user's debt.
func Deltas(tx *models.Transaction) ([]models.AnalyticsDelta, error) {
	year, month := yearMonth(tx.CreatedAt)
	base := models.AnalyticsDelta{GroupID: tx.GroupID, Year: year, Month: month}

	if tx.Type == models.TransactionAdjustment && tx.Source() == models.SourceDebt {
		debt := base
		debt.UserID = tx.FromUserID
		debt.Debt = tx.Amount
		return []models.AnalyticsDelta{debt}, nil
	}

	src := base
	src.UserID = tx.FromUserID
	src.Transactions = 1
	dst := base
	dst.UserID = tx.ToUserID

	switch tx.Type {
	case models.TransactionPayment, models.TransactionAdjustment:
		src.Spent = tx.Amount
		src.Category = tx.Category()
		dst.Paid = tx.Amount
	case models.TransactionRefund:
		src.Paid = tx.Amount
		dst.Paid = tx.Amount
	default:
		return nil, fmt.Errorf("unknown transaction type %q", tx.Type)
	}
	if tx.DebtID != "" {
		src.Debt = -tx.Amount
	}

	deltas := []models.AnalyticsDelta{src}
	if tx.ToUserID != "" {
		deltas = append(deltas, dst)
	}
	return deltas, nil
}

// UpdateUserAnalytics increments the rollup of one user for the month of at.
func (a *Aggregator) UpdateUserAnalytics(ctx context.Context, userID, groupID string, amount float64, at time.Time, kind models.AnalyticsKind, category string) error {
	if userID == "" {
		return apperr.NewValidationError("userId", "user id is required")
	}
	year, month := yearMonth(at)
	d := models.AnalyticsDelta{UserID: userID, GroupID: groupID, Year: year, Month: month}

	switch kind {
	case models.AnalyticsExpense:
		d.Spent = amount
		d.Transactions = 1
		d.Category = category
	case models.AnalyticsIncome:
		d.Paid = amount
	case models.AnalyticsDebt:
		d.Debt = amount
	default:
		return apperr.Validationf("kind", "unknown analytics kind %q", kind)
	}

	if err := a.store.IncrementUserAnalytics(ctx, d); err != nil {
		return fmt.Errorf("failed to update analytics for %s: %w", userID, err)
	}
	return nil
}

// Overview sums every month of a user, optionally within one group.
func (a *Aggregator) Overview(ctx context.Context, userID, groupID string) (*models.AnalyticsOverview, error) {
	rows, err := a.store.ListUserAnalytics(ctx, storage.AnalyticsQuery{UserID: userID, GroupID: groupID})
	if err != nil {
		return nil, err
	}

	var spent, paid, debt decimal.Decimal
	out := &models.AnalyticsOverview{CategorySpend: make(map[string]float64)}
	months := make(map[[2]int]struct{})
	for _, r := range rows {
		spent = spent.Add(decimal.NewFromFloat(r.TotalSpent))
		paid = paid.Add(decimal.NewFromFloat(r.TotalPaid))
		debt = debt.Add(decimal.NewFromFloat(r.TotalDebt))
		out.TransactionCount += r.TransactionCount
		mergeCategories(out.CategorySpend, r.CategorySpend)
		months[[2]int{r.Year, r.Month}] = struct{}{}
	}

	out.TotalSpent = spent.InexactFloat64()
	out.TotalPaid = paid.InexactFloat64()
	out.TotalDebt = debt.InexactFloat64()
	out.NetBalance = paid.Sub(spent).InexactFloat64()
	out.TopCategories = topCategories(out.CategorySpend, topCategoryCount)
	out.MonthsTracked = len(months)
	return out, nil
}

// Monthly returns one row per month of year that has data, in month order.
func (a *Aggregator) Monthly(ctx context.Context, userID, groupID string, year int) ([]models.MonthlyAnalytics, error) {
	if year < 1 {
		return nil, apperr.NewValidationError("year", "must be a positive year")
	}
	rows, err := a.store.ListUserAnalytics(ctx, storage.AnalyticsQuery{UserID: userID, GroupID: groupID, Year: year})
	if err != nil {
		return nil, err
	}

	byMonth := make(map[int]*models.MonthlyAnalytics)
	var order []int
	for _, r := range rows {
		m, ok := byMonth[r.Month]
		if !ok {
			m = &models.MonthlyAnalytics{Year: r.Year, Month: r.Month, CategorySpend: make(map[string]float64)}
			byMonth[r.Month] = m
			order = append(order, r.Month)
		}
		addMonth(m, r)
	}
	sort.Ints(order)

	out := make([]models.MonthlyAnalytics, 0, len(order))
	for _, month := range order {
		out = append(out, *byMonth[month])
	}
	return out, nil
}

// Yearly groups every month of a user by year, in year order.
func (a *Aggregator) Yearly(ctx context.Context, userID, groupID string) ([]models.YearlyAnalytics, error) {
	rows, err := a.store.ListUserAnalytics(ctx, storage.AnalyticsQuery{UserID: userID, GroupID: groupID})
	if err != nil {
		return nil, err
	}

	byYear := make(map[int]*models.YearlyAnalytics)
	var order []int
	for _, r := range rows {
		y, ok := byYear[r.Year]
		if !ok {
			y = &models.YearlyAnalytics{Year: r.Year, CategorySpend: make(map[string]float64)}
			byYear[r.Year] = y
			order = append(order, r.Year)
		}
		y.TotalSpent = round(y.TotalSpent + r.TotalSpent)
		y.TotalPaid = round(y.TotalPaid + r.TotalPaid)
		y.TotalDebt = round(y.TotalDebt + r.TotalDebt)
		y.TransactionCount += r.TransactionCount
		mergeCategories(y.CategorySpend, r.CategorySpend)
	}
	sort.Ints(order)

	out := make([]models.YearlyAnalytics, 0, len(order))
	for _, year := range order {
		out = append(out, *byYear[year])
	}
	return out, nil
}

// Compare contrasts the month of now with the month before it. Changes are
// nil when the previous month has no rows, and a zero previous value divides
// by 1 instead.
func (a *Aggregator) Compare(ctx context.Context, userID, groupID string, now time.Time) (*models.AnalyticsComparison, error) {
	year, month := yearMonth(now)
	prevYear, prevMonth := year, month-1
	if prevMonth == 0 {
		prevYear, prevMonth = year-1, 12
	}

	current, _, err := a.month(ctx, userID, groupID, year, month)
	if err != nil {
		return nil, err
	}
	previous, found, err := a.month(ctx, userID, groupID, prevYear, prevMonth)
	if err != nil {
		return nil, err
	}

	out := &models.AnalyticsComparison{Current: current, Previous: previous}
	if found {
		out.SpentChange = percentChange(current.TotalSpent, previous.TotalSpent)
		out.PaidChange = percentChange(current.TotalPaid, previous.TotalPaid)
		out.TransactionsChange = percentChange(float64(current.TransactionCount), float64(previous.TransactionCount))
	}
	return out, nil
}

func (a *Aggregator) month(ctx context.Context, userID, groupID string, year, month int) (models.MonthlyAnalytics, bool, error) {
	rows, err := a.store.ListUserAnalytics(ctx, storage.AnalyticsQuery{UserID: userID, GroupID: groupID, Year: year, Month: month})
	if err != nil {
		return models.MonthlyAnalytics{}, false, err
	}
	m := models.MonthlyAnalytics{Year: year, Month: month, CategorySpend: make(map[string]float64)}
	for _, r := range rows {
		addMonth(&m, r)
	}
	return m, len(rows) > 0, nil
}

func addMonth(m *models.MonthlyAnalytics, r *models.UserAnalytics) {
	m.TotalSpent = round(m.TotalSpent + r.TotalSpent)
	m.TotalPaid = round(m.TotalPaid + r.TotalPaid)
	m.TotalDebt = round(m.TotalDebt + r.TotalDebt)
	m.TransactionCount += r.TransactionCount
	mergeCategories(m.CategorySpend, r.CategorySpend)
}

func mergeCategories(dst, src map[string]float64) {
	for c, v := range src {
		dst[c] = round(dst[c] + v)
	}
}

// topCategories returns up to n categories by descending spend, ties by name.
func topCategories(spend map[string]float64, n int) []string {
	cats := make([]string, 0, len(spend))
	for c := range spend {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if spend[cats[i]] != spend[cats[j]] {
			return spend[cats[i]] > spend[cats[j]]
		}
		return cats[i] < cats[j]
	})
	if len(cats) > n {
		cats = cats[:n]
	}
	return cats
}

func percentChange(current, previous float64) *float64 {
	divisor := decimal.NewFromFloat(previous)
	if divisor.IsZero() {
		divisor = decimal.NewFromInt(1)
	}
	change, _ := decimal.NewFromFloat(current).
		Sub(decimal.NewFromFloat(previous)).
		Div(divisor).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return &change
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func yearMonth(t time.Time) (int, int) {
	t = t.UTC()
	return t.Year(), int(t.Month())
}
