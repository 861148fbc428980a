package analytics

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

func newStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func payment(from, to string, amount float64, category string, when time.Time) *models.Transaction {
	return &models.Transaction{
		GroupID:    "g1",
		BillID:     "b1",
		FromUserID: from,
		ToUserID:   to,
		Amount:     amount,
		Type:       models.TransactionPayment,
		Status:     models.TransactionCompleted,
		Metadata:   map[string]string{models.MetaCategory: category},
		CreatedAt:  when,
	}
}

func record(t *testing.T, store *sqlite.SQLiteStore, agg *Aggregator, tx *models.Transaction) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateTransaction(ctx, tx))
	require.NoError(t, agg.ProcessTransaction(ctx, tx))
}

func TestDeltas(t *testing.T) {
	when := at(2024, time.March, 5)

	tests := []struct {
		name string
		tx   *models.Transaction
		want []models.AnalyticsDelta
	}{
		{
			name: "payment spends from source and pays destination",
			tx:   payment("bob", "alice", 100, "food", when),
			want: []models.AnalyticsDelta{
				{UserID: "bob", GroupID: "g1", Year: 2024, Month: 3, Spent: 100, Transactions: 1, Category: "food"},
				{UserID: "alice", GroupID: "g1", Year: 2024, Month: 3, Paid: 100},
			},
		},
		{
			name: "refund credits both users",
			tx: &models.Transaction{
				GroupID: "g1", FromUserID: "alice", ToUserID: "bob", Amount: 40,
				Type: models.TransactionRefund, CreatedAt: when,
			},
			want: []models.AnalyticsDelta{
				{UserID: "alice", GroupID: "g1", Year: 2024, Month: 3, Paid: 40, Transactions: 1},
				{UserID: "bob", GroupID: "g1", Year: 2024, Month: 3, Paid: 40},
			},
		},
		{
			name: "settlement reduces debt of the debtor",
			tx: &models.Transaction{
				GroupID: "g1", DebtID: "d1", FromUserID: "bob", ToUserID: "alice", Amount: 80,
				Type:      models.TransactionPayment,
				Metadata:  map[string]string{models.MetaCategory: "settlement"},
				CreatedAt: when,
			},
			want: []models.AnalyticsDelta{
				{UserID: "bob", GroupID: "g1", Year: 2024, Month: 3, Spent: 80, Debt: -80, Transactions: 1, Category: "settlement"},
				{UserID: "alice", GroupID: "g1", Year: 2024, Month: 3, Paid: 80},
			},
		},
		{
			name: "new debt raises debt of the debtor only",
			tx: &models.Transaction{
				GroupID: "g1", DebtID: "d1", FromUserID: "bob", ToUserID: "alice", Amount: 120,
				Type:      models.TransactionAdjustment,
				Metadata:  map[string]string{models.MetaSource: models.SourceDebt},
				CreatedAt: when,
			},
			want: []models.AnalyticsDelta{
				{UserID: "bob", GroupID: "g1", Year: 2024, Month: 3, Debt: 120},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Deltas(tt.tx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Deltas(&models.Transaction{Type: "gift", CreatedAt: when})
	assert.Error(t, err)
}

func TestProcessTransaction_IsIdempotent(t *testing.T) {
	store := newStore(t)
	agg := NewAggregator(store)
	ctx := context.Background()

	tx := payment("bob", "alice", 100, "food", at(2024, time.March, 5))
	record(t, store, agg, tx)
	require.NoError(t, agg.ProcessTransaction(ctx, tx))

	overview, err := agg.Overview(ctx, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, 100.0, overview.TotalSpent)
	assert.Equal(t, 1, overview.TransactionCount)
}

func TestUpdateUserAnalytics(t *testing.T) {
	store := newStore(t)
	agg := NewAggregator(store)
	ctx := context.Background()
	when := at(2024, time.May, 1)

	require.NoError(t, agg.UpdateUserAnalytics(ctx, "bob", "g1", 30, when, models.AnalyticsExpense, "food"))
	require.NoError(t, agg.UpdateUserAnalytics(ctx, "bob", "g1", 20, when, models.AnalyticsExpense, "food"))
	require.NoError(t, agg.UpdateUserAnalytics(ctx, "bob", "g1", 200, when, models.AnalyticsDebt, ""))
	require.NoError(t, agg.UpdateUserAnalytics(ctx, "bob", "g1", 15, when, models.AnalyticsIncome, ""))

	rows, err := store.ListUserAnalytics(ctx, storage.AnalyticsQuery{UserID: "bob"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 50.0, row.TotalSpent)
	assert.Equal(t, 15.0, row.TotalPaid)
	assert.Equal(t, 200.0, row.TotalDebt)
	assert.Equal(t, 2, row.TransactionCount)
	assert.Equal(t, []string{"food"}, row.FrequentCategories)

	err = agg.UpdateUserAnalytics(ctx, "bob", "g1", 1, when, "bonus", "")
	assert.True(t, apperr.IsValidation(err))
}

func TestReadPaths(t *testing.T) {
	store := newStore(t)
	agg := NewAggregator(store)
	ctx := context.Background()

	record(t, store, agg, payment("bob", "alice", 100, "food", at(2023, time.December, 20)))
	record(t, store, agg, payment("bob", "alice", 50, "travel", at(2024, time.January, 3)))
	record(t, store, agg, payment("bob", "alice", 25, "food", at(2024, time.January, 9)))
	record(t, store, agg, payment("bob", "carol", 10, "food", at(2024, time.March, 1)))

	t.Run("Overview sums every month", func(t *testing.T) {
		o, err := agg.Overview(ctx, "bob", "")
		require.NoError(t, err)
		assert.Equal(t, 185.0, o.TotalSpent)
		assert.Equal(t, 4, o.TransactionCount)
		assert.Equal(t, 3, o.MonthsTracked)
		assert.Equal(t, []string{"food", "travel"}, o.TopCategories)
		assert.Equal(t, -185.0, o.NetBalance)
	})

	t.Run("Monthly orders months of one year", func(t *testing.T) {
		months, err := agg.Monthly(ctx, "bob", "", 2024)
		require.NoError(t, err)
		require.Len(t, months, 2)
		assert.Equal(t, 1, months[0].Month)
		assert.Equal(t, 75.0, months[0].TotalSpent)
		assert.Equal(t, 3, months[1].Month)
	})

	t.Run("Yearly groups by year", func(t *testing.T) {
		years, err := agg.Yearly(ctx, "alice", "")
		require.NoError(t, err)
		require.Len(t, years, 2)
		assert.Equal(t, 2023, years[0].Year)
		assert.Equal(t, 100.0, years[0].TotalPaid)
		assert.Equal(t, 75.0, years[1].TotalPaid)
	})

	t.Run("Compare wraps January to December", func(t *testing.T) {
		c, err := agg.Compare(ctx, "bob", "", at(2024, time.January, 15))
		require.NoError(t, err)
		require.NotNil(t, c.SpentChange)
		assert.Equal(t, -25.0, *c.SpentChange)
		assert.Equal(t, 2023, c.Previous.Year)
		assert.Equal(t, 12, c.Previous.Month)
	})

	t.Run("Compare without previous data has nil changes", func(t *testing.T) {
		c, err := agg.Compare(ctx, "bob", "", at(2024, time.March, 15))
		require.NoError(t, err)
		assert.Equal(t, 10.0, c.Current.TotalSpent)
		assert.Nil(t, c.SpentChange)
		assert.Nil(t, c.TransactionsChange)
	})

	t.Run("Monthly rejects invalid year", func(t *testing.T) {
		_, err := agg.Monthly(ctx, "bob", "", 0)
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 50.0, *percentChange(150, 100))
	assert.Equal(t, -100.0, *percentChange(0, 40))
	// A zero previous value divides by one.
	assert.Equal(t, 700.0, *percentChange(7, 0))
}

type failingStore struct {
	storage.AnalyticsStore
}

func (failingStore) ApplyTransaction(context.Context, string, []models.AnalyticsDelta) (bool, error) {
	return false, errors.New("disk full")
}

func TestProcessTransaction_StoreError(t *testing.T) {
	agg := NewAggregator(failingStore{})
	err := agg.ProcessTransaction(context.Background(), &models.Transaction{
		ID: "t1", Type: models.TransactionPayment, FromUserID: "a", ToUserID: "b", Amount: 1,
	})
	assert.ErrorContains(t, err, "disk full")
}
