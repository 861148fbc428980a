package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

func (f *fixture) debt(t *testing.T, from, to string, amount float64) *models.Debt {
	t.Helper()
	bill := f.equalBill(t, 300)
	debt, err := f.debts.CreateDebt(context.Background(), f.alice, CreateDebtInput{
		GroupID:    f.group.ID,
		BillID:     bill.ID,
		FromUserID: from,
		ToUserID:   to,
		Amount:     amount,
	})
	require.NoError(t, err)
	return debt
}

func TestCreateDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.equalBill(t, 300)

	debt, err := f.debts.CreateDebt(ctx, f.alice, CreateDebtInput{
		GroupID: f.group.ID, BillID: bill.ID, FromUserID: f.bob, ToUserID: f.alice, Amount: 100, Note: "groceries",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DebtActive, debt.Status)
	assert.Equal(t, 100.0, debt.RemainingAmount)
	assert.Equal(t, "Bob", debt.From.Name)
	assert.Equal(t, "Alice", debt.To.Name)
	assert.Equal(t, int64(1), debt.Version)

	overview, err := f.aggregator.Overview(ctx, f.bob, f.group.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, overview.TotalDebt)

	otherGroup := &models.Group{
		Name:      "Trip",
		CreatedBy: f.alice,
		Members:   []models.GroupMember{{UserID: f.alice, Role: models.RoleOwner}},
	}
	require.NoError(t, f.store.CreateGroup(ctx, otherGroup))

	tests := []struct {
		name  string
		actor string
		in    CreateDebtInput
		check func(error) bool
	}{
		{
			name:  "zero amount",
			actor: f.alice,
			in:    CreateDebtInput{GroupID: f.group.ID, BillID: bill.ID, FromUserID: f.bob, ToUserID: f.alice},
			check: apperr.IsValidation,
		},
		{
			name:  "debtor and creditor are the same",
			actor: f.alice,
			in:    CreateDebtInput{GroupID: f.group.ID, BillID: bill.ID, FromUserID: f.bob, ToUserID: f.bob, Amount: 5},
			check: apperr.IsValidation,
		},
		{
			name:  "actor outside the group",
			actor: f.dave,
			in:    CreateDebtInput{GroupID: f.group.ID, BillID: bill.ID, FromUserID: f.bob, ToUserID: f.alice, Amount: 5},
			check: apperr.IsForbidden,
		},
		{
			name:  "unknown bill",
			actor: f.alice,
			in:    CreateDebtInput{GroupID: f.group.ID, BillID: "missing", FromUserID: f.bob, ToUserID: f.alice, Amount: 5},
			check: apperr.IsNotFound,
		},
		{
			name:  "bill of another group",
			actor: f.alice,
			in:    CreateDebtInput{GroupID: otherGroup.ID, BillID: bill.ID, FromUserID: f.bob, ToUserID: f.alice, Amount: 5},
			check: apperr.IsNotFound,
		},
		{
			name:  "unknown user",
			actor: f.alice,
			in:    CreateDebtInput{GroupID: f.group.ID, BillID: bill.ID, FromUserID: "ghost", ToUserID: f.alice, Amount: 5},
			check: apperr.IsNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.debts.CreateDebt(ctx, tt.actor, tt.in)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
		})
	}
}

func TestSettleDebt(t *testing.T) {
	ctx := context.Background()

	t.Run("full settlement then conflict", func(t *testing.T) {
		f := newFixture(t)
		debt := f.debt(t, f.bob, f.alice, 200)

		settled, settlement, err := f.debts.SettleDebt(ctx, f.bob, debt.ID, SettleInput{Amount: 200, Method: "bank"})
		require.NoError(t, err)
		assert.Equal(t, models.DebtSettled, settled.Status)
		assert.Equal(t, 0.0, settled.RemainingAmount)
		assert.Equal(t, f.bob, settlement.SettledBy)
		assert.Len(t, settled.Settlements, 1)

		_, _, err = f.debts.SettleDebt(ctx, f.bob, debt.ID, SettleInput{Amount: 1})
		assert.True(t, apperr.IsConflict(err), "got %v", err)

		overview, err := f.aggregator.Overview(ctx, f.bob, f.group.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, overview.TotalDebt)
		assert.Equal(t, 200.0, overview.CategorySpend[SettlementCategory])
	})

	t.Run("partial settlements accumulate", func(t *testing.T) {
		f := newFixture(t)
		debt := f.debt(t, f.bob, f.alice, 200)

		partial, _, err := f.debts.SettleDebt(ctx, f.alice, debt.ID, SettleInput{Amount: 80})
		require.NoError(t, err)
		assert.Equal(t, models.DebtPartiallySettled, partial.Status)
		assert.Equal(t, 120.0, partial.RemainingAmount)

		// Overpaying the remainder settles and clamps at zero.
		done, _, err := f.debts.SettleDebt(ctx, f.bob, debt.ID, SettleInput{Amount: 150})
		require.NoError(t, err)
		assert.Equal(t, models.DebtSettled, done.Status)
		assert.Equal(t, 0.0, done.RemainingAmount)
	})

	t.Run("only the parties may settle", func(t *testing.T) {
		f := newFixture(t)
		debt := f.debt(t, f.bob, f.alice, 50)

		_, _, err := f.debts.SettleDebt(ctx, f.charlie, debt.ID, SettleInput{Amount: 50})
		assert.True(t, apperr.IsForbidden(err), "got %v", err)

		_, _, err = f.debts.SettleDebt(ctx, f.bob, debt.ID, SettleInput{Amount: -1})
		assert.True(t, apperr.IsValidation(err), "got %v", err)

		_, _, err = f.debts.SettleDebt(ctx, f.bob, "missing", SettleInput{Amount: 1})
		assert.True(t, apperr.IsNotFound(err), "got %v", err)
	})
}

func TestDebtHistoryAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owedToAlice := f.debt(t, f.bob, f.alice, 50)
	f.debt(t, f.charlie, f.alice, 30)
	f.debt(t, f.alice, f.bob, 20)

	_, _, err := f.debts.SettleDebt(ctx, f.bob, owedToAlice.ID, SettleInput{Amount: 10, Notes: "first"})
	require.NoError(t, err)

	history, err := f.debts.GetDebtHistory(ctx, f.alice, owedToAlice.ID)
	require.NoError(t, err)
	require.Len(t, history.Settlements, 1)
	assert.Equal(t, "first", history.Settlements[0].Notes)

	_, err = f.debts.GetDebtHistory(ctx, f.charlie, owedToAlice.ID)
	assert.True(t, apperr.IsForbidden(err), "got %v", err)

	page, err := NewPage(0, 0)
	require.NoError(t, err)

	all, info, err := f.debts.GetGroupDebts(ctx, f.charlie, f.group.ID, DebtQuery{}, page)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, info.TotalItems)

	partial, _, err := f.debts.GetGroupDebts(ctx, f.charlie, f.group.ID, DebtQuery{Status: models.DebtPartiallySettled}, page)
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assert.Equal(t, owedToAlice.ID, partial[0].ID)

	_, _, err = f.debts.GetGroupDebts(ctx, f.dave, f.group.ID, DebtQuery{}, page)
	assert.True(t, apperr.IsForbidden(err), "got %v", err)

	mine, _, err := f.debts.GetMyDebts(ctx, f.alice, DebtQuery{}, page)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	credits, _, err := f.debts.GetMyDebts(ctx, f.alice, DebtQuery{Role: RoleCreditor}, page)
	require.NoError(t, err)
	assert.Len(t, credits, 2)

	owes, _, err := f.debts.GetMyDebts(ctx, f.alice, DebtQuery{Role: RoleDebtor}, page)
	require.NoError(t, err)
	require.Len(t, owes, 1)
	assert.Equal(t, f.bob, owes[0].To.UserID)

	_, _, err = f.debts.GetMyDebts(ctx, f.alice, DebtQuery{Role: "lender"}, page)
	assert.True(t, apperr.IsValidation(err), "got %v", err)

	_, _, err = f.debts.GetMyDebts(ctx, f.alice, DebtQuery{Status: "forgiven"}, page)
	assert.True(t, apperr.IsValidation(err), "got %v", err)
}

func TestDisputeAndRemind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	debt := f.debt(t, f.bob, f.alice, 60)

	_, err := f.debts.SendReminder(ctx, f.bob, debt.ID)
	assert.True(t, apperr.IsForbidden(err), "only the creditor reminds")

	reminded, err := f.debts.SendReminder(ctx, f.alice, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reminded.ReminderCount)

	_, err = f.debts.DisputeDebt(ctx, f.charlie, debt.ID)
	assert.True(t, apperr.IsForbidden(err), "got %v", err)

	disputed, err := f.debts.DisputeDebt(ctx, f.bob, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DebtDisputed, disputed.Status)

	// Disputed debts can still be settled.
	settled, _, err := f.debts.SettleDebt(ctx, f.bob, debt.ID, SettleInput{Amount: 60})
	require.NoError(t, err)
	assert.Equal(t, models.DebtSettled, settled.Status)

	_, err = f.debts.DisputeDebt(ctx, f.bob, debt.ID)
	assert.True(t, apperr.IsConflict(err), "got %v", err)
	_, err = f.debts.SendReminder(ctx, f.alice, debt.ID)
	assert.True(t, apperr.IsConflict(err), "got %v", err)
}

func TestGetGroupBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.debt(t, f.bob, f.alice, 20)
	f.debt(t, f.charlie, f.alice, 30)
	settled := f.debt(t, f.charlie, f.bob, 40)
	_, _, err := f.debts.SettleDebt(ctx, f.charlie, settled.ID, SettleInput{Amount: 40})
	require.NoError(t, err)

	result, err := f.debts.GetGroupBalances(ctx, f.bob, f.group.ID)
	require.NoError(t, err)

	net := make(map[string]float64)
	for _, b := range result.Balances {
		net[b.UserID] = b.NetBalance
	}
	assert.Equal(t, 50.0, net[f.alice])
	assert.Equal(t, -20.0, net[f.bob])
	assert.Equal(t, -30.0, net[f.charlie])
	assert.Len(t, result.Edges, 2)

	_, err = f.debts.GetGroupBalances(ctx, f.dave, f.group.ID)
	assert.True(t, apperr.IsForbidden(err), "got %v", err)
}

// conflictingDebts fails the first n updates with a version conflict.
type conflictingDebts struct {
	storage.DebtStore
	n     int
	calls int
}

func (c *conflictingDebts) UpdateDebt(ctx context.Context, debt *models.Debt) error {
	c.calls++
	if c.calls <= c.n {
		return storage.ErrVersionConflict
	}
	return c.DebtStore.UpdateDebt(ctx, debt)
}

func TestSettleDebt_RetriesOnConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	debt := f.debt(t, f.bob, f.alice, 100)

	wrapper := &conflictingDebts{DebtStore: f.store, n: 1}
	f.debts.debts = wrapper

	settled, _, err := f.debts.SettleDebt(ctx, f.bob, debt.ID, SettleInput{Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, 2, wrapper.calls)
	assert.Len(t, settled.Settlements, 1)
	assert.Equal(t, 60.0, settled.RemainingAmount)

	wrapper.n, wrapper.calls = 100, 0
	_, _, err = f.debts.SettleDebt(ctx, f.bob, debt.ID, SettleInput{Amount: 40})
	assert.True(t, apperr.IsConflict(err), "got %v", err)
}
