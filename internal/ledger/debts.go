package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// CreateDebtInput is the payload of CreateDebt.
type CreateDebtInput struct {
	GroupID    string
	BillID     string
	FromUserID string
	ToUserID   string
	Amount     float64
	DueDate    *time.Time
	Note       string
}

// SettleInput is the payload of SettleDebt. A zero Date means now.
type SettleInput struct {
	Amount float64
	Method string
	Date   time.Time
	Notes  string
}

// DebtRole narrows GetMyDebts to one side of the debt.
type DebtRole string

const (
	RoleAny      DebtRole = ""
	RoleDebtor   DebtRole = "debtor"
	RoleCreditor DebtRole = "creditor"
)

// DebtQuery filters debt listings. Empty fields match everything.
type DebtQuery struct {
	GroupID string
	UserID  string
	Status  models.DebtStatus
	Role    DebtRole
}

// GroupBalances is the outstanding position of a group.
type GroupBalances struct {
	GroupID  string
	Balances []calculator.MemberBalance
	Edges    []calculator.DebtEdge
}

// DebtLedger owns debts and their settlements.
type DebtLedger struct {
	debts    storage.DebtStore
	bills    storage.BillStore
	users    UserFinder
	guard    *Guard
	recorder recorder
	cfg      Config
	now      func() time.Time
}

// NewDebtLedger creates a debt ledger. analytics may be nil.
func NewDebtLedger(debts storage.DebtStore, bills storage.BillStore, users UserFinder, txs storage.TransactionStore, guard *Guard, analytics AnalyticsSink, cfg Config) *DebtLedger {
	return &DebtLedger{
		debts:    debts,
		bills:    bills,
		users:    users,
		guard:    guard,
		recorder: recorder{txs: txs, analytics: analytics},
		cfg:      cfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateDebt records that FromUserID owes ToUserID for a bill of the group.
// Party display names are snapshotted at creation.
func (l *DebtLedger) CreateDebt(ctx context.Context, actor string, in CreateDebtInput) (*models.Debt, error) {
	if in.Amount <= 0 {
		return nil, apperr.NewValidationError("amount", "must be greater than zero")
	}
	if in.FromUserID == "" || in.ToUserID == "" {
		return nil, apperr.NewValidationError("fromUserId", "both debtor and creditor are required")
	}
	if in.FromUserID == in.ToUserID {
		return nil, apperr.NewValidationError("toUserId", "debtor and creditor must be different users")
	}

	if _, err := l.guard.RequireMember(ctx, in.GroupID, actor); err != nil {
		return nil, err
	}

	if in.BillID == "" {
		return nil, apperr.NewValidationError("billId", "bill id is required")
	}
	bill, err := l.bills.GetBill(ctx, in.BillID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NewNotFoundError("bill", in.BillID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bill: %w", err)
	}
	if bill.GroupID != in.GroupID {
		return nil, apperr.NewNotFoundError("bill", in.BillID)
	}

	from, err := l.findUser(ctx, in.FromUserID)
	if err != nil {
		return nil, err
	}
	to, err := l.findUser(ctx, in.ToUserID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	debt := &models.Debt{
		GroupID:         in.GroupID,
		From:            models.DebtParty{UserID: from.ID, Name: from.DisplayName},
		To:              models.DebtParty{UserID: to.ID, Name: to.DisplayName},
		BillID:          bill.ID,
		Amount:          in.Amount,
		RemainingAmount: in.Amount,
		Status:          models.DebtActive,
		Settlements:     []models.Settlement{},
		DueDate:         in.DueDate,
		Note:            in.Note,
		CreatedBy:       actor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := l.debts.CreateDebt(ctx, debt); err != nil {
		return nil, fmt.Errorf("failed to save debt: %w", err)
	}

	metrics.DebtsCreated.Inc()
	slog.Info("Debt created", "debt_id", debt.ID, "from", from.ID, "to", to.ID, "amount", debt.Amount)

	l.recorder.record(ctx, &models.Transaction{
		GroupID:    debt.GroupID,
		BillID:     debt.BillID,
		DebtID:     debt.ID,
		FromUserID: from.ID,
		ToUserID:   to.ID,
		Amount:     debt.Amount,
		Type:       models.TransactionAdjustment,
		Status:     models.TransactionCompleted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, sourceDebt)

	return debt, nil
}

// SettleDebt applies a settlement from either party. The remaining balance is
// recomputed from the settlement history, so a payment at or above it settles
// the debt.
func (l *DebtLedger) SettleDebt(ctx context.Context, actor, debtID string, in SettleInput) (*models.Debt, *models.Settlement, error) {
	if in.Amount <= 0 {
		return nil, nil, apperr.NewValidationError("amount", "must be greater than zero")
	}

	var settlement models.Settlement
	debt, err := l.mutate(ctx, debtID, func(debt *models.Debt) error {
		if _, err := l.guard.RequireActiveGroup(ctx, debt.GroupID); err != nil {
			return err
		}
		if !debt.IsParty(actor) {
			return apperr.NewForbiddenError("only the debtor or the creditor can settle this debt")
		}
		if debt.Status == models.DebtSettled {
			return apperr.NewConflictError("debt is already settled")
		}

		now := l.now()
		date := in.Date
		if date.IsZero() {
			date = now
		}
		settlement = models.Settlement{
			ID:        uuid.New().String(),
			Amount:    in.Amount,
			Method:    in.Method,
			Date:      date.UTC(),
			Notes:     in.Notes,
			SettledBy: actor,
			CreatedAt: now,
		}

		remaining := calculator.Remaining(debt.Amount, debt.Settlements)
		debt.Status, debt.RemainingAmount = calculator.ApplySettlement(remaining, in.Amount)
		debt.Settlements = append(debt.Settlements, settlement)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.SettlementsRecorded.WithLabelValues(string(debt.Status)).Inc()
	slog.Info("Debt settlement recorded",
		"debt_id", debt.ID,
		"settlement_id", settlement.ID,
		"amount", settlement.Amount,
		"remaining", debt.RemainingAmount,
		"status", debt.Status,
	)

	l.recorder.record(ctx, &models.Transaction{
		GroupID:    debt.GroupID,
		BillID:     debt.BillID,
		DebtID:     debt.ID,
		FromUserID: debt.From.UserID,
		ToUserID:   debt.To.UserID,
		Amount:     settlement.Amount,
		Type:       models.TransactionPayment,
		Status:     models.TransactionCompleted,
		Method:     settlement.Method,
		Metadata:   map[string]string{models.MetaCategory: SettlementCategory},
		CreatedAt:  settlement.Date,
		UpdatedAt:  settlement.CreatedAt,
	}, sourceSettlement)

	return debt, &settlement, nil
}

// GetDebtHistory returns the debt with its settlements. Only the two parties
// may read it.
func (l *DebtLedger) GetDebtHistory(ctx context.Context, actor, debtID string) (*models.Debt, error) {
	debt, err := l.loadDebt(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if !debt.IsParty(actor) {
		return nil, apperr.NewForbiddenError("only the debtor or the creditor can view this debt")
	}
	return debt, nil
}

// GetGroupDebts lists a group's debts for any member of the group.
func (l *DebtLedger) GetGroupDebts(ctx context.Context, actor, groupID string, q DebtQuery, page storage.Page) ([]*models.Debt, storage.PageInfo, error) {
	if _, err := l.guard.RequireReader(ctx, groupID, actor); err != nil {
		return nil, storage.PageInfo{}, err
	}
	q.GroupID = groupID
	return l.list(ctx, q, page)
}

// GetMyDebts lists debts where the actor is a party.
func (l *DebtLedger) GetMyDebts(ctx context.Context, actor string, q DebtQuery, page storage.Page) ([]*models.Debt, storage.PageInfo, error) {
	if q.GroupID != "" {
		if _, err := l.guard.RequireReader(ctx, q.GroupID, actor); err != nil {
			return nil, storage.PageInfo{}, err
		}
	}
	q.UserID = actor
	return l.list(ctx, q, page)
}

// DisputeDebt flags an unsettled debt. Disputed debts can still be settled.
func (l *DebtLedger) DisputeDebt(ctx context.Context, actor, debtID string) (*models.Debt, error) {
	debt, err := l.mutate(ctx, debtID, func(debt *models.Debt) error {
		if !debt.IsParty(actor) {
			return apperr.NewForbiddenError("only the debtor or the creditor can dispute this debt")
		}
		if debt.Status == models.DebtSettled {
			return apperr.NewConflictError("settled debts cannot be disputed")
		}
		debt.Status = models.DebtDisputed
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Debt disputed", "debt_id", debt.ID, "actor", actor)
	return debt, nil
}

// SendReminder counts a reminder from the creditor. Delivery is not handled here.
func (l *DebtLedger) SendReminder(ctx context.Context, actor, debtID string) (*models.Debt, error) {
	debt, err := l.mutate(ctx, debtID, func(debt *models.Debt) error {
		if debt.To.UserID != actor {
			return apperr.NewForbiddenError("only the creditor can send reminders")
		}
		if debt.Status == models.DebtSettled {
			return apperr.NewConflictError("debt is already settled")
		}
		debt.ReminderCount++
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Debt reminder sent", "debt_id", debt.ID, "count", debt.ReminderCount)
	return debt, nil
}

// GetGroupBalances nets every outstanding debt of the group per member.
func (l *DebtLedger) GetGroupBalances(ctx context.Context, actor, groupID string) (*GroupBalances, error) {
	if _, err := l.guard.RequireReader(ctx, groupID, actor); err != nil {
		return nil, err
	}
	debts, err := l.debts.ListOutstandingDebts(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	balances, edges := calculator.GroupBalances(debts)
	return &GroupBalances{GroupID: groupID, Balances: balances, Edges: edges}, nil
}

func (l *DebtLedger) list(ctx context.Context, q DebtQuery, page storage.Page) ([]*models.Debt, storage.PageInfo, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, storage.PageInfo{}, apperr.Validationf("status", "unknown debt status %q", q.Status)
	}

	filter := storage.DebtFilter{GroupID: q.GroupID, Status: q.Status}
	switch q.Role {
	case RoleAny:
		filter.UserID = q.UserID
	case RoleDebtor:
		filter.FromUserID = q.UserID
	case RoleCreditor:
		filter.ToUserID = q.UserID
	default:
		return nil, storage.PageInfo{}, apperr.Validationf("role", "unknown role %q", q.Role)
	}

	debts, total, err := l.debts.ListDebts(ctx, filter, page)
	if err != nil {
		return nil, storage.PageInfo{}, fmt.Errorf("failed to list debts: %w", err)
	}
	return debts, storage.NewPageInfo(page, total), nil
}

func (l *DebtLedger) mutate(ctx context.Context, debtID string, fn func(*models.Debt) error) (*models.Debt, error) {
	for attempt := 1; ; attempt++ {
		debt, err := l.loadDebt(ctx, debtID)
		if err != nil {
			return nil, err
		}
		if err := fn(debt); err != nil {
			return nil, err
		}
		debt.UpdatedAt = l.now()

		err = l.debts.UpdateDebt(ctx, debt)
		switch {
		case err == nil:
			return debt, nil
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperr.NewNotFoundError("debt", debtID)
		case !errors.Is(err, storage.ErrVersionConflict):
			return nil, fmt.Errorf("failed to update debt: %w", err)
		}

		if attempt >= l.cfg.MaxRetries {
			slog.Warn("Debt update gave up after version conflicts", "debt_id", debtID, "attempts", attempt)
			return nil, apperr.NewConflictError("debt was modified concurrently, please retry")
		}
		metrics.OptimisticRetries.WithLabelValues("debt").Inc()
		slog.Debug("Debt version conflict, retrying", "debt_id", debtID, "attempt", attempt)
	}
}

func (l *DebtLedger) loadDebt(ctx context.Context, debtID string) (*models.Debt, error) {
	if debtID == "" {
		return nil, apperr.NewValidationError("debtId", "debt id is required")
	}
	debt, err := l.debts.GetDebt(ctx, debtID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NewNotFoundError("debt", debtID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load debt: %w", err)
	}
	return debt, nil
}

func (l *DebtLedger) findUser(ctx context.Context, id string) (*models.User, error) {
	user, err := l.users.FindUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, apperr.NewNotFoundError("user", id)
	}
	return user, nil
}
