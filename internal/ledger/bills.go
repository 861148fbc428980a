package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// CreateBillInput is the payload of CreateBill. Zero SplitMethod, Currency
// and PayerID fall back to the configured defaults and the actor.
type CreateBillInput struct {
	GroupID      string
	Title        string
	Amount       float64
	Currency     string
	Category     string
	SplitMethod  models.SplitMethod
	PayerID      string
	Participants []models.Participant
}

// BillUpdate lists the fields UpdateBill may change. Nil fields are left as
// they are; a nil Participants slice keeps the current participants.
type BillUpdate struct {
	Title        *string
	Amount       *float64
	Currency     *string
	Category     *string
	SplitMethod  *models.SplitMethod
	PayerID      *string
	Participants []models.Participant
}

// PaymentInput is the payload of AddPayment. An empty PayerID means the actor
// paid; an empty PayeeID means the bill payer received it.
type PaymentInput struct {
	Amount  float64
	PayerID string
	PayeeID string
	Date    time.Time
	Method  string
	Notes   string
}

// PaymentUpdate lists the payment fields UpdatePayment may change.
type PaymentUpdate struct {
	Amount *float64
	Date   *time.Time
	Method *string
	Notes  *string
}

// BillManager owns the bill lifecycle.
type BillManager struct {
	bills    storage.BillStore
	guard    *Guard
	recorder recorder
	cfg      Config
	now      func() time.Time
}

// NewBillManager creates a bill manager. analytics may be nil.
func NewBillManager(bills storage.BillStore, txs storage.TransactionStore, guard *Guard, analytics AnalyticsSink, cfg Config) *BillManager {
	return &BillManager{
		bills:    bills,
		guard:    guard,
		recorder: recorder{txs: txs, analytics: analytics},
		cfg:      cfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateBill validates and persists a new bill with seeded owed amounts.
func (m *BillManager) CreateBill(ctx context.Context, actor string, in CreateBillInput) (*models.Bill, error) {
	if in.Amount <= 0 {
		return nil, apperr.NewValidationError("amount", "must be greater than zero")
	}

	group, err := m.guard.RequireMember(ctx, in.GroupID, actor)
	if err != nil {
		return nil, err
	}

	payer := in.PayerID
	if payer == "" {
		payer = actor
	}
	method := in.SplitMethod
	if method == "" {
		method = m.cfg.DefaultSplitMethod
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = m.cfg.DefaultCurrency
	}

	if err := requireMembers(group, payer); err != nil {
		return nil, err
	}
	for _, p := range in.Participants {
		if err := requireMembers(group, p.UserID); err != nil {
			return nil, err
		}
	}

	shares, err := calculator.ComputeShares(in.Participants, method, in.Amount, nil, m.cfg.AmountPlaces)
	if err != nil {
		return nil, err
	}

	now := m.now()
	bill := &models.Bill{
		GroupID:      group.ID,
		Title:        strings.TrimSpace(in.Title),
		Amount:       in.Amount,
		Currency:     currency,
		Category:     strings.TrimSpace(in.Category),
		SplitMethod:  method,
		PayerID:      payer,
		Participants: shares,
		Status:       models.BillPending,
		Payments:     []models.BillPayment{},
		CreatedBy:    actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.bills.CreateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to save bill: %w", err)
	}

	metrics.BillsCreated.Inc()
	slog.Info("Bill created", "bill_id", bill.ID, "group_id", bill.GroupID, "amount", bill.Amount, "participants", len(shares))
	return bill, nil
}

// GetBill returns a bill to a member of its group.
func (m *BillManager) GetBill(ctx context.Context, actor, billID string) (*models.Bill, error) {
	bill, err := m.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if _, err := m.guard.RequireReader(ctx, bill.GroupID, actor); err != nil {
		return nil, err
	}
	return bill, nil
}

// ListGroupBills returns one page of a group's bills, optionally filtered by status.
func (m *BillManager) ListGroupBills(ctx context.Context, actor, groupID string, status models.BillStatus, page storage.Page) ([]*models.Bill, storage.PageInfo, error) {
	if _, err := m.guard.RequireReader(ctx, groupID, actor); err != nil {
		return nil, storage.PageInfo{}, err
	}
	if status != "" && !validBillStatus(status) {
		return nil, storage.PageInfo{}, apperr.Validationf("status", "unknown bill status %q", status)
	}

	bills, total, err := m.bills.ListBills(ctx, storage.BillFilter{GroupID: groupID, Status: status}, page)
	if err != nil {
		return nil, storage.PageInfo{}, fmt.Errorf("failed to list bills: %w", err)
	}
	return bills, storage.NewPageInfo(page, total), nil
}

// UpdateBill merges upd into the bill and recomputes shares against the
// existing payment history.
func (m *BillManager) UpdateBill(ctx context.Context, actor, billID string, upd BillUpdate) (*models.Bill, error) {
	bill, err := m.mutate(ctx, actor, billID, func(bill *models.Bill, group *models.Group) error {
		if !canManageBill(bill, group, actor) {
			return apperr.NewForbiddenError("only the bill creator or a group admin can update this bill")
		}
		if bill.Status == models.BillCancelled {
			return apperr.NewConflictError("cancelled bills cannot be updated")
		}

		if upd.Title != nil {
			bill.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.Amount != nil {
			if *upd.Amount <= 0 {
				return apperr.NewValidationError("amount", "must be greater than zero")
			}
			bill.Amount = *upd.Amount
		}
		if upd.Currency != nil && strings.TrimSpace(*upd.Currency) != "" {
			bill.Currency = strings.ToUpper(strings.TrimSpace(*upd.Currency))
		}
		if upd.Category != nil {
			bill.Category = strings.TrimSpace(*upd.Category)
		}
		if upd.SplitMethod != nil {
			bill.SplitMethod = *upd.SplitMethod
		}
		if upd.PayerID != nil {
			if err := requireMembers(group, *upd.PayerID); err != nil {
				return err
			}
			bill.PayerID = *upd.PayerID
		}
		if upd.Participants != nil {
			for _, p := range upd.Participants {
				if err := requireMembers(group, p.UserID); err != nil {
					return err
				}
			}
			bill.Participants = upd.Participants
		}

		shares, err := calculator.ComputeShares(bill.Participants, bill.SplitMethod, bill.Amount, bill.Payments, m.cfg.AmountPlaces)
		if err != nil {
			return err
		}
		bill.Participants = shares
		bill.Status = calculator.BillStatus(bill.Amount, bill.Payments)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BillMutations.WithLabelValues("update").Inc()
	slog.Info("Bill updated", "bill_id", bill.ID, "version", bill.Version)
	return bill, nil
}

// DeleteBill removes a bill that has no payments. Bills with payment history
// can only be cancelled. The delete is version-checked so a payment that
// commits after the read turns it into a retry.
func (m *BillManager) DeleteBill(ctx context.Context, actor, billID string) error {
	for attempt := 1; ; attempt++ {
		bill, err := m.loadBill(ctx, billID)
		if err != nil {
			return err
		}
		group, err := m.guard.RequireMember(ctx, bill.GroupID, actor)
		if err != nil {
			return err
		}
		if !canManageBill(bill, group, actor) {
			return apperr.NewForbiddenError("only the bill creator or a group admin can delete this bill")
		}
		if len(bill.Payments) > 0 {
			return apperr.NewConflictError("bill has recorded payments and cannot be deleted; cancel it instead")
		}

		err = m.bills.DeleteBill(ctx, billID, bill.Version)
		switch {
		case err == nil:
			metrics.BillMutations.WithLabelValues("delete").Inc()
			slog.Info("Bill deleted", "bill_id", billID, "actor", actor)
			return nil
		case errors.Is(err, storage.ErrNotFound):
			return apperr.NewNotFoundError("bill", billID)
		case !errors.Is(err, storage.ErrVersionConflict):
			return fmt.Errorf("failed to delete bill: %w", err)
		}

		if attempt >= m.cfg.MaxRetries {
			slog.Warn("Bill delete gave up after version conflicts", "bill_id", billID, "attempts", attempt)
			return apperr.NewConflictError("bill was modified concurrently, please retry")
		}
		metrics.OptimisticRetries.WithLabelValues("bill").Inc()
		slog.Debug("Bill version conflict on delete, retrying", "bill_id", billID, "attempt", attempt)
	}
}

// CancelBill marks a bill cancelled. Its payments are kept.
func (m *BillManager) CancelBill(ctx context.Context, actor, billID string) (*models.Bill, error) {
	bill, err := m.mutate(ctx, actor, billID, func(bill *models.Bill, group *models.Group) error {
		if !canManageBill(bill, group, actor) {
			return apperr.NewForbiddenError("only the bill creator or a group admin can cancel this bill")
		}
		if bill.Status == models.BillCancelled {
			return apperr.NewConflictError("bill is already cancelled")
		}
		bill.Status = models.BillCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BillMutations.WithLabelValues("cancel").Inc()
	slog.Info("Bill cancelled", "bill_id", bill.ID, "actor", actor)
	return bill, nil
}

// AddPayment appends a payment, recomputes owed amounts and status, then
// records the payment transaction.
func (m *BillManager) AddPayment(ctx context.Context, actor, billID string, in PaymentInput) (*models.Bill, *models.BillPayment, error) {
	if in.Amount <= 0 {
		return nil, nil, apperr.NewValidationError("amount", "must be greater than zero")
	}

	var payment models.BillPayment
	bill, err := m.mutate(ctx, actor, billID, func(bill *models.Bill, group *models.Group) error {
		if bill.Status == models.BillCancelled {
			return apperr.NewConflictError("cannot add a payment to a cancelled bill")
		}

		payer := in.PayerID
		if payer == "" {
			payer = actor
		}
		payee := in.PayeeID
		if payee == "" {
			payee = bill.PayerID
		}
		if payer == payee {
			return apperr.NewValidationError("payeeId", "payer and payee must be different users")
		}
		if err := requireMembers(group, payer, payee); err != nil {
			return err
		}

		now := m.now()
		date := in.Date
		if date.IsZero() {
			date = now
		}
		payment = models.BillPayment{
			ID:         uuid.New().String(),
			Amount:     in.Amount,
			PayerID:    payer,
			PayeeID:    payee,
			Date:       date.UTC(),
			Method:     in.Method,
			Notes:      in.Notes,
			RecordedBy: actor,
			CreatedAt:  now,
		}
		bill.Payments = append(bill.Payments, payment)

		shares, err := calculator.ComputeShares(bill.Participants, bill.SplitMethod, bill.Amount, bill.Payments, m.cfg.AmountPlaces)
		if err != nil {
			return err
		}
		bill.Participants = shares
		bill.Status = calculator.BillStatus(bill.Amount, bill.Payments)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.PaymentsRecorded.Inc()
	slog.Info("Payment recorded", "bill_id", bill.ID, "payment_id", payment.ID, "amount", payment.Amount, "status", bill.Status)

	m.recorder.record(ctx, &models.Transaction{
		GroupID:    bill.GroupID,
		BillID:     bill.ID,
		FromUserID: payment.PayerID,
		ToUserID:   payment.PayeeID,
		Amount:     payment.Amount,
		Type:       models.TransactionPayment,
		Status:     models.TransactionCompleted,
		Method:     payment.Method,
		Metadata: map[string]string{
			models.MetaCategory:  bill.Category,
			models.MetaBillTitle: bill.Title,
		},
		CreatedAt: payment.Date,
		UpdatedAt: payment.CreatedAt,
	}, sourcePayment)

	return bill, &payment, nil
}

// UpdatePayment edits a recorded payment and recomputes the bill status.
// Participant owed amounts are left until the next UpdateBill or AddPayment.
func (m *BillManager) UpdatePayment(ctx context.Context, actor, billID, paymentID string, upd PaymentUpdate) (*models.Bill, error) {
	bill, err := m.mutate(ctx, actor, billID, func(bill *models.Bill, group *models.Group) error {
		i, err := authorizePayment(bill, group, actor, paymentID)
		if err != nil {
			return err
		}

		p := &bill.Payments[i]
		if upd.Amount != nil {
			if *upd.Amount <= 0 {
				return apperr.NewValidationError("amount", "must be greater than zero")
			}
			p.Amount = *upd.Amount
		}
		if upd.Date != nil {
			p.Date = upd.Date.UTC()
		}
		if upd.Method != nil {
			p.Method = *upd.Method
		}
		if upd.Notes != nil {
			p.Notes = *upd.Notes
		}

		bill.Status = calculator.BillStatus(bill.Amount, bill.Payments)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BillMutations.WithLabelValues("update_payment").Inc()
	slog.Info("Payment updated", "bill_id", bill.ID, "payment_id", paymentID, "status", bill.Status)
	return bill, nil
}

// DeletePayment removes a recorded payment and recomputes the bill status,
// which may move backwards.
func (m *BillManager) DeletePayment(ctx context.Context, actor, billID, paymentID string) (*models.Bill, error) {
	bill, err := m.mutate(ctx, actor, billID, func(bill *models.Bill, group *models.Group) error {
		i, err := authorizePayment(bill, group, actor, paymentID)
		if err != nil {
			return err
		}

		bill.Payments = append(bill.Payments[:i], bill.Payments[i+1:]...)
		bill.Status = calculator.BillStatus(bill.Amount, bill.Payments)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BillMutations.WithLabelValues("delete_payment").Inc()
	slog.Info("Payment deleted", "bill_id", bill.ID, "payment_id", paymentID, "status", bill.Status)
	return bill, nil
}

// PreviewSplit computes shares without persisting anything.
func (m *BillManager) PreviewSplit(participants []models.Participant, method models.SplitMethod, amount float64) ([]models.Participant, error) {
	if amount <= 0 {
		return nil, apperr.NewValidationError("amount", "must be greater than zero")
	}
	if method == "" {
		method = m.cfg.DefaultSplitMethod
	}
	return calculator.ComputeShares(participants, method, amount, nil, m.cfg.AmountPlaces)
}

// mutate runs a version-checked read-modify-write of one bill. fn sees a
// fresh copy of the bill and the actor's group on every attempt.
func (m *BillManager) mutate(ctx context.Context, actor, billID string, fn func(*models.Bill, *models.Group) error) (*models.Bill, error) {
	for attempt := 1; ; attempt++ {
		bill, err := m.loadBill(ctx, billID)
		if err != nil {
			return nil, err
		}
		group, err := m.guard.RequireMember(ctx, bill.GroupID, actor)
		if err != nil {
			return nil, err
		}
		if err := fn(bill, group); err != nil {
			return nil, err
		}
		bill.UpdatedAt = m.now()

		err = m.bills.UpdateBill(ctx, bill)
		switch {
		case err == nil:
			return bill, nil
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperr.NewNotFoundError("bill", billID)
		case !errors.Is(err, storage.ErrVersionConflict):
			return nil, fmt.Errorf("failed to update bill: %w", err)
		}

		if attempt >= m.cfg.MaxRetries {
			slog.Warn("Bill update gave up after version conflicts", "bill_id", billID, "attempts", attempt)
			return nil, apperr.NewConflictError("bill was modified concurrently, please retry")
		}
		metrics.OptimisticRetries.WithLabelValues("bill").Inc()
		slog.Debug("Bill version conflict, retrying", "bill_id", billID, "attempt", attempt)
	}
}

func (m *BillManager) loadBill(ctx context.Context, billID string) (*models.Bill, error) {
	if billID == "" {
		return nil, apperr.NewValidationError("billId", "bill id is required")
	}
	bill, err := m.bills.GetBill(ctx, billID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NewNotFoundError("bill", billID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bill: %w", err)
	}
	return bill, nil
}

// authorizePayment finds paymentID and checks actor recorded it or manages
// the group.
func authorizePayment(bill *models.Bill, group *models.Group, actor, paymentID string) (int, error) {
	if bill.Status == models.BillCancelled {
		return -1, apperr.NewConflictError("payments of a cancelled bill cannot be changed")
	}
	i := bill.FindPayment(paymentID)
	if i < 0 {
		return -1, apperr.NewNotFoundError("payment", paymentID)
	}
	if bill.Payments[i].RecordedBy != actor && !group.IsManager(actor) {
		return -1, apperr.NewForbiddenError("only the payment recorder or a group admin can change this payment")
	}
	return i, nil
}

func validBillStatus(s models.BillStatus) bool {
	switch s {
	case models.BillPending, models.BillPartiallyPaid, models.BillCompleted, models.BillCancelled:
		return true
	}
	return false
}
