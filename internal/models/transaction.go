package models

import "time"

// TransactionType classifies a monetary event for analytics.
type TransactionType string

const (
	TransactionPayment    TransactionType = "payment"
	TransactionRefund     TransactionType = "refund"
	TransactionAdjustment TransactionType = "adjustment"
)

const TransactionCompleted = "completed"

// Metadata keys written on transactions.
const (
	MetaCategory  = "category"
	MetaBillTitle = "billTitle"
	MetaSource    = "source"
)

// SourceDebt is the MetaSource of the adjustment logged when a debt is
// created. It raises the debtor's outstanding debt and nothing else.
const SourceDebt = "debt"

// Transaction is an append-only snapshot of a bill payment or debt settlement.
// It doubles as the analytics outbox: AnalyticsAppliedAt is set once the
// rollups for this transaction have been written.
type Transaction struct {
	ID      string `json:"id"`
	GroupID string `json:"groupId"`
	BillID  string `json:"billId,omitempty"`
	DebtID  string `json:"debtId,omitempty"`

	FromUserID string  `json:"fromUserId"`
	ToUserID   string  `json:"toUserId"`
	Amount     float64 `json:"amount"`

	Type     TransactionType   `json:"type"`
	Status   string            `json:"status"`
	Method   string            `json:"method"`
	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	AnalyticsAppliedAt *time.Time `json:"analyticsAppliedAt,omitempty"`
}

// Category returns the category recorded in the metadata, if any.
func (t *Transaction) Category() string {
	if t.Metadata == nil {
		return ""
	}
	return t.Metadata[MetaCategory]
}

// Source returns the ledger operation that produced the transaction.
func (t *Transaction) Source() string {
	if t.Metadata == nil {
		return ""
	}
	return t.Metadata[MetaSource]
}
