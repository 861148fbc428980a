package models

import "time"

// DebtStatus tracks how much of a debt has been settled.
type DebtStatus string

const (
	DebtActive           DebtStatus = "active"
	DebtPartiallySettled DebtStatus = "partially_settled"
	DebtSettled          DebtStatus = "settled"
	DebtDisputed         DebtStatus = "disputed"
)

// Valid reports whether s is a known debt status.
func (s DebtStatus) Valid() bool {
	switch s {
	case DebtActive, DebtPartiallySettled, DebtSettled, DebtDisputed:
		return true
	}
	return false
}

// DebtParty identifies one side of a debt with a display name snapshot
// taken when the debt was created.
type DebtParty struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// Debt represents an amount owed by From to To within a group.
// Once created, a debt is independent of later changes to its bill.
type Debt struct {
	ID      string `json:"id"`
	GroupID string `json:"groupId"`

	// From is the debtor, To is the creditor.
	From DebtParty `json:"from"`
	To   DebtParty `json:"to"`

	// BillID is the bill this debt originated from.
	BillID string `json:"billId"`

	Amount          float64 `json:"amount"`
	RemainingAmount float64 `json:"remainingAmount"`

	Status      DebtStatus   `json:"status"`
	Settlements []Settlement `json:"settlements"`

	DueDate       *time.Time `json:"dueDate,omitempty"`
	ReminderCount int        `json:"reminderCount"`
	Note          string     `json:"note,omitempty"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Version int64 `json:"version"`
}

// Settlement is a recorded payment that reduces a debt.
type Settlement struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	SettledBy string    `json:"settledBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsParty reports whether userID is the debtor or the creditor.
func (d *Debt) IsParty(userID string) bool {
	return d.From.UserID == userID || d.To.UserID == userID
}
