package models

import "time"

// SplitMethod is the strategy for apportioning a bill among participants.
type SplitMethod string

const (
	SplitEqual      SplitMethod = "equal"
	SplitPercentage SplitMethod = "percentage"
)

// Valid reports whether m is a known split method.
func (m SplitMethod) Valid() bool {
	return m == SplitEqual || m == SplitPercentage
}

// BillStatus is derived from the total paid against the bill amount.
type BillStatus string

const (
	BillPending       BillStatus = "pending"
	BillPartiallyPaid BillStatus = "partially_paid"
	BillCompleted     BillStatus = "completed"
	BillCancelled     BillStatus = "cancelled"
)

// Bill represents an expense owned by a group and split among participants.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string `json:"id"`

	// GroupID is the group that owns this bill.
	GroupID string `json:"groupId"`

	// Title is the human-readable name for the bill.
	// Auto-generated from participants when left empty.
	Title string `json:"title"`

	// Amount is the total bill amount. Always positive.
	Amount float64 `json:"amount"`

	Currency string `json:"currency"`
	Category string `json:"category"`

	SplitMethod SplitMethod `json:"splitMethod"`

	// PayerID is the user who fronted the bill.
	PayerID string `json:"payerId"`

	// Participants is the ordered list of people splitting the bill.
	Participants []Participant `json:"participants"`

	Status BillStatus `json:"status"`

	// Payments is append-only under normal flow; see BillPayment.
	Payments []BillPayment `json:"payments"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Version increments on every successful write.
	Version int64 `json:"version"`
}

// Participant is one person's share of a bill.
type Participant struct {
	UserID string `json:"userId"`

	// Share is the percentage of the bill this participant is responsible for.
	// For equal splits it is derived as round(100/N, 2).
	Share float64 `json:"share"`

	// AmountOwed is the expected share minus what this participant already paid,
	// rounded and never negative.
	AmountOwed float64 `json:"amountOwed"`
}

// BillPayment is a payment recorded against a bill.
type BillPayment struct {
	ID         string    `json:"id"`
	Amount     float64   `json:"amount"`
	PayerID    string    `json:"payerId"`
	PayeeID    string    `json:"payeeId"`
	Date       time.Time `json:"date"`
	Method     string    `json:"method"`
	Notes      string    `json:"notes,omitempty"`
	RecordedBy string    `json:"recordedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID is one of the bill participants.
func (b *Bill) HasParticipant(userID string) bool {
	for _, p := range b.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// FindPayment returns the index of the payment with the given ID, or -1.
func (b *Bill) FindPayment(paymentID string) int {
	for i := range b.Payments {
		if b.Payments[i].ID == paymentID {
			return i
		}
	}
	return -1
}

// ParticipantIDs returns the participant user IDs in order.
func (b *Bill) ParticipantIDs() []string {
	ids := make([]string, len(b.Participants))
	for i, p := range b.Participants {
		ids[i] = p.UserID
	}
	return ids
}
