// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned by conditional updates when the stored
	// version no longer matches the version the caller read.
	ErrVersionConflict = errors.New("version conflict")
)

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	GroupStore
	BillStore
	DebtStore
	TransactionStore
	AnalyticsStore

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil, nil when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil, nil when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns the users that exist among ids, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// UpdateUser overwrites the display name and email of an existing user.
	UpdateUser(ctx context.Context, user *models.User) error
}

// GroupStore persists groups and their members.
type GroupStore interface {
	// CreateGroup persists a new group together with its members.
	// The group.ID field will be populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup returns the group with its members, or ErrNotFound.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	AddGroupMember(ctx context.Context, groupID string, member models.GroupMember) error
	SetGroupArchived(ctx context.Context, groupID string, archived bool) error
}

// BillStore persists bills with their embedded participants and payments.
type BillStore interface {
	// CreateBill persists a new bill at version 1.
	// The bill.ID field will be populated by the store.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill by its ID, or ErrNotFound.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// UpdateBill writes bill only if the stored version equals bill.Version,
	// then increments bill.Version. Returns ErrVersionConflict on mismatch
	// and ErrNotFound if the bill is gone.
	UpdateBill(ctx context.Context, bill *models.Bill) error

	// DeleteBill removes the bill only if its stored version equals version.
	DeleteBill(ctx context.Context, billID string, version int64) error

	// ListBills returns one page of matching bills, newest first, and the
	// total number of matches.
	ListBills(ctx context.Context, filter BillFilter, page Page) ([]*models.Bill, int, error)
}

// DebtStore persists debts with their embedded settlements.
type DebtStore interface {
	CreateDebt(ctx context.Context, debt *models.Debt) error
	GetDebt(ctx context.Context, debtID string) (*models.Debt, error)

	// UpdateDebt has the same version semantics as BillStore.UpdateBill.
	UpdateDebt(ctx context.Context, debt *models.Debt) error

	ListDebts(ctx context.Context, filter DebtFilter, page Page) ([]*models.Debt, int, error)

	// ListOutstandingDebts returns every debt in the group that is not settled.
	ListOutstandingDebts(ctx context.Context, groupID string) ([]*models.Debt, error)
}

// TransactionStore is the append-only transaction log.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	// ListUnappliedTransactions returns up to limit transactions whose
	// analytics have not been applied yet, oldest first.
	ListUnappliedTransactions(ctx context.Context, limit int) ([]*models.Transaction, error)
}

// AnalyticsStore persists per-user monthly rollups.
type AnalyticsStore interface {
	// ApplyTransaction applies deltas and marks the transaction as applied in
	// one atomic step. It returns false without changing anything when the
	// transaction was already applied.
	ApplyTransaction(ctx context.Context, txID string, deltas []models.AnalyticsDelta) (bool, error)

	// IncrementUserAnalytics applies a single delta outside of any transaction.
	IncrementUserAnalytics(ctx context.Context, delta models.AnalyticsDelta) error

	ListUserAnalytics(ctx context.Context, query AnalyticsQuery) ([]*models.UserAnalytics, error)
}
