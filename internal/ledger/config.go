// Package ledger implements the bill aggregate manager, the debt ledger and
// the group membership guard they share.
//
// Every mutation follows the same shape: load the aggregate, authorize the
// actor against the group, apply the change, then write it back conditionally
// on the version that was read. A version conflict reloads and retries up to
// Config.MaxRetries times before surfacing a ConflictError.
//
// After a payment, a settlement or a new debt is persisted, a Transaction is
// appended to the log and handed to the analytics sink. Analytics failures
// are logged and never fail the request; the transaction stays unapplied
// until the reconciler replays it.
package ledger

import (
	"context"
	"strings"

	"github.com/mmynk/splitledger/internal/models"
)

// Config carries the defaults applied by the ledger components.
type Config struct {
	DefaultCurrency    string
	DefaultSplitMethod models.SplitMethod

	// AmountPlaces is the rounding precision of participant owed amounts.
	// 0 rounds to whole currency units.
	AmountPlaces int32

	// MaxRetries bounds read-modify-write attempts on version conflicts.
	MaxRetries int
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		DefaultCurrency:    "USD",
		DefaultSplitMethod: models.SplitEqual,
		AmountPlaces:       0,
		MaxRetries:         3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = d.DefaultCurrency
	}
	c.DefaultCurrency = strings.ToUpper(c.DefaultCurrency)
	if !c.DefaultSplitMethod.Valid() {
		c.DefaultSplitMethod = d.DefaultSplitMethod
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = d.MaxRetries
	}
	return c
}

// AnalyticsSink receives ledger events for the analytics rollups.
type AnalyticsSink interface {
	ProcessTransaction(ctx context.Context, tx *models.Transaction) error
}

// UserFinder resolves user references. FindUser returns nil, nil for an
// unknown user.
type UserFinder interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
}
