package ledger

import (
	"context"
	"log/slog"

	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Transaction sources recorded in metadata and metrics.
const (
	sourcePayment    = "payment"
	sourceSettlement = "settlement"
	sourceDebt       = models.SourceDebt
)

// SettlementCategory is the category recorded on settlement transactions.
const SettlementCategory = "settlement"

// recorder appends transactions to the log and forwards them to analytics.
type recorder struct {
	txs       storage.TransactionStore
	analytics AnalyticsSink
}

// record runs after the ledger write has committed, so nothing here can fail
// the request. A transaction whose analytics fail stays unapplied in the log
// and is picked up by the reconciler.
func (r recorder) record(ctx context.Context, tx *models.Transaction, source string) {
	if tx.Metadata == nil {
		tx.Metadata = make(map[string]string)
	}
	tx.Metadata[models.MetaSource] = source

	if err := r.txs.CreateTransaction(ctx, tx); err != nil {
		metrics.AnalyticsFailures.WithLabelValues(source).Inc()
		slog.Error("failed to record transaction",
			"source", source,
			"bill_id", tx.BillID,
			"debt_id", tx.DebtID,
			"error", err,
		)
		return
	}

	if r.analytics == nil {
		return
	}
	if err := r.analytics.ProcessTransaction(ctx, tx); err != nil {
		metrics.AnalyticsFailures.WithLabelValues(source).Inc()
		slog.Warn("analytics update deferred to reconciler",
			"transaction_id", tx.ID,
			"source", source,
			"error", err,
		)
	}
}
