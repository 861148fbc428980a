package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/storage"
)

// Reconciler replays transactions whose analytics were never applied, for
// example because the request-path update failed or the process crashed
// between the ledger write and the rollup.
type Reconciler struct {
	txs        storage.TransactionStore
	aggregator *Aggregator
	batchSize  int

	mu   sync.Mutex
	cron *cron.Cron
}

// NewReconciler creates a reconciler applying up to batchSize transactions per run.
func NewReconciler(txs storage.TransactionStore, aggregator *Aggregator, batchSize int) *Reconciler {
	if batchSize < 1 {
		batchSize = 100
	}
	return &Reconciler{txs: txs, aggregator: aggregator, batchSize: batchSize}
}

// RunOnce applies one batch of unapplied transactions and returns how many
// were applied. A failing transaction is logged and left for the next run.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.txs.ListUnappliedTransactions(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unapplied transactions: %w", err)
	}

	applied := 0
	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		ok, err := r.aggregator.apply(ctx, tx)
		if err != nil {
			metrics.AnalyticsFailures.WithLabelValues("reconcile").Inc()
			slog.Warn("reconcile transaction failed", "transaction_id", tx.ID, "error", err)
			continue
		}
		if ok {
			applied++
			metrics.TransactionsReconciled.Inc()
		}
	}

	if applied > 0 {
		slog.Info("Reconciled analytics", "applied", applied, "pending", len(pending))
	}
	return applied, nil
}

// Start runs RunOnce on schedule, a cron expression such as "@every 1m", until
// Stop is called.
func (r *Reconciler) Start(ctx context.Context, schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return fmt.Errorf("reconciler already started")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			slog.Error("analytics reconcile run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	c.Start()
	r.cron = c

	slog.Info("Analytics reconciler started", "schedule", schedule, "batch_size", r.batchSize)
	return nil
}

// Stop halts the schedule and waits for a running batch to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
}
