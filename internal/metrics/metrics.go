// Package metrics declares the Prometheus collectors of the ledger.
// They register with the default registry and are served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BillsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitledger_bills_created_total",
			Help: "Total number of bills created",
		},
	)

	// BillMutations counts successful bill writes by operation.
	BillMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_bill_mutations_total",
			Help: "Total number of bill updates by operation",
		},
		[]string{"op"}, // update, delete, cancel, update_payment, delete_payment
	)

	PaymentsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitledger_payments_recorded_total",
			Help: "Total number of bill payments recorded",
		},
	)

	DebtsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitledger_debts_created_total",
			Help: "Total number of debts created",
		},
	)

	// SettlementsRecorded counts settlements by resulting debt status.
	SettlementsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_settlements_recorded_total",
			Help: "Total number of debt settlements by resulting status",
		},
		[]string{"status"}, // settled, partially_settled
	)

	// AnalyticsFailures counts swallowed analytics errors by source.
	AnalyticsFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_analytics_failures_total",
			Help: "Total number of analytics updates that failed and were deferred",
		},
		[]string{"source"}, // payment, settlement, debt, reconcile
	)

	// OptimisticRetries counts version conflicts that triggered a retry.
	OptimisticRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_optimistic_retries_total",
			Help: "Total number of read-modify-write retries after a version conflict",
		},
		[]string{"aggregate"}, // bill, debt
	)

	TransactionsReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitledger_transactions_reconciled_total",
			Help: "Total number of transactions applied by the analytics reconciler",
		},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "splitledger_rate_limited_total",
			Help: "Total number of calls rejected by the rate limiter",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitledger_cache_lookups_total",
			Help: "Total number of user cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)
)
