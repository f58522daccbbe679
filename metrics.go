package shmstate

import "github.com/prometheus/client_golang/prometheus"

var (
	subscribesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmstate_subscribes_total",
		Help: "Total number of successful state subscriptions.",
	})
	unsubscribesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmstate_unsubscribes_total",
		Help: "Total number of state unsubscriptions.",
	})
	activeSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shmstate_active_subscriptions",
		Help: "Live state subscriptions held by this process.",
	})
	segmentsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmstate_segments_created_total",
		Help: "Total number of shared-memory segments created (not reattached).",
	})
	transactionsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmstate_transactions_started_total",
		Help: "Total number of transactions started.",
	})
	transactionCommitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmstate_transaction_commits_total",
		Help: "Total number of committed transactions.",
	})
	transactionAbortsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmstate_transaction_aborts_total",
		Help: "Total number of aborted transactions.",
	})
	activeTransactions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shmstate_active_transactions",
		Help: "Live transactions held by this process.",
	})
	unwindFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmstate_unwind_failures_total",
		Help: "Total number of unmap/close failures during lifecycle teardown.",
	})
)

func init() {
	prometheus.MustRegister(
		subscribesTotal,
		unsubscribesTotal,
		activeSubscriptions,
		segmentsCreatedTotal,
		transactionsStartedTotal,
		transactionCommitsTotal,
		transactionAbortsTotal,
		activeTransactions,
		unwindFailuresTotal,
	)
}
