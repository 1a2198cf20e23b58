package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Order metrics
	OrdersCreated  prometheus.Counter
	OrdersResolved *prometheus.CounterVec
	OrderDuration  prometheus.Histogram

	// Withdrawal metrics
	WithdrawalsCreated  prometheus.Counter
	WithdrawalsResolved *prometheus.CounterVec
	WithdrawalDuration  prometheus.Histogram

	// Ledger metrics
	AdjustmentsCreated     *prometheus.CounterVec
	InsufficientFundsTotal *prometheus.CounterVec
	StoreErrors            *prometheus.CounterVec

	// Deposit sweep metrics
	DepositsProcessed *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
	SweepWalletErrors prometheus.Counter
	ConfirmAttempts   prometheus.Histogram

	// Outbox metrics
	EventsPublished *prometheus.CounterVec

	// Redis metrics
	RedisErrors *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg instead of the default registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Order metrics
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "balanceledger_orders_created_total",
			Help: "Total number of sell orders created",
		}),
		OrdersResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balanceledger_orders_resolved_total",
				Help: "Total number of sell orders resolved by status",
			},
			[]string{"status"},
		),
		OrderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "balanceledger_order_duration_seconds",
			Help:    "Duration of order operations",
			Buckets: prometheus.DefBuckets,
		}),

		// Withdrawal metrics
		WithdrawalsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "balanceledger_withdrawals_created_total",
			Help: "Total number of withdrawals created",
		}),
		WithdrawalsResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balanceledger_withdrawals_resolved_total",
				Help: "Total number of withdrawals resolved by status",
			},
			[]string{"status"},
		),
		WithdrawalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "balanceledger_withdrawal_duration_seconds",
			Help:    "Duration of withdrawal operations",
			Buckets: prometheus.DefBuckets,
		}),

		// Ledger metrics
		AdjustmentsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balanceledger_adjustments_created_total",
				Help: "Total number of administrative adjustments by kind",
			},
			[]string{"kind"},
		),
		InsufficientFundsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balanceledger_insufficient_funds_total",
				Help: "Total number of holds rejected for insufficient funds",
			},
			[]string{"operation"},
		),
		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balanceledger_store_errors_total",
				Help: "Total failed store transactions",
			},
			[]string{"operation"},
		),

		// Deposit sweep metrics
		DepositsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balanceledger_deposits_processed_total",
				Help: "Total deposits reaching a terminal status",
			},
			[]string{"status"},
		),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "balanceledger_sweep_duration_seconds",
			Help:    "Duration of deposit sweep ticks",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
		}),
		SweepWalletErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "balanceledger_sweep_wallet_errors_total",
			Help: "Total wallets whose reconciliation failed during a tick",
		}),
		ConfirmAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "balanceledger_forward_confirm_attempts",
			Help:    "Receipt polls needed to confirm a forwarding transfer",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),

		// Outbox metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balanceledger_events_published_total",
				Help: "Total outbox events published by status",
			},
			[]string{"status"},
		),

		// Redis metrics
		RedisErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balanceledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),
	}
}
