package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transfer metrics
	TransfersFinished *prometheus.CounterVec
	TransferDuration  prometheus.Histogram

	// Wallet metrics
	WalletsLinked    prometheus.Counter
	BalanceRefreshes *prometheus.CounterVec

	// Ledger metrics
	LedgerWriteFailures prometheus.Counter

	// Chain RPC metrics
	ChainCalls    *prometheus.CounterVec
	ChainDuration *prometheus.HistogramVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg instead of the default
// registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransfersFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockpay_transfers_finished_total",
				Help: "Transfers that reached a terminal stage, by outcome and last stage",
			},
			[]string{"outcome", "stage"},
		),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "blockpay_transfer_duration_seconds",
			Help:    "Wall time from validation to a terminal stage",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		WalletsLinked: factory.NewCounter(prometheus.CounterOpts{
			Name: "blockpay_wallets_linked_total",
			Help: "Total number of wallets linked",
		}),
		BalanceRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockpay_balance_refreshes_total",
				Help: "Balance refresh completions by result",
			},
			[]string{"result"},
		),

		LedgerWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "blockpay_ledger_write_failures_total",
			Help: "Ledger writes that did not commit",
		}),

		ChainCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockpay_chain_calls_total",
				Help: "Chain RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		ChainDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blockpay_chain_call_duration_seconds",
				Help:    "Chain RPC call duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockpay_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blockpay_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "blockpay_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),

		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockpay_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockpay_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
