// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Settlement metrics
	SettlementsTotal   *prometheus.CounterVec
	SettlementDuration *prometheus.HistogramVec
	NativeMoved        *prometheus.CounterVec
	TokensSwapped      prometheus.Counter
	DustRetained       prometheus.Counter
	Compensations      *prometheus.CounterVec
	LedgerWriteErrors  *prometheus.CounterVec

	// Oracle metrics
	QuoteAge      *prometheus.HistogramVec
	QuoteRejected *prometheus.CounterVec

	// Solana metrics
	RPCCallLatency  *prometheus.HistogramVec
	WSNotifications prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSettlement prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "swap_vault"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Settlement metrics
		SettlementsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "operations_total",
			Help:      "Total number of settlement operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		SettlementDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "duration_seconds",
			Help:      "Settlement operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		NativeMoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "native_moved_total",
			Help:      "Native units moved into or out of vaults by operation",
		}, []string{"operation"}),
		TokensSwapped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "tokens_swapped_total",
			Help:      "Token units received by swaps",
		}),
		DustRetained: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "dust_retained_total",
			Help:      "Token units truncated by floor division",
		}),
		Compensations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "compensations_total",
			Help:      "Compensating transfers by step and outcome",
		}, []string{"step", "outcome"}),
		LedgerWriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "ledger_write_errors_total",
			Help:      "Ledger and analytics append failures by store",
		}, []string{"store"}),

		// Oracle metrics
		QuoteAge: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "quote_age_seconds",
			Help:      "Age of price quotes at validation time",
			Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
		}, []string{"feed"}),
		QuoteRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "quotes_rejected_total",
			Help:      "Price quotes rejected by reason",
		}, []string{"reason"}),

		// Solana metrics
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSNotifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_notifications_total",
			Help:      "Account notifications received over WebSocket",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSettlement: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_settlement_timestamp",
			Help:      "Unix timestamp of last successful settlement",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordSettlement records the outcome and duration of a settlement operation.
func RecordSettlement(operation, outcome string, seconds float64) {
	DefaultMetrics.SettlementsTotal.WithLabelValues(operation, outcome).Inc()
	DefaultMetrics.SettlementDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordNativeMoved adds to the native volume counter for operation.
func RecordNativeMoved(operation string, amount uint64) {
	DefaultMetrics.NativeMoved.WithLabelValues(operation).Add(float64(amount))
}

// RecordSwap records token intake and truncated dust of a swap.
func RecordSwap(tokensIn, dust uint64) {
	DefaultMetrics.TokensSwapped.Add(float64(tokensIn))
	DefaultMetrics.DustRetained.Add(float64(dust))
}

// RecordCompensation records a compensating transfer attempt.
func RecordCompensation(step string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	DefaultMetrics.Compensations.WithLabelValues(step, outcome).Inc()
}

// RecordLedgerError records a failed ledger or analytics append.
func RecordLedgerError(store string) {
	DefaultMetrics.LedgerWriteErrors.WithLabelValues(store).Inc()
}

// RecordQuoteAge records the age of a validated or rejected quote.
func RecordQuoteAge(feed string, seconds float64) {
	DefaultMetrics.QuoteAge.WithLabelValues(feed).Observe(seconds)
}

// RecordQuoteRejected records a rejected quote by reason.
func RecordQuoteRejected(reason string) {
	DefaultMetrics.QuoteRejected.WithLabelValues(reason).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordWSNotification increments the WebSocket notification counter.
func RecordWSNotification() {
	DefaultMetrics.WSNotifications.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateLastSettlement sets the last successful settlement timestamp.
func UpdateLastSettlement(unix int64) {
	DefaultMetrics.LastSuccessfulSettlement.Set(float64(unix))
}
