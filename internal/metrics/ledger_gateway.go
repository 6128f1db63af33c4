package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger_gateway",
		Name:      "requests_total",
		Help:      "Count of destination chain requests per endpoint.",
	}, []string{"endpoint", "operation", "status"})
	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger_gateway",
		Name:      "request_duration_seconds",
		Help:      "Duration of destination chain requests.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"endpoint", "operation", "status"})
	gatewayBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger_gateway",
		Name:      "breaker_open",
		Help:      "1 while the circuit breaker of an endpoint is open.",
	}, []string{"endpoint"})
)

// LedgerGateway tracks destination chain requests.
type LedgerGateway struct{}

// NewLedgerGateway creates a LedgerGateway collector.
func NewLedgerGateway() *LedgerGateway {
	return &LedgerGateway{}
}

// ObserveRequest records one HTTP round trip against an endpoint.
func (m LedgerGateway) ObserveRequest(endpoint, operation string, err error, started time.Time) {
	status := statusLabel(err)
	gatewayRequestsTotal.WithLabelValues(endpoint, operation, status).Inc()
	gatewayRequestDuration.WithLabelValues(endpoint, operation, status).Observe(time.Since(started).Seconds())
}

// ObserveBreaker records whether an endpoint's breaker is open.
func (m LedgerGateway) ObserveBreaker(endpoint string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	gatewayBreakerState.WithLabelValues(endpoint).Set(v)
}
