package observability

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics bundles the collectors tracking engine operation health.
type VaultMetrics struct {
	operations    *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	poolSize      prometheus.Gauge
	totalShares   prometheus.Gauge
	pendingOrders prometheus.Gauge
	pendingShares prometheus.Gauge
}

// HTTPMetrics records request-level activity for the read API.
type HTTPMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	vaultMetricsOnce sync.Once
	vaultRegistry    *VaultMetrics

	httpMetricsOnce sync.Once
	httpRegistry    *HTTPMetrics
)

// Vault returns the lazily-initialised metrics registry used to record vault
// engine activity.
func Vault() *VaultMetrics {
	vaultMetricsOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vaultcore",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Count of engine operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vaultcore",
				Subsystem: "engine",
				Name:      "rejections_total",
				Help:      "Count of operations rejected by capacity or authorisation guards.",
			}, []string{"operation", "reason"}),
			poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "vaultcore",
				Subsystem: "pool",
				Name:      "size",
				Help:      "Recorded pool principal in integer asset units.",
			}),
			totalShares: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "vaultcore",
				Subsystem: "issuer",
				Name:      "total_shares",
				Help:      "Outstanding share supply in integer share units.",
			}),
			pendingOrders: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "vaultcore",
				Subsystem: "book",
				Name:      "pending_orders",
				Help:      "Number of redemption orders awaiting a fill.",
			}),
			pendingShares: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "vaultcore",
				Subsystem: "book",
				Name:      "pending_shares",
				Help:      "Shares escrowed against pending redemption orders.",
			}),
		}
		prometheus.MustRegister(
			vaultRegistry.operations,
			vaultRegistry.rejections,
			vaultRegistry.poolSize,
			vaultRegistry.totalShares,
			vaultRegistry.pendingOrders,
			vaultRegistry.pendingShares,
		)
	})
	return vaultRegistry
}

// CountOperation increments the operation counter, classifying the outcome by
// whether the operation returned an error.
func (m *VaultMetrics) CountOperation(operation string, err error) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// RecordRejection increments the rejection counter for the supplied reason.
// Reasons should be stable strings such as "throughput", "supply_cap" or
// "unauthorized" so dashboards remain consistent.
func (m *VaultMetrics) RecordRejection(operation, reason string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unspecified"
	}
	m.rejections.WithLabelValues(operation, reason).Inc()
}

// RecordPool updates the pool principal gauge.
func (m *VaultMetrics) RecordPool(size *big.Int) {
	if m == nil {
		return
	}
	m.poolSize.Set(bigToFloat(size))
}

// RecordSupply updates the outstanding share gauge.
func (m *VaultMetrics) RecordSupply(totalShares *big.Int) {
	if m == nil {
		return
	}
	m.totalShares.Set(bigToFloat(totalShares))
}

// RecordBook updates the order book gauges.
func (m *VaultMetrics) RecordBook(pendingOrders uint64, pendingShares *big.Int) {
	if m == nil {
		return
	}
	m.pendingOrders.Set(float64(pendingOrders))
	m.pendingShares.Set(bigToFloat(pendingShares))
}

// HTTP returns the lazily-initialised registry used by the read API handlers.
func HTTP() *HTTPMetrics {
	httpMetricsOnce.Do(func() {
		httpRegistry = &HTTPMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vaultcore",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total read API requests segmented by route and outcome.",
			}, []string{"route", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "vaultcore",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for read API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vaultcore",
				Subsystem: "http",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by the per-client rate limiter.",
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			httpRegistry.requests,
			httpRegistry.latency,
			httpRegistry.throttles,
		)
	})
	return httpRegistry
}

// Observe records the outcome of a read API request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *HTTPMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, outcome).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordThrottle counts a request rejected by the rate limiter.
func (m *HTTPMetrics) RecordThrottle(route string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.throttles.WithLabelValues(route).Inc()
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
