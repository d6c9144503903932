package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type rpcMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	rpcMetricsOnce sync.Once
	rpcRegistry    *rpcMetrics

	stakingMetricsOnce sync.Once
	stakingRegistry    *StakingMetrics
)

// RPC returns the lazily-initialised metrics registry used to record JSON-RPC
// activity.
func RPC() *rpcMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "arcadia",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "arcadia",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and error code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "arcadia",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "arcadia",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.errors,
			rpcRegistry.latency,
			rpcRegistry.throttles,
		)
	})
	return rpcRegistry
}

// Observe records the outcome of an RPC request. A zero code means success.
func (m *rpcMetrics) Observe(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied reason.
// Reasons should be stable strings such as "rate_limit" or "body_too_large"
// so dashboards and alerts remain consistent.
func (m *rpcMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// StakingMetrics captures collectors tracking the staking engine's health.
type StakingMetrics struct {
	operations    *prometheus.CounterVec
	rewardsMinted prometheus.Counter
	stakedTotal   *prometheus.GaugeVec
	pauseEngaged  prometheus.Gauge
	shutdown      prometheus.Gauge
}

// Staking exposes the singleton metrics registry for staking operations.
func Staking() *StakingMetrics {
	stakingMetricsOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "arcadia",
				Subsystem: "lpstaking",
				Name:      "operations_total",
				Help:      "Count of staking operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			rewardsMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "arcadia",
				Subsystem: "lpstaking",
				Name:      "rewards_minted_total",
				Help:      "Cumulative ARC minted through pool claims, in base units.",
			}),
			stakedTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "arcadia",
				Subsystem: "lpstaking",
				Name:      "pool_staked_total",
				Help:      "Current staked LP amount per pool in native base units.",
			}, []string{"pool"}),
			pauseEngaged: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "arcadia",
				Subsystem: "lpstaking",
				Name:      "pause_engaged",
				Help:      "Indicates whether the module pause guard is active (1) or not (0).",
			}),
			shutdown: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "arcadia",
				Subsystem: "lpstaking",
				Name:      "shutdown",
				Help:      "Indicates whether the irreversible shutdown has been triggered.",
			}),
		}
		prometheus.MustRegister(
			stakingRegistry.operations,
			stakingRegistry.rewardsMinted,
			stakingRegistry.stakedTotal,
			stakingRegistry.pauseEngaged,
			stakingRegistry.shutdown,
		)
	})
	return stakingRegistry
}

// RecordOperation tracks the outcome of one staking operation.
func (m *StakingMetrics) RecordOperation(operation string, err error) {
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

// RecordMint adds the minted ARC amount to the cumulative counter.
func (m *StakingMetrics) RecordMint(amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.rewardsMinted.Add(bigToFloat(amount))
}

// RecordPoolTotal updates the staked-total gauge for a pool label.
func (m *StakingMetrics) RecordPoolTotal(pool string, total *big.Int) {
	if m == nil {
		return
	}
	label := strings.TrimSpace(pool)
	if label == "" {
		label = "unknown"
	}
	m.stakedTotal.WithLabelValues(label).Set(bigToFloat(total))
}

// SetPause toggles the pause_engaged gauge.
func (m *StakingMetrics) SetPause(engaged bool) {
	if m == nil {
		return
	}
	if engaged {
		m.pauseEngaged.Set(1)
		return
	}
	m.pauseEngaged.Set(0)
}

// SetShutdown latches the shutdown gauge.
func (m *StakingMetrics) SetShutdown() {
	if m == nil {
		return
	}
	m.shutdown.Set(1)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
