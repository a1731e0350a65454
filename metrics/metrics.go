// Package metrics provides Prometheus metrics for the quoting and hedging
// loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor collects the engine's operational metrics on its own registry.
type Monitor struct {
	registry *prometheus.Registry

	orderActions   *prometheus.CounterVec
	hedgeOrders    *prometheus.CounterVec
	aggregateDelta *prometheus.GaugeVec
	quotedCredit   *prometheus.GaugeVec
	cycleDuration  prometheus.Histogram
	cycleSkips     *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
}

// NewMonitor registers all metrics on a fresh registry.
func NewMonitor() *Monitor {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Monitor{
		registry: registry,
		orderActions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maker",
			Name:      "order_actions_total",
			Help:      "Order entry actions by kind (insert, amend, delete, keep).",
		}, []string{"action"}),
		hedgeOrders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maker",
			Name:      "hedge_orders_total",
			Help:      "IOC hedge orders by underlying and side.",
		}, []string{"underlying", "side"}),
		aggregateDelta: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "maker",
			Name:      "aggregate_delta",
			Help:      "Last computed aggregate delta per underlying.",
		}, []string{"underlying"}),
		quotedCredit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "maker",
			Name:      "quoted_credit",
			Help:      "Last quoted half-spread per instrument.",
		}, []string{"instrument"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "maker",
			Name:      "cycle_duration_seconds",
			Help:      "Full quoting cycle duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		cycleSkips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maker",
			Name:      "cycle_skips_total",
			Help:      "Cycles skipped per underlying because the reference book was empty.",
		}, []string{"underlying"}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maker",
			Name:      "errors_total",
			Help:      "Errors by stage (estimate, valuation, submit, hedge).",
		}, []string{"stage"}),
	}
}

// OrderAction counts one order-entry decision.
func (m *Monitor) OrderAction(action string) {
	m.orderActions.WithLabelValues(action).Inc()
}

// HedgeOrder counts one IOC hedge.
func (m *Monitor) HedgeOrder(underlying, side string) {
	m.hedgeOrders.WithLabelValues(underlying, side).Inc()
}

// SetAggregateDelta records the last aggregate delta for an underlying.
func (m *Monitor) SetAggregateDelta(underlying string, delta float64) {
	m.aggregateDelta.WithLabelValues(underlying).Set(delta)
}

// SetQuotedCredit records the last computed credit for an instrument.
func (m *Monitor) SetQuotedCredit(instrument string, credit float64) {
	m.quotedCredit.WithLabelValues(instrument).Set(credit)
}

// ObserveCycle records one full cycle's duration.
func (m *Monitor) ObserveCycle(d time.Duration) {
	m.cycleDuration.Observe(d.Seconds())
}

// CycleSkip counts an empty-book skip for an underlying.
func (m *Monitor) CycleSkip(underlying string) {
	m.cycleSkips.WithLabelValues(underlying).Inc()
}

// Error counts one error at a pipeline stage.
func (m *Monitor) Error(stage string) {
	m.errorsTotal.WithLabelValues(stage).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer exposes /metrics on addr in a background goroutine.
func StartServer(addr string, m *Monitor) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
