// Package metrics exposes the engine's Prometheus collectors:
//   - engine_cycles_total{mode}            – trading cycles completed
//   - engine_signals_total{action}         – selector outcomes
//   - engine_trades_total{exit_reason}     – closed trades by exit reason
//   - engine_rejections_total              – admission rejections
//   - engine_equity_usd                    – current equity snapshot
//   - engine_open_positions                – open position count
//   - engine_data_failures                 – consecutive data-fetch failures
//
// Registered on a dedicated registry and served at /metrics by the dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine's collectors. Engine-scoped, not global.
type Metrics struct {
	Registry *prometheus.Registry

	Cycles       *prometheus.CounterVec
	Signals      *prometheus.CounterVec
	Trades       *prometheus.CounterVec
	Rejections   prometheus.Counter
	Equity       prometheus.Gauge
	OpenPos      prometheus.Gauge
	DataFailures prometheus.Gauge
}

// New creates and registers the collector set.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "engine_cycles_total", Help: "Trading cycles completed"},
			[]string{"mode"},
		),
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "engine_signals_total", Help: "Selector outcomes"},
			[]string{"action"},
		),
		Trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "engine_trades_total", Help: "Closed trades by exit reason"},
			[]string{"exit_reason"},
		),
		Rejections: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "engine_rejections_total", Help: "Admission rejections"},
		),
		Equity: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "engine_equity_usd", Help: "Equity in USD"},
		),
		OpenPos: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "engine_open_positions", Help: "Open position count"},
		),
		DataFailures: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "engine_data_failures", Help: "Consecutive data-fetch failures"},
		),
	}
	m.Registry.MustRegister(m.Cycles, m.Signals, m.Trades, m.Rejections, m.Equity, m.OpenPos, m.DataFailures)
	return m
}
