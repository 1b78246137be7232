package store

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric result labels.
const (
	resultOK            = "ok"
	resultLocked        = "locked"
	resultNotFound      = "not_found"
	resultAlreadyExists = "already_exists"
	resultError         = "error"
)

type metrics struct {
	reg    prometheus.Registerer
	ops    *prometheus.CounterVec
	locked prometheus.Gauge
	writes prometheus.Counter
}

// newMetrics builds the store collectors and registers them on reg. A nil reg
// keeps the collectors private to the store.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		reg: reg,
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imag_store_operations_total",
				Help: "Total number of store operations by operation and result",
			},
			[]string{"op", "result"},
		),
		locked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "imag_store_locked_entries",
				Help: "Number of entries currently checked out by a handle",
			},
		),
		writes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "imag_store_entry_writes_total",
				Help: "Total number of entry files written",
			},
		),
	}

	if reg == nil {
		return m, nil
	}

	for i, c := range m.collectors() {
		err := reg.Register(c)
		if err != nil {
			for _, done := range m.collectors()[:i] {
				reg.Unregister(done)
			}

			return nil, err
		}
	}

	return m, nil
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.ops, m.locked, m.writes}
}

func (m *metrics) unregister() {
	if m.reg == nil {
		return
	}

	for _, c := range m.collectors() {
		m.reg.Unregister(c)
	}
}

func (m *metrics) observe(op string, err error) {
	m.ops.WithLabelValues(op, resultOf(err)).Inc()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrLocked):
		return resultLocked
	case errors.Is(err, ErrNotFound):
		return resultNotFound
	case errors.Is(err, ErrAlreadyExists):
		return resultAlreadyExists
	default:
		return resultError
	}
}
