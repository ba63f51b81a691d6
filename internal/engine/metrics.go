package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the coordinator's Prometheus counters.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	chunks   *prometheus.CounterVec
	rows     *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	opens    prometheus.Counter
}

// NewMetrics registers the coordinator counters with reg.
// Pass prometheus.DefaultRegisterer to expose them process-wide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		chunks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catsim_chunks_total",
				Help: "Resolved chunks appended to a catalog sink",
			},
			[]string{"catalog"},
		),
		rows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catsim_rows_total",
				Help: "Resolved rows appended to a catalog sink",
			},
			[]string{"catalog"},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catsim_class_outcomes_total",
				Help: "Equivalence class outcomes by status",
			},
			[]string{"status"},
		),
		opens: f.NewCounter(
			prometheus.CounterOpts{
				Name: "catsim_source_opens_total",
				Help: "Row source adapters opened",
			},
		),
	}
}

func (m *Metrics) appended(catalog string, rows int) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(catalog).Inc()
	m.rows.WithLabelValues(catalog).Add(float64(rows))
}

func (m *Metrics) outcome(s Status) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(s)).Inc()
}

func (m *Metrics) opened() {
	if m == nil {
		return
	}
	m.opens.Inc()
}
