package poster

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus series the driver updates. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Runs      *prometheus.CounterVec
	Published prometheus.Counter
	Skipped   prometheus.Counter
	LastIndex prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedbackposter_runs_total",
			Help: "Posting runs by outcome.",
		}, []string{"outcome"}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedbackposter_rows_published_total",
			Help: "Rows posted.",
		}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedbackposter_rows_skipped_total",
			Help: "Rows skipped because they had no message text.",
		}),
		LastIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedbackposter_cursor_last_index",
			Help: "Position of the last processed row.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.Published, m.Skipped, m.LastIndex)
	}
	return m
}

func (m *Metrics) observeRun(r Report) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(string(r.Outcome)).Inc()
}

func (m *Metrics) published() {
	if m != nil {
		m.Published.Inc()
	}
}

func (m *Metrics) skipped() {
	if m != nil {
		m.Skipped.Inc()
	}
}

func (m *Metrics) setCursor(idx int) {
	if m != nil {
		m.LastIndex.Set(float64(idx))
	}
}
