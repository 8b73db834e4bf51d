package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes reported to choreo_runs_finished_total.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomePreempted = "preempted"
	OutcomeFaulted   = "faulted"
)

// Metrics are the controller collectors. A nil *Metrics records nothing.
type Metrics struct {
	started   *prometheus.CounterVec
	finished  *prometheus.CounterVec
	fragments prometheus.Gauge
	duration  *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg. Each controller host owns its
// registry, so nothing is shared between processes embedding the engine.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		started: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "choreo",
				Name:      "runs_started_total",
				Help:      "Choreography runs started.",
			},
			[]string{"effect"},
		),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "choreo",
				Name:      "runs_finished_total",
				Help:      "Choreography runs finished, by outcome.",
			},
			[]string{"effect", "outcome"},
		),
		fragments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "choreo",
				Name:      "fragments_live",
				Help:      "Fragments currently attached to the scene.",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "choreo",
				Name:      "run_duration_seconds",
				Help:      "Playback time of finished runs in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5, 10},
			},
			[]string{"effect"},
		),
	}
	for _, c := range []prometheus.Collector{m.started, m.finished, m.fragments, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RunStarted counts a started run.
func (m *Metrics) RunStarted(effect string) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(effect).Inc()
}

// RunFinished counts a finished run and observes its playback time.
func (m *Metrics) RunFinished(effect, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(effect, outcome).Inc()
	m.duration.WithLabelValues(effect).Observe(elapsed.Seconds())
}

// Fragments sets the live fragment gauge.
func (m *Metrics) Fragments(n int) {
	if m == nil {
		return
	}
	m.fragments.Set(float64(n))
}
