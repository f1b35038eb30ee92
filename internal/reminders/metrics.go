package reminders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the dispatcher's Prometheus collectors. A nil registerer
// builds them unregistered.
type Metrics struct {
	Ticks        prometheus.Counter
	SkippedTicks prometheus.Counter
	Outcomes     *prometheus.CounterVec
	TickDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sourdough",
			Subsystem: "dispatcher",
			Name:      "ticks_total",
			Help:      "Dispatcher ticks that ran.",
		}),
		SkippedTicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sourdough",
			Subsystem: "dispatcher",
			Name:      "ticks_skipped_total",
			Help:      "Ticks skipped because the previous one was still running.",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sourdough",
			Subsystem: "dispatcher",
			Name:      "reminders_total",
			Help:      "Processed due reminders by outcome.",
		}, []string{"outcome"}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sourdough",
			Subsystem: "dispatcher",
			Name:      "tick_duration_seconds",
			Help:      "Duration of dispatcher ticks.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

const (
	outcomeRescheduled = "rescheduled"
	outcomeRetired     = "retired"
	outcomePruned      = "pruned"
	outcomeFailed      = "failed"
)
