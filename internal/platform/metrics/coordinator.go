package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeCancelled = "cancelled"
)

// Coordinator exports single-flight coordinator transitions as Prometheus
// collectors. It satisfies inflight.Metrics.
type Coordinator struct {
	submissions *prometheus.CounterVec
	inFlight    prometheus.Gauge
	stale       prometheus.Counter
	duration    prometheus.Histogram
}

func NewCoordinator(namespace, subsystem string) *Coordinator {
	return &Coordinator{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "submissions_total",
			Help:      "Submissions by terminal outcome, including rejected duplicates.",
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "in_flight",
			Help:      "1 while a request is outstanding.",
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stale_callbacks_total",
			Help:      "Completions discarded because their submission was cancelled or superseded.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Time from submit to completion of requests that were not cancelled.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

// Register adds the collectors to reg. Registering the same Coordinator twice
// is a no-op.
func (m *Coordinator) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.submissions, m.inFlight, m.stale, m.duration} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

func (m *Coordinator) SubmissionStarted() {
	m.inFlight.Inc()
}

func (m *Coordinator) SubmissionRejected() {
	m.submissions.WithLabelValues(OutcomeRejected).Inc()
}

func (m *Coordinator) SubmissionCancelled() {
	m.inFlight.Dec()
	m.submissions.WithLabelValues(OutcomeCancelled).Inc()
}

func (m *Coordinator) SubmissionFinished(succeeded bool, elapsed time.Duration) {
	m.inFlight.Dec()
	m.duration.Observe(elapsed.Seconds())
	if succeeded {
		m.submissions.WithLabelValues(OutcomeSucceeded).Inc()
		return
	}
	m.submissions.WithLabelValues(OutcomeFailed).Inc()
}

func (m *Coordinator) StaleCompletionDropped() {
	m.stale.Inc()
}
