package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecorderMetrics tracks the recorder binary's persistence work.
type RecorderMetrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
}

func NewRecorderMetrics(reg prometheus.Registerer) *RecorderMetrics {
	m := &RecorderMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "create_requests_total",
			Help:      "Record-creation requests by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "recorder",
			Name:      "create_duration_seconds",
			Help:      "Time spent persisting an inspection record.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *RecorderMetrics) CreateHandled(result string, elapsed time.Duration) {
	m.requests.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}
