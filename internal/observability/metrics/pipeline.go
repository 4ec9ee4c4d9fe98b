package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks extraction and record-creation outcomes. It
// satisfies the pipeline's observer contract.
type PipelineMetrics struct {
	submissions        *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	handshakes         *prometheus.CounterVec
	handshakeDuration  *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "submissions_total",
			Help:      "Document submissions by terminal outcome.",
		}, []string{"outcome"}),
		submissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "submission_duration_seconds",
			Help:      "Time from upload acceptance to a terminal session state.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "record_handshakes_total",
			Help:      "Record-creation handshakes by outcome.",
		}, []string{"outcome"}),
		handshakeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "record_handshake_duration_seconds",
			Help:      "Round-trip time of record-creation handshakes.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.submissions, m.submissionDuration, m.handshakes, m.handshakeDuration)
	return m
}

func (m *PipelineMetrics) SubmissionSettled(outcome string, duration time.Duration) {
	m.submissions.WithLabelValues(outcome).Inc()
	m.submissionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *PipelineMetrics) HandshakeSettled(outcome string, duration time.Duration) {
	m.handshakes.WithLabelValues(outcome).Inc()
	m.handshakeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
