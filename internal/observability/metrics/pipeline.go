package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics observes the claim submission pipeline.
type PipelineMetrics struct {
	service string

	submissionsTotal  *prometheus.CounterVec
	degradationsTotal *prometheus.CounterVec
	renderDuration    *prometheus.HistogramVec
	evidenceFiles     *prometheus.HistogramVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claims",
			Name:      "submissions_total",
			Help:      "Claim submissions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	degradationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claims",
			Name:      "upstream_degradations_total",
			Help:      "Submissions completed with a fallback for a failed upstream provider.",
		},
		[]string{"service", "provider"},
	)
	renderDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "claims",
			Name:      "render_duration_seconds",
			Help:      "PDF rendering duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"service"},
	)
	evidenceFiles := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "claims",
			Name:      "evidence_files",
			Help:      "Evidence images attached per submission.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		},
		[]string{"service"},
	)

	registerer.MustRegister(submissionsTotal, degradationsTotal, renderDuration, evidenceFiles)

	return &PipelineMetrics{
		service:           service,
		submissionsTotal:  submissionsTotal,
		degradationsTotal: degradationsTotal,
		renderDuration:    renderDuration,
		evidenceFiles:     evidenceFiles,
	}
}

func (m *PipelineMetrics) RecordSubmission(outcome string, evidenceCount int) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.submissionsTotal.WithLabelValues(m.service, outcome).Inc()
	if evidenceCount >= 0 {
		m.evidenceFiles.WithLabelValues(m.service).Observe(float64(evidenceCount))
	}
}

func (m *PipelineMetrics) RecordDegradation(provider string) {
	m.degradationsTotal.WithLabelValues(m.service, provider).Inc()
}

func (m *PipelineMetrics) RecordRenderDuration(d time.Duration) {
	m.renderDuration.WithLabelValues(m.service).Observe(d.Seconds())
}
