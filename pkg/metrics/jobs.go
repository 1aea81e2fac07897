package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records runs of the scheduled maintenance jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	removed  *prometheus.CounterVec
}

// NewJobMetrics registers the job collectors on reg.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success_total",
		Help: "Successful maintenance job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure_total",
		Help: "Failed maintenance job executions.",
	}, []string{"job"})
	removed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_rows_deleted_total",
		Help: "Rows removed by retention jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure, removed)
	return &JobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		removed:  removed,
	}
}

func (m *JobMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (m *JobMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(job)).Inc()
}

func (m *JobMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddDeleted counts rows a retention job removed.
func (m *JobMetrics) AddDeleted(job string, rows int64) {
	if m == nil || m.removed == nil || rows <= 0 {
		return
	}
	m.removed.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
}
