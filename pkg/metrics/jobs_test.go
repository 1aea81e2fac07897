package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestJobMetricsRecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.ObserveDuration("outbox-retention", 2*time.Second)
	m.IncSuccess("outbox-retention")
	m.IncFailure("")
	m.AddDeleted("outbox-retention", 7)
	m.AddDeleted("outbox-retention", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "job_success_total", "job", "outbox-retention"); err != nil || got != 1 {
		t.Fatalf("expected one success, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "job_failure_total", "job", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected one unlabelled failure, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "job_rows_deleted_total", "job", "outbox-retention"); err != nil || got != 7 {
		t.Fatalf("expected 7 deleted rows, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "job_duration_seconds", "job", "outbox-retention"); err != nil || got != 2 {
		t.Fatalf("expected 2s duration, got %f (%v)", got, err)
	}
}

func TestNilJobMetricsIsNoop(t *testing.T) {
	var m *JobMetrics
	m.ObserveDuration("a", time.Second)
	m.IncSuccess("a")
	m.IncFailure("a")
	m.AddDeleted("a", 3)
}
