package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.ObserveTransition("cart_review", "info_collection")
	m.ObserveTransition("cart_review", "info_collection")
	m.ObserveSubmission(OutcomeSuccess, "", 120*time.Millisecond)
	m.ObserveSubmission(OutcomeFailure, "DEPENDENCY_ERROR", time.Second)
	m.IncOrder("card", "standard")
	m.AddPoints(25, 200)
	m.IncOutbox("order_confirmed", OutcomeSuccess)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "checkout_transitions_total", "to", "info_collection"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 2 {
		t.Fatalf("expected transitions=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "order_submissions_total", "code", "DEPENDENCY_ERROR"); err != nil {
		t.Fatalf("fetch submissions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure submissions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "order_submissions_total", "code", "none"); err != nil {
		t.Fatalf("fetch submissions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success submissions=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "order_submission_duration_seconds", "outcome", OutcomeFailure); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure duration sum 1s, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "loyalty_points_total", "direction", "redeemed"); err != nil {
		t.Fatalf("fetch points: %v", err)
	} else if got != 200 {
		t.Fatalf("expected redeemed=200, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "orders_confirmed_total", "redemption_mode", "standard"); err != nil {
		t.Fatalf("fetch orders: %v", err)
	} else if got != 1 {
		t.Fatalf("expected orders=1, got %f", got)
	}
}

func TestNilCheckoutMetricsIsNoop(t *testing.T) {
	var m *CheckoutMetrics
	m.ObserveTransition("a", "b")
	m.ObserveSubmission(OutcomeSuccess, "", time.Second)
	m.IncOrder("", "")
	m.AddPoints(1, 1)
	m.IncOutbox("", "")

	empty := NewCheckoutMetrics(nil)
	empty.ObserveTransition("a", "b")
	empty.AddPoints(5, 0)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
