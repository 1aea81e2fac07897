package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the submission and publish counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeReplay  = "replay"
)

// CheckoutMetrics tracks the checkout workflow and the order boundary.
type CheckoutMetrics struct {
	transitions    *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	submitDuration *prometheus.HistogramVec
	orders         *prometheus.CounterVec
	points         *prometheus.CounterVec
	outbox         *prometheus.CounterVec
}

// NewCheckoutMetrics registers the collectors on reg. A nil registerer yields
// a no-op value.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_transitions_total",
		Help: "Checkout state transitions.",
	}, []string{"from", "to"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Order submissions by outcome and error code.",
	}, []string{"outcome", "code"})
	submitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_submission_duration_seconds",
		Help:    "Latency of the order boundary call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Orders created by the order boundary.",
	}, []string{"payment_method", "redemption_mode"})
	points := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_points_total",
		Help: "Loyalty points applied to accounts.",
	}, []string{"direction"})
	outbox := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox rows handed to Pub/Sub.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(transitions, submissions, submitDuration, orders, points, outbox)
	return &CheckoutMetrics{
		transitions:    transitions,
		submissions:    submissions,
		submitDuration: submitDuration,
		orders:         orders,
		points:         points,
		outbox:         outbox,
	}
}

// ObserveTransition counts a state change.
func (m *CheckoutMetrics) ObserveTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// ObserveSubmission records one boundary call. code is empty on success.
func (m *CheckoutMetrics) ObserveSubmission(outcome, code string, duration time.Duration) {
	if m == nil || m.submissions == nil {
		return
	}
	if code == "" {
		code = "none"
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome), code).Inc()
	m.submitDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncOrder counts a newly created order.
func (m *CheckoutMetrics) IncOrder(paymentMethod, redemptionMode string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(paymentMethod), normalizeLabel(redemptionMode)).Inc()
}

// AddPoints records earned and redeemed points for a confirmed order.
func (m *CheckoutMetrics) AddPoints(earned, redeemed int64) {
	if m == nil || m.points == nil {
		return
	}
	if earned > 0 {
		m.points.WithLabelValues("earned").Add(float64(earned))
	}
	if redeemed > 0 {
		m.points.WithLabelValues("redeemed").Add(float64(redeemed))
	}
}

// IncOutbox counts a publish attempt.
func (m *CheckoutMetrics) IncOutbox(eventType, outcome string) {
	if m == nil || m.outbox == nil {
		return
	}
	m.outbox.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
