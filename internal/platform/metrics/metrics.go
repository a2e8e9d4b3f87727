package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	SubmissionsTotal  *prometheus.CounterVec
	GateRefusalsTotal prometheus.Counter
	DecisionsTotal    *prometheus.CounterVec
	DecisionConflicts prometheus.Counter
	DeliveryFallbacks prometheus.Counter
	BlobsTotal        *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New registers and returns the service metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_submissions_total",
			Help: "Number of onboarding submissions received, by result.",
		}, []string{"result"}),
		GateRefusalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouch_gate_refusals_total",
			Help: "Number of intake openings refused because a submission was already pending.",
		}),
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_decisions_total",
			Help: "Number of reviewer decisions recorded, by outcome.",
		}, []string{"outcome"}),
		DecisionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouch_decision_conflicts_total",
			Help: "Number of decisions refused because the submission was already decided.",
		}),
		DeliveryFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouch_delivery_fallbacks_total",
			Help: "Number of direct notifications that fell back to the log channel.",
		}),
		BlobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_blobs_total",
			Help: "Number of blob ingests, by result (stored or duplicate).",
		}, []string{"result"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vouch_request_duration_seconds",
			Help:    "HTTP request latency by endpoint and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
	}
}

// RecordSubmission increments the submission counter for the given result.
func (m *Metrics) RecordSubmission(result string) {
	m.SubmissionsTotal.WithLabelValues(result).Inc()
}

// RecordGateRefusal increments the gate refusal counter.
func (m *Metrics) RecordGateRefusal() {
	m.GateRefusalsTotal.Inc()
}

// RecordDecision increments the decision counter for the given outcome.
func (m *Metrics) RecordDecision(outcome string) {
	m.DecisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordDecisionConflict increments the decision conflict counter.
func (m *Metrics) RecordDecisionConflict() {
	m.DecisionConflicts.Inc()
}

// RecordDeliveryFallback increments the delivery fallback counter.
func (m *Metrics) RecordDeliveryFallback() {
	m.DeliveryFallbacks.Inc()
}

// RecordBlob increments the blob ingest counter for the given result.
func (m *Metrics) RecordBlob(result string) {
	m.BlobsTotal.WithLabelValues(result).Inc()
}

// ObserveRequest records the duration of an HTTP request.
func (m *Metrics) ObserveRequest(endpoint, status string, seconds float64) {
	m.RequestDuration.WithLabelValues(endpoint, status).Observe(seconds)
}
