package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the aireader gateway.
type Metrics struct {
	RequestTotal       *prometheus.CounterVec
	RequestDurationMs  *prometheus.HistogramVec
	AttemptTotal       *prometheus.CounterVec
	AttemptDurationMs  *prometheus.HistogramVec
	CursorAdvanceTotal *prometheus.CounterVec
	RotationTotal      *prometheus.CounterVec
	StateErrorTotal    *prometheus.CounterVec
	RateLimitHitTotal  prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aireader_request_total",
			Help: "Total generation requests by kind and final status.",
		}, []string{"kind", "status"}),

		RequestDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aireader_request_duration_ms",
			Help:    "Total generation duration in milliseconds, across all attempts.",
			Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000},
		}, []string{"kind"}),

		AttemptTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aireader_attempt_total",
			Help: "Provider attempts by kind, model and outcome.",
		}, []string{"kind", "model", "outcome"}),

		AttemptDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aireader_attempt_duration_ms",
			Help:    "Single provider attempt duration in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		}, []string{"kind", "model"}),

		CursorAdvanceTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aireader_cursor_advance_total",
			Help: "Sticky failures that moved a credential's model cursor.",
		}, []string{"kind"}),

		RotationTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aireader_credential_rotation_total",
			Help: "Times the active credential moved to the next one after exhaustion.",
		}, []string{"kind"}),

		StateErrorTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aireader_state_error_total",
			Help: "Routing state writes that failed and were ignored.",
		}, []string{"op"}),

		RateLimitHitTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "aireader_rate_limit_hit_total",
			Help: "Inbound requests rejected by the rate limiter.",
		}),
	}
}

// RecordRequest records metrics for a completed generation.
func (m *Metrics) RecordRequest(labels RequestLabels) {
	m.RequestTotal.WithLabelValues(labels.Kind, labels.Status).Inc()
	m.RequestDurationMs.WithLabelValues(labels.Kind).Observe(labels.DurationMs)
}

// RecordAttempt records a single provider attempt.
func (m *Metrics) RecordAttempt(kind, model, outcome string, durationMs float64) {
	m.AttemptTotal.WithLabelValues(kind, model, outcome).Inc()
	if durationMs > 0 {
		m.AttemptDurationMs.WithLabelValues(kind, model).Observe(durationMs)
	}
}

func (m *Metrics) RecordCursorAdvance(kind string) {
	m.CursorAdvanceTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRotation(kind string) {
	m.RotationTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordStateError(op string) {
	m.StateErrorTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHitTotal.Inc()
}

// RequestLabels holds the label values for recording a request.
type RequestLabels struct {
	Kind       string
	Status     string
	DurationMs float64
}
