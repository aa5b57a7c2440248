package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Sampling metrics
	SamplingDecisions *prometheus.CounterVec
	SamplerRate       *prometheus.GaugeVec

	// Span lifecycle metrics
	SpansStarted  prometheus.Counter
	SpansFinished prometheus.Counter
	SpansDropped  prometheus.Counter

	// Export metrics
	ExportBatches *prometheus.CounterVec

	// Analyzer metrics
	SpansAnalyzed       prometheus.Counter
	BottlenecksDetected *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a metrics collector. A nil registerer uses the
// default Prometheus registry; tests pass their own to avoid duplicate
// registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SamplingDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helix_sampling_decisions_total",
				Help: "Total sampling decisions by strategy and outcome",
			},
			[]string{"strategy", "decision"},
		),
		SamplerRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "helix_sampler_rate",
				Help: "Current effective sampling rate by strategy",
			},
			[]string{"strategy"},
		),

		SpansStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "helix_spans_started_total",
				Help: "Total spans started",
			},
		),
		SpansFinished: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "helix_spans_finished_total",
				Help: "Total spans finished",
			},
		),
		SpansDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "helix_spans_dropped_total",
				Help: "Total spans dropped due to export queue overflow",
			},
		),

		ExportBatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helix_export_batches_total",
				Help: "Total export batches by outcome",
			},
			[]string{"outcome"},
		),

		SpansAnalyzed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "helix_spans_analyzed_total",
				Help: "Total spans ingested by the performance analyzer",
			},
		),
		BottlenecksDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helix_bottlenecks_detected_total",
				Help: "Total bottleneck detections by type and severity",
			},
			[]string{"type", "severity"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helix_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "helix_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
	}
}

// SpanStarted counts one started span. Satisfies the tracer's Observer.
func (m *Metrics) SpanStarted() { m.SpansStarted.Inc() }

// SpanFinished counts one finished span.
func (m *Metrics) SpanFinished() { m.SpansFinished.Inc() }

// SpanDropped counts one span lost to export queue overflow.
func (m *Metrics) SpanDropped() { m.SpansDropped.Inc() }

// SpanAnalyzed counts one metric ingested by the analyzer. Satisfies the
// analyzer's Observer.
func (m *Metrics) SpanAnalyzed() { m.SpansAnalyzed.Inc() }

// RecordDecision counts one sampling decision.
func (m *Metrics) RecordDecision(strategy, decision string) {
	m.SamplingDecisions.WithLabelValues(strategy, decision).Inc()
}

// SetSamplerRate publishes the current effective rate for a strategy.
func (m *Metrics) SetSamplerRate(strategy string, rate float64) {
	m.SamplerRate.WithLabelValues(strategy).Set(rate)
}

// RecordExport counts one export batch outcome.
func (m *Metrics) RecordExport(outcome string) {
	m.ExportBatches.WithLabelValues(outcome).Inc()
}

// RecordBottleneck counts one analyzer detection.
func (m *Metrics) RecordBottleneck(detectionType, severity string) {
	m.BottlenecksDetected.WithLabelValues(detectionType, severity).Inc()
}
