package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixtrace/helix/internal/analysis"
	"github.com/helixtrace/helix/internal/export"
	"github.com/helixtrace/helix/internal/sampling"
	"github.com/helixtrace/helix/internal/shared/id"
	"github.com/helixtrace/helix/internal/trace"
)

// Metrics feeds the span pipeline's observer hooks directly.
var (
	_ trace.Observer    = (*Metrics)(nil)
	_ analysis.Observer = (*Metrics)(nil)
	_ export.Recorder   = (*Metrics)(nil)
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}

func TestRecordDecision(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordDecision("probabilistic(0.5)", "record_and_sample")
	m.RecordDecision("probabilistic(0.5)", "record_and_sample")
	m.RecordDecision("probabilistic(0.5)", "drop")

	sampled := m.SamplingDecisions.WithLabelValues("probabilistic(0.5)", "record_and_sample")
	assert.InDelta(t, 2.0, testutil.ToFloat64(sampled), 1e-9)
	dropped := m.SamplingDecisions.WithLabelValues("probabilistic(0.5)", "drop")
	assert.InDelta(t, 1.0, testutil.ToFloat64(dropped), 1e-9)
}

func TestPipelineCounters(t *testing.T) {
	m := newTestMetrics(t)

	m.SpanStarted()
	m.SpanStarted()
	m.SpanFinished()
	m.SpanDropped()
	m.SpanAnalyzed()
	m.RecordExport(export.OutcomeExported)
	m.RecordExport(export.OutcomeShed)
	m.RecordBottleneck("high_latency", "critical")

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.SpansStarted), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.SpansFinished), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.SpansDropped), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.SpansAnalyzed), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ExportBatches.WithLabelValues(export.OutcomeExported)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ExportBatches.WithLabelValues(export.OutcomeShed)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.BottlenecksDetected.WithLabelValues("high_latency", "critical")), 1e-9)
}

func TestObserveSamplerCountsDecisions(t *testing.T) {
	m := newTestMetrics(t)
	inner, err := sampling.NewProbabilistic(1.0)
	require.NoError(t, err)

	sampler := ObserveSampler(inner, m)
	gen := id.NewGenerator()
	for i := 0; i < 5; i++ {
		d := sampler.Decide(sampling.Context{TraceID: gen.NewTraceID(), SpanName: "op"})
		assert.Equal(t, sampling.RecordAndSample, d)
	}

	counter := m.SamplingDecisions.WithLabelValues(inner.Description(), "record_and_sample")
	assert.InDelta(t, 5.0, testutil.ToFloat64(counter), 1e-9)
	assert.Equal(t, int64(5), sampler.Stats().TotalDecisions)

	rate := m.SamplerRate.WithLabelValues(inner.Description())
	assert.InDelta(t, 1.0, testutil.ToFloat64(rate), 1e-9)
}

func TestObserveSamplerForwardsLifecycle(t *testing.T) {
	m := newTestMetrics(t)
	inner, err := sampling.NewAdaptive(sampling.AdaptiveParams{
		BaseRate:           0.5,
		MinRate:            0.1,
		MaxRate:            1.0,
		AdjustmentInterval: time.Minute,
	}, nil)
	require.NoError(t, err)

	sampler := ObserveSampler(inner, m)
	lc, ok := sampler.(sampling.Lifecycle)
	require.True(t, ok, "lifecycle support must survive wrapping")

	lc.Start()
	lc.Stop()
}

func TestObserveSamplerForwardsReset(t *testing.T) {
	m := newTestMetrics(t)
	inner, err := sampling.NewProbabilistic(1.0)
	require.NoError(t, err)

	sampler := ObserveSampler(inner, m)
	gen := id.NewGenerator()
	sampler.Decide(sampling.Context{TraceID: gen.NewTraceID(), SpanName: "op"})
	require.Equal(t, int64(1), sampler.Stats().TotalDecisions)

	sr, ok := sampler.(sampling.StatsResetter)
	require.True(t, ok, "reset support must survive wrapping")
	sr.ResetStats()
	assert.Zero(t, sampler.Stats().TotalDecisions)
}

func TestObserveSamplerNilMetrics(t *testing.T) {
	inner, err := sampling.NewProbabilistic(0.5)
	require.NoError(t, err)
	assert.Same(t, sampling.Sampler(inner), ObserveSampler(inner, nil))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestMetrics(t)

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	counter := m.RequestsTotal.WithLabelValues("GET", "/health", "200")
	assert.InDelta(t, 1.0, testutil.ToFloat64(counter), 1e-9)
}
