package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixtrace/helix/internal/shared/id"
)

var testEpoch = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// newTestAnalyzer builds an analyzer with a fixed clock so window cutoffs
// are deterministic.
func newTestAnalyzer(t *testing.T, params Params) *Analyzer {
	t.Helper()
	a, err := New(params, nil)
	require.NoError(t, err)
	a.now = func() time.Time { return testEpoch }
	return a
}

// recordDurations ingests one metric per duration, each a second apart so
// chronological order is explicit.
func recordDurations(a *Analyzer, service, operation string, durations []float64) {
	base := testEpoch.Add(-time.Duration(len(durations)) * time.Second)
	for i, d := range durations {
		a.Record(Metric{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Service:    service,
			Operation:  operation,
			DurationMs: d,
		})
	}
}

// captureObserver collects mirrored analyzer activity.
type captureObserver struct {
	analyzed   int
	detections []string
}

func (o *captureObserver) SpanAnalyzed() { o.analyzed++ }

func (o *captureObserver) RecordBottleneck(detectionType, severity string) {
	o.detections = append(o.detections, detectionType+"/"+severity)
}

func TestObserverMirrorsAnalyzerActivity(t *testing.T) {
	obs := &captureObserver{}
	a := newTestAnalyzer(t, Params{SampleSizeThreshold: 5, Observer: obs})

	recordDurations(a, "api", "slow", []float64{5000, 5000, 5000, 5000, 5000})
	assert.Equal(t, 5, obs.analyzed)

	detections := a.DetectBottlenecks()
	require.NotEmpty(t, detections)
	require.Len(t, obs.detections, len(detections))
	assert.Contains(t, obs.detections, "high_latency/high")
}

func TestParamsValidation(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		ok     bool
	}{
		{"defaults", Params{}, true},
		{"explicit", Params{WindowCapacity: 50, Window: time.Minute, SampleSizeThreshold: 5}, true},
		{"negative capacity", Params{WindowCapacity: -1}, false},
		{"negative window", Params{Window: -time.Minute}, false},
		{"negative threshold", Params{SampleSizeThreshold: -1}, false},
		{"error rate above one", Params{ErrorRateThreshold: 1.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params, nil)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAnalyzeLatencyPercentiles(t *testing.T) {
	a := newTestAnalyzer(t, Params{})
	recordDurations(a, "api", "list", []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})

	report, err := a.AnalyzeLatency("api", "list")
	require.NoError(t, err)

	assert.Equal(t, 10, report.SampleCount)
	assert.InDelta(t, 55.0, report.MeanMs, 1e-9)
	assert.InDelta(t, 55.0, report.MedianMs, 1e-9, "midpoint of 50 and 60")
	assert.InDelta(t, 100.0, report.P95Ms, 1e-9, "nearest rank: ceil(0.95*10)=10")
	assert.InDelta(t, 100.0, report.P99Ms, 1e-9)
	assert.InDelta(t, 10.0, report.MinMs, 1e-9)
	assert.InDelta(t, 100.0, report.MaxMs, 1e-9)
	assert.Greater(t, report.StdDevMs, 0.0)
}

func TestAnalyzeLatencyOddSampleMedian(t *testing.T) {
	a := newTestAnalyzer(t, Params{SampleSizeThreshold: 3})
	recordDurations(a, "api", "get", []float64{30, 10, 20})

	report, err := a.AnalyzeLatency("api", "get")
	require.NoError(t, err)
	assert.InDelta(t, 20.0, report.MedianMs, 1e-9)
}

func TestAnalyzeLatencyInsufficientData(t *testing.T) {
	a := newTestAnalyzer(t, Params{})
	recordDurations(a, "api", "rare", []float64{10, 20, 30})

	_, err := a.AnalyzeLatency("api", "rare")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = a.AnalyzeLatency("api", "unknown")
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnalyzeLatencyTrend(t *testing.T) {
	tests := []struct {
		name      string
		durations []float64
		want      string
	}{
		{"increasing", []float64{100, 100, 100, 100, 100, 200, 200, 200, 200, 200}, TrendIncreasing},
		{"decreasing", []float64{200, 200, 200, 200, 200, 100, 100, 100, 100, 100}, TrendDecreasing},
		{"stable", []float64{100, 100, 100, 100, 100, 105, 105, 105, 105, 105}, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, Params{})
			recordDurations(a, "api", "op", tt.durations)

			report, err := a.AnalyzeLatency("api", "op")
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Trend)
		})
	}
}

func TestWindowCapacityEvictsOldest(t *testing.T) {
	a := newTestAnalyzer(t, Params{WindowCapacity: 10, SampleSizeThreshold: 5})

	// 20 metrics; only the last 10 (durations 11..20) should be retained.
	durations := make([]float64, 20)
	for i := range durations {
		durations[i] = float64(i + 1)
	}
	recordDurations(a, "api", "op", durations)

	report, err := a.AnalyzeLatency("api", "op")
	require.NoError(t, err)
	assert.Equal(t, 10, report.SampleCount)
	assert.InDelta(t, 11.0, report.MinMs, 1e-9)
	assert.InDelta(t, 20.0, report.MaxMs, 1e-9)
}

func TestWindowAgeCutoff(t *testing.T) {
	a := newTestAnalyzer(t, Params{Window: time.Minute, SampleSizeThreshold: 3})

	for i := 0; i < 5; i++ {
		a.Record(Metric{
			Timestamp:  testEpoch.Add(-2 * time.Minute),
			Service:    "api",
			Operation:  "op",
			DurationMs: 999,
		})
	}
	recordDurations(a, "api", "op", []float64{10, 20, 30})

	report, err := a.AnalyzeLatency("api", "op")
	require.NoError(t, err)
	assert.Equal(t, 3, report.SampleCount, "stale metrics excluded from analysis")
	assert.InDelta(t, 30.0, report.MaxMs, 1e-9)
}

func TestSummary(t *testing.T) {
	a := newTestAnalyzer(t, Params{})
	recordDurations(a, "api", "list", []float64{10, 20})
	recordDurations(a, "api", "get", []float64{10})
	recordDurations(a, "worker", "process", []float64{10})

	summary := a.Summary()
	assert.Equal(t, int64(4), summary.TotalSpansAnalyzed)
	assert.Equal(t, 2, summary.ServicesAnalyzed)
	assert.Equal(t, 3, summary.OperationsTracked)
	assert.Equal(t, int64(0), summary.BottlenecksDetected)
	assert.InDelta(t, 15.0, summary.WindowMinutes, 1e-9)
}

func TestRecordConcurrent(t *testing.T) {
	a := newTestAnalyzer(t, Params{WindowCapacity: 10000})

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				a.Record(Metric{
					Timestamp:  testEpoch,
					Service:    "api",
					Operation:  fmt.Sprintf("op-%d", g%2),
					DurationMs: float64(i),
				})
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}

	assert.Equal(t, int64(800), a.Summary().TotalSpansAnalyzed)
}

func TestRingWraparound(t *testing.T) {
	r := newRing(3)
	for i := 1; i <= 5; i++ {
		r.append(Metric{Timestamp: testEpoch, DurationMs: float64(i)})
	}

	got := r.since(time.Time{})
	require.Len(t, got, 3)
	assert.InDelta(t, 3.0, got[0].DurationMs, 1e-9, "oldest retained first")
	assert.InDelta(t, 5.0, got[2].DurationMs, 1e-9)
}

func TestMetricTraceIDRetained(t *testing.T) {
	a := newTestAnalyzer(t, Params{SampleSizeThreshold: 1})
	gen := id.NewGenerator()
	traceID := gen.NewTraceID()

	a.Record(Metric{
		Timestamp:  testEpoch,
		Service:    "api",
		Operation:  "op",
		DurationMs: 5,
		TraceID:    traceID,
	})

	metrics := a.windowSnapshot("api", "op")
	require.Len(t, metrics, 1)
	assert.Equal(t, traceID, metrics[0].TraceID)
}
