package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/helixtrace/helix/internal/shared/id"
	"github.com/helixtrace/helix/internal/trace"
)

// ErrInsufficientData is returned when a window holds fewer samples than the
// configured threshold. Callers treat it as "no result yet".
var ErrInsufficientData = errors.New("insufficient samples for analysis")

// Trend labels returned by AnalyzeLatency.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Observer mirrors analyzer activity into an external collector, e.g. the
// Prometheus analyzer counters. Implementations must be safe for concurrent
// use.
type Observer interface {
	SpanAnalyzed()
	RecordBottleneck(detectionType, severity string)
}

type noopObserver struct{}

func (noopObserver) SpanAnalyzed()                {}
func (noopObserver) RecordBottleneck(_, _ string) {}

// Params configures the analyzer. Zero values pick the defaults noted.
type Params struct {
	// WindowCapacity bounds each per-operation ring buffer (default 1000).
	WindowCapacity int
	// Window is the age cutoff applied during analysis (default 15m).
	Window time.Duration
	// SampleSizeThreshold is the minimum samples required before an
	// operation is analyzed (default 10).
	SampleSizeThreshold int
	// BottleneckThresholdMs flags operations whose p95 exceeds it
	// (default 1000).
	BottleneckThresholdMs float64
	// ErrorRateThreshold flags operations whose error fraction exceeds it
	// (default 0.05).
	ErrorRateThreshold float64
	// Observer mirrors ingest and detection counts into external metrics.
	// Nil disables mirroring; Summary is maintained either way.
	Observer Observer
}

func (p *Params) setDefaults() error {
	if p.WindowCapacity == 0 {
		p.WindowCapacity = 1000
	}
	if p.Window == 0 {
		p.Window = 15 * time.Minute
	}
	if p.SampleSizeThreshold == 0 {
		p.SampleSizeThreshold = 10
	}
	if p.BottleneckThresholdMs == 0 {
		p.BottleneckThresholdMs = 1000
	}
	if p.ErrorRateThreshold == 0 {
		p.ErrorRateThreshold = 0.05
	}
	if p.Observer == nil {
		p.Observer = noopObserver{}
	}
	switch {
	case p.WindowCapacity < 0:
		return fmt.Errorf("analyzer.window_capacity %d must be positive", p.WindowCapacity)
	case p.Window < 0:
		return fmt.Errorf("analyzer.window_minutes %v must be positive", p.Window)
	case p.SampleSizeThreshold < 0:
		return fmt.Errorf("analyzer.sample_size_threshold %d must be positive", p.SampleSizeThreshold)
	case p.BottleneckThresholdMs < 0:
		return fmt.Errorf("analyzer.bottleneck_threshold_ms %v must be positive", p.BottleneckThresholdMs)
	case p.ErrorRateThreshold < 0 || p.ErrorRateThreshold > 1:
		return fmt.Errorf("analyzer.error_rate_threshold %v must be within [0,1]", p.ErrorRateThreshold)
	}
	return nil
}

// Metric is one finished-span observation retained in a rolling window.
type Metric struct {
	Timestamp  time.Time
	Service    string
	Operation  string
	DurationMs float64
	Err        bool
	TraceID    id.TraceID
	Attributes map[string]string
}

// ring is a fixed-capacity buffer of metrics, oldest evicted first.
type ring struct {
	buf  []Metric
	head int
	size int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Metric, capacity)}
}

func (r *ring) append(m Metric) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = m
		r.size++
		return
	}
	r.buf[r.head] = m
	r.head = (r.head + 1) % len(r.buf)
}

// since returns the retained metrics newer than cutoff, oldest first.
func (r *ring) since(cutoff time.Time) []Metric {
	out := make([]Metric, 0, r.size)
	for i := 0; i < r.size; i++ {
		m := r.buf[(r.head+i)%len(r.buf)]
		if m.Timestamp.After(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

// Analyzer consumes finished spans and answers latency and bottleneck
// queries over bounded rolling windows. Safe for concurrent use.
type Analyzer struct {
	params Params
	logger *zap.Logger

	mu      sync.RWMutex
	windows map[string]*ring

	recorded    atomic.Int64
	bottlenecks atomic.Int64

	now func() time.Time
}

// New creates an analyzer.
func New(params Params, logger *zap.Logger) (*Analyzer, error) {
	if err := params.setDefaults(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		params:  params,
		logger:  logger,
		windows: make(map[string]*ring),
		now:     time.Now,
	}, nil
}

// RecordSpan ingests a finished span. Implements the tracer's Processor
// hook; runs on the finishing goroutine and stays O(1).
func (a *Analyzer) RecordSpan(span *trace.Span) {
	attrs := span.Attributes()
	var attrMap map[string]string
	if len(attrs) > 0 {
		attrMap = make(map[string]string, len(attrs))
		for _, kv := range attrs {
			attrMap[kv.Key] = kv.Value
		}
	}
	a.Record(Metric{
		Timestamp:  span.EndTime(),
		Service:    span.Service(),
		Operation:  span.Name(),
		DurationMs: float64(span.Duration()) / float64(time.Millisecond),
		Err:        span.Status() != trace.StatusOK,
		TraceID:    span.Context().TraceID,
		Attributes: attrMap,
	})
}

// Record ingests one metric directly, e.g. from the span ingest endpoint.
func (a *Analyzer) Record(m Metric) {
	if m.Timestamp.IsZero() {
		m.Timestamp = a.now()
	}
	key := windowKey(m.Service, m.Operation)

	a.mu.Lock()
	w, ok := a.windows[key]
	if !ok {
		w = newRing(a.params.WindowCapacity)
		a.windows[key] = w
	}
	w.append(m)
	a.mu.Unlock()

	a.recorded.Add(1)
	a.params.Observer.SpanAnalyzed()
}

// LatencyReport is the distribution summary for one operation's window.
type LatencyReport struct {
	Service     string  `json:"service"`
	Operation   string  `json:"operation"`
	SampleCount int     `json:"sample_count"`
	MeanMs      float64 `json:"mean_ms"`
	MedianMs    float64 `json:"median_ms"`
	StdDevMs    float64 `json:"std_dev_ms"`
	P95Ms       float64 `json:"p95_ms"`
	P99Ms       float64 `json:"p99_ms"`
	MinMs       float64 `json:"min_ms"`
	MaxMs       float64 `json:"max_ms"`
	Trend       string  `json:"trend"`
}

// AnalyzeLatency computes the latency distribution for one operation over
// the current window. Returns ErrInsufficientData below the sample
// threshold.
func (a *Analyzer) AnalyzeLatency(service, operation string) (*LatencyReport, error) {
	metrics := a.windowSnapshot(service, operation)
	if len(metrics) < a.params.SampleSizeThreshold {
		return nil, fmt.Errorf("%s.%s has %d of %d required samples: %w",
			service, operation, len(metrics), a.params.SampleSizeThreshold, ErrInsufficientData)
	}

	durations := make([]float64, len(metrics))
	for i, m := range metrics {
		durations[i] = m.DurationMs
	}

	sorted := make([]float64, len(durations))
	copy(sorted, durations)
	sort.Float64s(sorted)

	report := &LatencyReport{
		Service:     service,
		Operation:   operation,
		SampleCount: len(metrics),
		MeanMs:      stat.Mean(durations, nil),
		MedianMs:    median(sorted),
		P95Ms:       nearestRank(sorted, 95),
		P99Ms:       nearestRank(sorted, 99),
		MinMs:       sorted[0],
		MaxMs:       sorted[len(sorted)-1],
		Trend:       trend(durations),
	}
	if len(durations) > 1 {
		report.StdDevMs = stat.StdDev(durations, nil)
	}
	return report, nil
}

// Summary is the analyzer-wide health snapshot.
type Summary struct {
	TotalSpansAnalyzed  int64   `json:"total_spans_analyzed"`
	BottlenecksDetected int64   `json:"bottlenecks_detected"`
	ServicesAnalyzed    int     `json:"services_analyzed"`
	OperationsTracked   int     `json:"operations_tracked"`
	WindowMinutes       float64 `json:"window_minutes"`
}

// Summary returns analyzer-wide counters for the health surface.
func (a *Analyzer) Summary() Summary {
	a.mu.RLock()
	operations := len(a.windows)
	services := make(map[string]struct{})
	for key := range a.windows {
		services[serviceOf(key)] = struct{}{}
	}
	a.mu.RUnlock()

	return Summary{
		TotalSpansAnalyzed:  a.recorded.Load(),
		BottlenecksDetected: a.bottlenecks.Load(),
		ServicesAnalyzed:    len(services),
		OperationsTracked:   operations,
		WindowMinutes:       a.params.Window.Minutes(),
	}
}

// windowSnapshot copies the retained, age-filtered metrics for one
// operation, oldest first.
func (a *Analyzer) windowSnapshot(service, operation string) []Metric {
	cutoff := a.now().Add(-a.params.Window)
	a.mu.RLock()
	defer a.mu.RUnlock()
	w, ok := a.windows[windowKey(service, operation)]
	if !ok {
		return nil
	}
	return w.since(cutoff)
}

func windowKey(service, operation string) string {
	return service + "." + operation
}

func serviceOf(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i]
		}
	}
	return key
}

// median uses the midpoint convention: the mean of the two central values
// for even sample counts.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// nearestRank returns the q-th percentile by the nearest-rank method:
// sorted[ceil(q/100*n) - 1].
func nearestRank(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(q / 100 * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// trend compares the first half of the chronological window against the
// second: a >10% move in the mean labels the operation increasing or
// decreasing.
func trend(chronological []float64) string {
	n := len(chronological)
	if n < 4 {
		return TrendStable
	}
	first := stat.Mean(chronological[:n/2], nil)
	second := stat.Mean(chronological[n/2:], nil)
	if first == 0 {
		return TrendStable
	}
	switch change := (second - first) / first; {
	case change > 0.10:
		return TrendIncreasing
	case change < -0.10:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
