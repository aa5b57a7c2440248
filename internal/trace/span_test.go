package trace

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helixtrace/helix/internal/sampling"
)

// captureExporter collects exported spans for assertions.
type captureExporter struct {
	mu    sync.Mutex
	spans []*Span
	err   error
}

func (e *captureExporter) Export(spans []*Span) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spans = append(e.spans, spans...)
	return e.err
}

func (e *captureExporter) len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.spans)
}

// captureProcessor counts RecordSpan deliveries.
type captureProcessor struct {
	mu    sync.Mutex
	spans []*Span
}

func (p *captureProcessor) RecordSpan(span *Span) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spans = append(p.spans, span)
}

func (p *captureProcessor) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.spans)
}

func alwaysSampler(t *testing.T) sampling.Sampler {
	t.Helper()
	s, err := sampling.NewProbabilistic(1.0)
	require.NoError(t, err)
	return s
}

func neverSampler(t *testing.T) sampling.Sampler {
	t.Helper()
	s, err := sampling.NewProbabilistic(0.0)
	require.NoError(t, err)
	return s
}

func newTestTracer(t *testing.T, cfg Config) *Tracer {
	t.Helper()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "testsvc"
	}
	if cfg.Sampler == nil {
		cfg.Sampler = alwaysSampler(t)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	tr, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestSpanAttributesOrderedLastWriteWins(t *testing.T) {
	tr := newTestTracer(t, Config{})
	span := tr.StartSpan("op")

	span.SetAttribute("b", "1")
	span.SetAttribute("a", "2")
	span.SetAttribute("b", "3")

	attrs := span.Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, Attribute{Key: "b", Value: "3"}, attrs[0], "insertion order preserved")
	assert.Equal(t, Attribute{Key: "a", Value: "2"}, attrs[1])
}

func TestSpanImmutableAfterFinish(t *testing.T) {
	tr := newTestTracer(t, Config{})
	span := tr.StartSpan("op")
	span.SetAttribute("before", "yes")
	span.Finish()

	span.SetAttribute("after", "no")
	span.AddEvent("late", nil)
	span.SetStatus(StatusError)
	span.RecordError(errors.New("late"))

	attrs := span.Attributes()
	require.Len(t, attrs, 1)
	assert.Equal(t, "before", attrs[0].Key)
	assert.Empty(t, span.Events())
	assert.Equal(t, StatusOK, span.Status())
	assert.NoError(t, span.Err())
}

func TestSpanDoubleFinishDeliversOnce(t *testing.T) {
	exporter := &captureExporter{}
	processor := &captureProcessor{}
	tr := newTestTracer(t, Config{Exporter: exporter, Processors: []Processor{processor}})

	span := tr.StartSpan("op")
	span.Finish()
	span.Finish()

	require.NoError(t, tr.Close())
	assert.Equal(t, 1, exporter.len())
	assert.Equal(t, 1, processor.len())

	_, finished, _ := tr.Counts()
	assert.Equal(t, int64(1), finished)
}

func TestSpanFinishSetsEndTime(t *testing.T) {
	tr := newTestTracer(t, Config{})
	span := tr.StartSpan("op")

	assert.True(t, span.EndTime().IsZero())
	assert.Zero(t, span.Duration())

	time.Sleep(time.Millisecond)
	span.Finish()

	assert.False(t, span.EndTime().IsZero())
	assert.Greater(t, span.Duration(), time.Duration(0))
	assert.True(t, span.Finished())
}

func TestSpanRecordError(t *testing.T) {
	tr := newTestTracer(t, Config{})
	span := tr.StartSpan("op")

	failure := errors.New("connection reset")
	span.RecordError(failure)

	assert.Equal(t, StatusError, span.Status())
	assert.Equal(t, failure, span.Err())

	events := span.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "exception", events[0].Name)
	assert.Equal(t, "connection reset", events[0].Attributes["message"])
}

func TestDroppedSpanKeepsNoAttributes(t *testing.T) {
	tr := newTestTracer(t, Config{Sampler: neverSampler(t)})
	span := tr.StartSpan("op", WithAttributes(map[string]string{"k": "v"}))

	assert.Equal(t, sampling.Drop, span.Decision())
	assert.False(t, span.IsRecording())

	span.SetAttribute("more", "data")
	span.AddEvent("event", nil)

	assert.Empty(t, span.Attributes())
	assert.Empty(t, span.Events())
}

func TestSpanKindAndStatusStrings(t *testing.T) {
	assert.Equal(t, "server", KindServer.String())
	assert.Equal(t, "internal", KindInternal.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "timeout", StatusTimeout.String())
	assert.Equal(t, "cancelled", StatusCancelled.String())
}
