package trace

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/helixtrace/helix/internal/sampling"
	"github.com/helixtrace/helix/internal/shared/id"
)

// defaultQueueSize bounds the finished-span export queue.
const defaultQueueSize = 1000

// Exporter receives finished spans whose decision warrants export. It must
// not be assumed fast or reliable: the tracer calls it from a dedicated
// goroutine and drops spans rather than block callers when the queue fills.
type Exporter interface {
	Export(spans []*Span) error
}

// Processor consumes every recording finished span in-process, e.g. the
// performance analyzer. RecordSpan must be cheap; it runs on the finishing
// goroutine.
type Processor interface {
	RecordSpan(span *Span)
}

// Observer mirrors span lifecycle counts into an external collector, e.g.
// the Prometheus span counters. Calls happen on the hot path and must be
// cheap and concurrency safe.
type Observer interface {
	SpanStarted()
	SpanFinished()
	SpanDropped()
}

type noopObserver struct{}

func (noopObserver) SpanStarted()  {}
func (noopObserver) SpanFinished() {}
func (noopObserver) SpanDropped()  {}

// Config configures a Tracer.
type Config struct {
	// ServiceName stamps every span. Required.
	ServiceName string
	// Sampler decides at span start. Required.
	Sampler sampling.Sampler
	// Exporter receives sampled spans. Nil disables export.
	Exporter Exporter
	// ExportRecordOnly additionally exports RecordOnly spans.
	ExportRecordOnly bool
	// Processors receive every recording span on Finish.
	Processors []Processor
	// Observer mirrors lifecycle counts into external metrics. Nil disables
	// mirroring; Counts is maintained either way.
	Observer Observer
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// QueueSize bounds the export queue (default 1000).
	QueueSize int
}

// Tracer is a factory for spans. A single Tracer is shared by all goroutines
// of a service; the sampler is its only synchronization point on the hot
// path.
type Tracer struct {
	service          string
	sampler          sampling.Sampler
	exporter         Exporter
	exportRecordOnly bool
	processors       []Processor
	observer         Observer
	logger           *zap.Logger
	gen              *id.Generator

	queue     chan *Span
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	started  atomic.Int64
	finished atomic.Int64
	dropped  atomic.Int64
}

// New creates a tracer and starts its export queue consumer. Call Close on
// shutdown to drain the queue and join the consumer.
func New(cfg Config) (*Tracer, error) {
	if cfg.ServiceName == "" {
		return nil, fmt.Errorf("tracer: service name is required")
	}
	if cfg.Sampler == nil {
		return nil, fmt.Errorf("tracer: sampler is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}

	t := &Tracer{
		service:          cfg.ServiceName,
		sampler:          cfg.Sampler,
		exporter:         cfg.Exporter,
		exportRecordOnly: cfg.ExportRecordOnly,
		processors:       cfg.Processors,
		observer:         cfg.Observer,
		logger:           cfg.Logger,
		gen:              id.NewGenerator(),
		queue:            make(chan *Span, cfg.QueueSize),
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}

	go t.consumeQueue()

	return t, nil
}

// StartOption customizes span creation.
type StartOption func(*startOptions)

type startOptions struct {
	parent       *Span
	remoteParent SpanContext
	kind         Kind
	attrs        map[string]string
	errorRate    *float64
	requestRate  *float64
}

// WithParent makes the new span a local child of parent, inheriting its
// trace ID and sampling decision verbatim.
func WithParent(parent *Span) StartOption {
	return func(o *startOptions) { o.parent = parent }
}

// WithRemoteParent continues a trace received from another process.
func WithRemoteParent(sc SpanContext) StartOption {
	return func(o *startOptions) { o.remoteParent = sc }
}

// WithKind sets the span kind (default internal).
func WithKind(kind Kind) StartOption {
	return func(o *startOptions) { o.kind = kind }
}

// WithAttributes sets initial span attributes, also visible to the sampler.
func WithAttributes(attrs map[string]string) StartOption {
	return func(o *startOptions) { o.attrs = attrs }
}

// WithErrorRate supplies the caller's observed error rate to adaptive
// samplers.
func WithErrorRate(rate float64) StartOption {
	return func(o *startOptions) { o.errorRate = &rate }
}

// WithRequestRate supplies the caller's observed request rate to adaptive
// samplers.
func WithRequestRate(rate float64) StartOption {
	return func(o *startOptions) { o.requestRate = &rate }
}

// StartSpan creates a span. Roots mint a fresh trace ID and consult the
// sampler; local children inherit the parent's trace ID and decision
// (strict head-based sampling). Remote parents are honored when sampled and
// re-evaluated locally when not.
func (t *Tracer) StartSpan(name string, opts ...StartOption) *Span {
	var o startOptions
	for _, opt := range opts {
		opt(&o)
	}

	span := &Span{
		name:      name,
		service:   t.service,
		kind:      o.kind,
		startTime: time.Now(),
		attrs:     make(map[string]string),
		status:    StatusOK,
		tracer:    t,
	}

	switch {
	case o.parent != nil:
		pctx := o.parent.Context()
		span.ctx = SpanContext{
			TraceID:      pctx.TraceID,
			SpanID:       t.gen.NewSpanID(),
			ParentSpanID: pctx.SpanID,
			Sampled:      pctx.Sampled,
		}
		span.decision = o.parent.Decision()

	// A remote parent may arrive without a span id when an upstream proxy
	// forwards only the trace header; the trace id alone is enough to
	// continue the trace.
	case o.remoteParent.TraceID.IsValid():
		if o.remoteParent.TraceID.SuspectNonUniform() {
			t.logger.Warn("remote trace id does not look uniformly random; probabilistic sampling may be skewed",
				zapTraceID(o.remoteParent.TraceID),
			)
		}
		span.ctx = SpanContext{
			TraceID:      o.remoteParent.TraceID,
			SpanID:       t.gen.NewSpanID(),
			ParentSpanID: o.remoteParent.SpanID,
		}
		if o.remoteParent.Sampled {
			span.decision = sampling.RecordAndSample
		} else {
			span.decision = t.decide(span.ctx.TraceID, name, &o)
		}
		span.ctx.Sampled = span.decision.Sampled()

	default:
		span.ctx = SpanContext{
			TraceID: t.gen.NewTraceID(),
			SpanID:  t.gen.NewSpanID(),
		}
		span.decision = t.decide(span.ctx.TraceID, name, &o)
		span.ctx.Sampled = span.decision.Sampled()
	}

	if span.decision.Recording() {
		for k, v := range o.attrs {
			span.SetAttribute(k, v)
		}
	}

	t.started.Add(1)
	t.observer.SpanStarted()
	return span
}

// decide builds the per-decision sampling context and consults the sampler.
func (t *Tracer) decide(traceID id.TraceID, name string, o *startOptions) sampling.Decision {
	return t.sampler.Decide(sampling.Context{
		TraceID:     traceID,
		SpanName:    name,
		Attributes:  o.attrs,
		ErrorRate:   o.errorRate,
		RequestRate: o.requestRate,
	})
}

// onFinish is called exactly once per span, from Span.Finish.
func (t *Tracer) onFinish(span *Span) {
	t.finished.Add(1)
	t.observer.SpanFinished()

	if span.decision.Recording() {
		for _, p := range t.processors {
			p.RecordSpan(span)
		}
	}

	if t.exporter == nil {
		return
	}
	if !span.decision.Sampled() && !(t.exportRecordOnly && span.decision.Recording()) {
		return
	}

	select {
	case t.queue <- span:
	default:
		t.dropped.Add(1)
		t.observer.SpanDropped()
		t.logger.Warn("export queue full, dropping span",
			zapTraceID(span.ctx.TraceID),
			zapSpanID(span.ctx.SpanID),
			zapOperation(span.name),
		)
	}
}

// consumeQueue forwards queued spans to the exporter until Close, then
// drains whatever is left.
func (t *Tracer) consumeQueue() {
	defer close(t.done)
	for {
		select {
		case span := <-t.queue:
			t.export(span)
		case <-t.stop:
			for {
				select {
				case span := <-t.queue:
					t.export(span)
				default:
					return
				}
			}
		}
	}
}

func (t *Tracer) export(span *Span) {
	if err := t.exporter.Export([]*Span{span}); err != nil {
		t.logger.Warn("span export failed",
			zapTraceID(span.ctx.TraceID),
			zap.Error(err),
		)
	}
}

// Service returns the tracer's service name.
func (t *Tracer) Service() string { return t.service }

// Sampler returns the tracer's sampler, for health surfaces.
func (t *Tracer) Sampler() sampling.Sampler { return t.sampler }

// Counts returns lifetime span counts: started, finished, dropped at the
// export queue.
func (t *Tracer) Counts() (started, finished, dropped int64) {
	return t.started.Load(), t.finished.Load(), t.dropped.Load()
}

// Close drains the export queue and joins the consumer goroutine. Spans
// finished after Close may be dropped.
func (t *Tracer) Close() error {
	t.closeOnce.Do(func() {
		close(t.stop)
		<-t.done
	})
	return nil
}

func zapTraceID(tid id.TraceID) zap.Field { return zap.String("trace_id", tid.String()) }
func zapSpanID(sid id.SpanID) zap.Field   { return zap.String("span_id", sid.String()) }
func zapOperation(name string) zap.Field  { return zap.String("operation", name) }
