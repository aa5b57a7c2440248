package export

import (
	"sync"

	"go.uber.org/zap"

	"github.com/helixtrace/helix/internal/trace"
)

// Noop discards every batch. Useful as a default when no backend is
// configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) Export([]*trace.Span) error { return nil }

// Capture retains exported spans in memory. Intended for tests and local
// diagnostics, not production traffic.
type Capture struct {
	mu    sync.Mutex
	spans []*trace.Span
}

func NewCapture() *Capture { return &Capture{} }

func (c *Capture) Export(spans []*trace.Span) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spans = append(c.spans, spans...)
	return nil
}

// Spans returns a copy of everything captured so far.
func (c *Capture) Spans() []*trace.Span {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*trace.Span, len(c.spans))
	copy(out, c.spans)
	return out
}

func (c *Capture) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.spans)
}

// Log writes one structured record per span. The zap encoder handles
// serialization, so this exporter is safe on hot export paths at info
// level and below.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Export(spans []*trace.Span) error {
	for _, span := range spans {
		ctx := span.Context()
		fields := []zap.Field{
			zap.String("trace_id", ctx.TraceID.String()),
			zap.String("span_id", ctx.SpanID.String()),
			zap.String("service", span.Service()),
			zap.String("operation", span.Name()),
			zap.String("kind", span.Kind().String()),
			zap.String("status", span.Status().String()),
			zap.Duration("duration", span.Duration()),
		}
		if ctx.HasParent() {
			fields = append(fields, zap.String("parent_span_id", ctx.ParentSpanID.String()))
		}
		for _, attr := range span.Attributes() {
			fields = append(fields, zap.String("attr."+attr.Key, attr.Value))
		}
		if err := span.Err(); err != nil {
			fields = append(fields, zap.Error(err))
		}
		l.logger.Info("span", fields...)
	}
	return nil
}
