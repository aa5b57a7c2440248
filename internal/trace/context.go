package trace

import (
	"github.com/helixtrace/helix/internal/shared/id"
)

// SpanContext is the propagatable identity of a span. It crosses process
// boundaries as the serializable triple (trace id, span id, sampled flag);
// the parent id and remote marker are process-local bookkeeping.
type SpanContext struct {
	TraceID      id.TraceID
	SpanID       id.SpanID
	ParentSpanID id.SpanID
	Sampled      bool
	Remote       bool
}

// IsValid reports whether the context carries usable identifiers.
func (sc SpanContext) IsValid() bool {
	return sc.TraceID.IsValid() && sc.SpanID.IsValid()
}

// HasParent reports whether the span has a parent within the same trace.
func (sc SpanContext) HasParent() bool {
	return sc.ParentSpanID.IsValid()
}

// NewRemoteContext reconstructs a SpanContext from the serializable triple
// received from another process.
func NewRemoteContext(traceID id.TraceID, spanID id.SpanID, sampled bool) SpanContext {
	return SpanContext{
		TraceID: traceID,
		SpanID:  spanID,
		Sampled: sampled,
		Remote:  true,
	}
}
