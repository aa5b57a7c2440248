/*
Package propagation carries span context across process boundaries through
transport headers.
*/
package propagation

import (
	"errors"

	"github.com/helixtrace/helix/internal/shared/id"
	"github.com/helixtrace/helix/internal/trace"
)

// Header names used on the wire.
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
	HeaderSampled = "X-Sampled"
)

// ErrNoTraceContext is returned by Extract when the carrier holds no trace
// headers at all. Callers start a fresh trace in that case.
var ErrNoTraceContext = errors.New("no trace context in carrier")

// Carrier abstracts the header map of a transport. http.Header satisfies
// it directly.
type Carrier interface {
	Get(key string) string
	Set(key, value string)
}

// MapCarrier adapts a plain string map.
type MapCarrier map[string]string

func (c MapCarrier) Get(key string) string { return c[key] }
func (c MapCarrier) Set(key, value string) { c[key] = value }

// Inject writes the span's context into the carrier. Spans that were never
// sampled still propagate their IDs so downstream services can correlate
// logs.
func Inject(span *trace.Span, carrier Carrier) {
	if span == nil {
		return
	}
	ctx := span.Context()
	if !ctx.IsValid() {
		return
	}
	carrier.Set(HeaderTraceID, ctx.TraceID.String())
	carrier.Set(HeaderSpanID, ctx.SpanID.String())
	if ctx.Sampled {
		carrier.Set(HeaderSampled, "1")
	} else {
		carrier.Set(HeaderSampled, "0")
	}
}

// Extract reads a remote span context from the carrier. A missing or
// malformed trace ID yields ErrNoTraceContext or a parse error; a missing
// span ID is tolerated because some upstream proxies forward only the
// trace header.
func Extract(carrier Carrier) (trace.SpanContext, error) {
	rawTrace := carrier.Get(HeaderTraceID)
	if rawTrace == "" {
		return trace.SpanContext{}, ErrNoTraceContext
	}
	traceID, err := id.TraceIDFromHex(rawTrace)
	if err != nil {
		return trace.SpanContext{}, err
	}

	var spanID id.SpanID
	if rawSpan := carrier.Get(HeaderSpanID); rawSpan != "" {
		spanID, err = id.SpanIDFromHex(rawSpan)
		if err != nil {
			return trace.SpanContext{}, err
		}
	}

	sampled := carrier.Get(HeaderSampled) == "1"
	return trace.NewRemoteContext(traceID, spanID, sampled), nil
}
