package trace

import (
	"sync/atomic"
	"time"

	"github.com/helixtrace/helix/internal/sampling"
)

// Kind classifies a span's role in a request flow.
type Kind int

const (
	KindInternal Kind = iota
	KindServer
	KindClient
	KindProducer
	KindConsumer
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	case KindProducer:
		return "producer"
	case KindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}

// Status is the terminal state of a span.
type Status int

const (
	StatusOK Status = iota
	StatusError
	StatusTimeout
	StatusCancelled
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	case StatusCancelled:
		return "cancelled"
	default:
		return "ok"
	}
}

// Attribute is one ordered key/value pair on a span.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is a timestamped annotation appended to a span.
type Event struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Span is a timed unit of work. Identity is immutable; metadata is mutable
// by the owning goroutine until Finish, after which the span is read-only.
// Spans are never shared for concurrent mutation.
type Span struct {
	ctx      SpanContext
	name     string
	service  string
	kind     Kind
	decision sampling.Decision

	startTime time.Time
	endTime   time.Time

	// Attribute insertion order is preserved; last write per key wins.
	attrs    map[string]string
	attrKeys []string
	events   []Event
	status   Status
	err      error

	finished atomic.Bool
	tracer   *Tracer
}

// Context returns the span's propagatable identity.
func (s *Span) Context() SpanContext { return s.ctx }

// Name returns the operation name.
func (s *Span) Name() string { return s.name }

// Service returns the owning tracer's service name.
func (s *Span) Service() string { return s.service }

// Kind returns the span kind.
func (s *Span) Kind() Kind { return s.kind }

// Decision returns the sampling decision baked in at creation.
func (s *Span) Decision() sampling.Decision { return s.decision }

// IsRecording reports whether the span retains attributes and events.
func (s *Span) IsRecording() bool {
	return s.decision.Recording() && !s.finished.Load()
}

// StartTime returns when the span started.
func (s *Span) StartTime() time.Time { return s.startTime }

// EndTime returns when the span finished, or the zero time while running.
func (s *Span) EndTime() time.Time { return s.endTime }

// Duration returns the elapsed span time, zero until finished.
func (s *Span) Duration() time.Duration {
	if s.endTime.IsZero() {
		return 0
	}
	return s.endTime.Sub(s.startTime)
}

// Status returns the span status.
func (s *Span) Status() Status { return s.status }

// Err returns the recorded error, nil if none.
func (s *Span) Err() error { return s.err }

// SetAttribute sets an attribute. Keys are unique and last write wins.
// No-op on a finished or non-recording span.
func (s *Span) SetAttribute(key, value string) {
	if !s.IsRecording() {
		return
	}
	if _, exists := s.attrs[key]; !exists {
		s.attrKeys = append(s.attrKeys, key)
	}
	s.attrs[key] = value
}

// Attributes returns the attributes in insertion order.
func (s *Span) Attributes() []Attribute {
	out := make([]Attribute, 0, len(s.attrKeys))
	for _, k := range s.attrKeys {
		out = append(out, Attribute{Key: k, Value: s.attrs[k]})
	}
	return out
}

// Attribute returns a single attribute value.
func (s *Span) Attribute(key string) (string, bool) {
	v, ok := s.attrs[key]
	return v, ok
}

// AddEvent appends a timestamped event. No-op on a finished or
// non-recording span.
func (s *Span) AddEvent(name string, attrs map[string]string) {
	if !s.IsRecording() {
		return
	}
	s.events = append(s.events, Event{
		Name:       name,
		Attributes: attrs,
		Timestamp:  time.Now(),
	})
}

// Events returns a copy of the event list.
func (s *Span) Events() []Event {
	return append([]Event(nil), s.events...)
}

// SetStatus sets the span status. No-op once finished.
func (s *Span) SetStatus(status Status) {
	if s.finished.Load() {
		return
	}
	s.status = status
}

// RecordError marks the span failed and records the error as an event.
// No-op once finished or for nil errors.
func (s *Span) RecordError(err error) {
	if err == nil || s.finished.Load() {
		return
	}
	s.status = StatusError
	s.err = err
	if s.decision.Recording() {
		s.AddEvent("exception", map[string]string{"message": err.Error()})
	}
}

// Finish seals the span and hands it off for analysis and export exactly
// once. A second call is a no-op. Safe for a deadline sweeper to call on
// abandoned spans.
func (s *Span) Finish() {
	s.FinishAt(time.Now())
}

// FinishAt is Finish with an explicit end timestamp.
func (s *Span) FinishAt(end time.Time) {
	if !s.finished.CompareAndSwap(false, true) {
		if s.tracer != nil {
			s.tracer.logger.Warn("span finished twice",
				zapTraceID(s.ctx.TraceID),
				zapSpanID(s.ctx.SpanID),
				zapOperation(s.name),
			)
		}
		return
	}
	s.endTime = end
	if s.tracer != nil {
		s.tracer.onFinish(s)
	}
}

// Finished reports whether Finish has been called.
func (s *Span) Finished() bool {
	return s.finished.Load()
}
