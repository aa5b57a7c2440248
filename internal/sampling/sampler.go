package sampling

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/helixtrace/helix/internal/shared/id"
)

// Decision is the tri-state outcome of a sampling decision.
type Decision int

const (
	// Drop means the span receives minimal bookkeeping and is not exported.
	Drop Decision = iota
	// RecordOnly keeps attributes and events for in-process analysis but
	// does not export the span.
	RecordOnly
	// RecordAndSample fully instruments and exports the span.
	RecordAndSample
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case Drop:
		return "drop"
	case RecordOnly:
		return "record_only"
	case RecordAndSample:
		return "record_and_sample"
	default:
		return "unknown"
	}
}

// Recording reports whether the span should retain attributes and events.
func (d Decision) Recording() bool {
	return d == RecordOnly || d == RecordAndSample
}

// Sampled reports whether the span should be exported.
func (d Decision) Sampled() bool {
	return d == RecordAndSample
}

// Well-known attribute keys consulted by the priority sampler.
const (
	// AttrPriority marks an operation "high" or "low" priority.
	AttrPriority = "sampling.priority"
	// AttrError marks the operation as an error path ("true").
	AttrError = "error"

	// PriorityHigh forces the resolved rate to 1.0.
	PriorityHigh = "high"
	// PriorityLow forces the resolved rate to 0.01.
	PriorityLow = "low"
)

// Context carries the per-decision inputs. It is constructed fresh for every
// Decide call and never retained.
type Context struct {
	TraceID    id.TraceID
	SpanName   string
	Attributes map[string]string

	// ErrorRate and RequestRate are optional load observations supplied by
	// the caller, consumed by the adaptive sampler. Nil when unknown.
	ErrorRate   *float64
	RequestRate *float64
}

// Sampler decides whether a span should be recorded, sampled, or dropped.
// Implementations must be safe for concurrent Decide calls.
type Sampler interface {
	// Decide makes a sampling decision. It never fails and never blocks.
	Decide(sc Context) Decision
	// Stats returns a point-in-time snapshot of decision counters.
	Stats() Stats
	// Description identifies the strategy for logs and metrics labels.
	Description() string
}

// StatsResetter is implemented by samplers whose decision counters can be
// zeroed from the observability surface. Resetting touches counters only;
// sampler state (rates, token levels) is preserved.
type StatsResetter interface {
	ResetStats()
}

// Lifecycle is implemented by samplers that own background work. The
// composition root starts them after construction and stops them on
// shutdown; Stop blocks until the background work has exited.
type Lifecycle interface {
	Start()
	Stop()
}

// Stats is a read-only snapshot of a sampler's decision counters.
type Stats struct {
	TotalDecisions  int64     `json:"total_decisions"`
	SampledCount    int64     `json:"sampled_count"`
	RecordOnlyCount int64     `json:"record_only_count"`
	DroppedCount    int64     `json:"dropped_count"`
	FaultCount      int64     `json:"fault_count"`
	SamplingRate    float64   `json:"sampling_rate"`
	LastResetTime   time.Time `json:"last_reset_time"`
}

// counters accumulates decision outcomes. Safe for concurrent update and
// snapshot.
type counters struct {
	total      atomic.Int64
	sampled    atomic.Int64
	recordOnly atomic.Int64
	dropped    atomic.Int64
	faults     atomic.Int64
	resetNanos atomic.Int64
}

func (c *counters) init() {
	c.resetNanos.Store(time.Now().UnixNano())
}

func (c *counters) record(d Decision) {
	c.total.Add(1)
	switch d {
	case RecordAndSample:
		c.sampled.Add(1)
	case RecordOnly:
		c.recordOnly.Add(1)
	default:
		c.dropped.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	s := Stats{
		TotalDecisions:  c.total.Load(),
		SampledCount:    c.sampled.Load(),
		RecordOnlyCount: c.recordOnly.Load(),
		DroppedCount:    c.dropped.Load(),
		FaultCount:      c.faults.Load(),
		LastResetTime:   time.Unix(0, c.resetNanos.Load()),
	}
	if s.TotalDecisions > 0 {
		s.SamplingRate = float64(s.SampledCount) / float64(s.TotalDecisions)
	}
	return s
}

func (c *counters) reset() {
	c.total.Store(0)
	c.sampled.Store(0)
	c.recordOnly.Store(0)
	c.dropped.Store(0)
	c.faults.Store(0)
	c.resetNanos.Store(time.Now().UnixNano())
}

// settle recovers a panic on the decision path, degrading the decision to
// Drop, then records the final outcome. Deferred by every Decide
// implementation so a sampler fault can never abort span creation.
func settle(c *counters, d *Decision) {
	if r := recover(); r != nil {
		c.faults.Add(1)
		*d = Drop
	}
	c.record(*d)
}

// sampleTraceID applies the deterministic trace-id probability test: the low
// 64 bits of the trace ID, treated as a uniform unsigned scalar, are compared
// against rate scaled to the uint64 range. Identical trace IDs always yield
// identical outcomes for a fixed rate.
func sampleTraceID(t id.TraceID, rate float64) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 1 {
		return true
	}
	bound := uint64(rate * float64(math.MaxUint64))
	return t.Low64() < bound
}

// clampRate bounds a rate to [lo, hi].
func clampRate(rate, lo, hi float64) float64 {
	if rate < lo {
		return lo
	}
	if rate > hi {
		return hi
	}
	return rate
}
