package export

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/helixtrace/helix/internal/trace"
)

// ErrCircuitOpen is returned while the breaker is shedding batches.
var ErrCircuitOpen = errors.New("export circuit is open")

// Batch outcome labels reported to the recorder.
const (
	OutcomeExported = "exported"
	OutcomeFailed   = "failed"
	OutcomeShed     = "shed"
)

// Recorder mirrors batch outcomes into an external collector, e.g. the
// Prometheus export counter. Implementations must be safe for concurrent
// use.
type Recorder interface {
	RecordExport(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordExport(string) {}

// CircuitState is the breaker position.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerSettings tunes the export circuit. Zero values pick the defaults
// noted.
type BreakerSettings struct {
	// FailureThreshold opens the circuit after this many consecutive
	// export failures (default 5).
	FailureThreshold int
	// Cooldown is how long the circuit stays open before allowing a
	// half-open probe (default 30s).
	Cooldown time.Duration
	// ProbeSuccesses closes the circuit after this many consecutive
	// half-open successes (default 2).
	ProbeSuccesses int
	// Recorder receives the outcome of every batch. Nil disables
	// recording; Counts is maintained either way.
	Recorder Recorder
}

func (s *BreakerSettings) setDefaults() {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.ProbeSuccesses <= 0 {
		s.ProbeSuccesses = 2
	}
	if s.Recorder == nil {
		s.Recorder = noopRecorder{}
	}
}

// BreakerCounts is a snapshot of breaker activity.
type BreakerCounts struct {
	Exported            int64 `json:"exported"`
	Failed              int64 `json:"failed"`
	Shed                int64 `json:"shed"`
	ConsecutiveFailures int   `json:"consecutive_failures"`
}

// Breaker wraps an exporter with a three-state circuit. While open, Export
// returns ErrCircuitOpen immediately; the tracer's queue consumer treats
// that as a dropped batch rather than backpressure.
type Breaker struct {
	next     trace.Exporter
	settings BreakerSettings
	logger   *zap.Logger

	mu        sync.Mutex
	state     CircuitState
	counts    BreakerCounts
	successes int
	openUntil time.Time

	now func() time.Time
}

// NewBreaker wraps next with the circuit.
func NewBreaker(next trace.Exporter, settings BreakerSettings, logger *zap.Logger) (*Breaker, error) {
	if next == nil {
		return nil, errors.New("breaker requires a wrapped exporter")
	}
	settings.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		next:     next,
		settings: settings,
		logger:   logger,
		state:    CircuitClosed,
		now:      time.Now,
	}, nil
}

// Export forwards the batch unless the circuit is open.
func (b *Breaker) Export(spans []*trace.Span) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := b.next.Export(spans)
	b.settle(err)
	if err != nil {
		return fmt.Errorf("export batch of %d spans: %w", len(spans), err)
	}
	return nil
}

// State returns the current circuit position, honoring cooldown expiry.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	return b.state
}

// Counts returns a snapshot of breaker activity.
func (b *Breaker) Counts() BreakerCounts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	if b.state == CircuitOpen {
		b.counts.Shed++
		b.settings.Recorder.RecordExport(OutcomeShed)
		return ErrCircuitOpen
	}
	return nil
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()

	if err != nil {
		b.counts.Failed++
		b.settings.Recorder.RecordExport(OutcomeFailed)
		b.counts.ConsecutiveFailures++
		b.successes = 0
		// A half-open probe failure reopens immediately.
		if b.state == CircuitHalfOpen || b.counts.ConsecutiveFailures >= b.settings.FailureThreshold {
			b.transitionLocked(CircuitOpen)
		}
		return
	}

	b.counts.Exported++
	b.settings.Recorder.RecordExport(OutcomeExported)
	b.counts.ConsecutiveFailures = 0
	if b.state == CircuitHalfOpen {
		b.successes++
		if b.successes >= b.settings.ProbeSuccesses {
			b.transitionLocked(CircuitClosed)
		}
	}
}

// refreshLocked moves an expired open circuit to half-open.
func (b *Breaker) refreshLocked() {
	if b.state == CircuitOpen && !b.openUntil.After(b.now()) {
		b.transitionLocked(CircuitHalfOpen)
	}
}

func (b *Breaker) transitionLocked(state CircuitState) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.successes = 0

	switch state {
	case CircuitOpen:
		b.openUntil = b.now().Add(b.settings.Cooldown)
	case CircuitClosed:
		b.counts.ConsecutiveFailures = 0
	}

	b.logger.Warn("export circuit state changed",
		zap.String("from", prev.String()),
		zap.String("to", state.String()),
	)
}
