package sampling

import (
	"fmt"
)

// Probabilistic samples a fixed fraction of traces, deterministically on the
// trace ID so every span of one trace receives the same verdict.
type Probabilistic struct {
	rate  float64
	stats counters
}

// NewProbabilistic creates a probabilistic sampler. The rate must be within
// [0.0, 1.0].
func NewProbabilistic(rate float64) (*Probabilistic, error) {
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("probabilistic.rate %v: %w", rate, ErrInvalidRate)
	}
	p := &Probabilistic{rate: rate}
	p.stats.init()
	return p, nil
}

// Decide samples the span iff the trace ID scalar falls under the rate.
func (p *Probabilistic) Decide(sc Context) (d Decision) {
	defer settle(&p.stats, &d)

	if sampleTraceID(sc.TraceID, p.rate) {
		return RecordAndSample
	}
	return Drop
}

// Stats returns a snapshot of decision counters.
func (p *Probabilistic) Stats() Stats {
	return p.stats.snapshot()
}

// ResetStats zeroes the decision counters.
func (p *Probabilistic) ResetStats() {
	p.stats.reset()
}

// Rate returns the configured sampling rate.
func (p *Probabilistic) Rate() float64 {
	return p.rate
}

// Description identifies the strategy.
func (p *Probabilistic) Description() string {
	return fmt.Sprintf("probabilistic(%g)", p.rate)
}
