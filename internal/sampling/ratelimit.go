package sampling

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiting caps the absolute number of sampled traces per second with a
// token bucket. Tokens accrue at the configured rate up to a capacity equal
// to that rate; each sampled trace consumes one token. This bounds tracing
// backend load regardless of request volume.
type RateLimiting struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	lastRefill time.Time

	now   func() time.Time
	stats counters
}

// NewRateLimiting creates a rate-limiting sampler allowing at most
// maxTracesPerSecond sampled traces per second. The limit must be positive;
// fractional limits (e.g. one trace every ten seconds at 0.1) are valid.
func NewRateLimiting(maxTracesPerSecond float64) (*RateLimiting, error) {
	if maxTracesPerSecond <= 0 {
		return nil, fmt.Errorf("rate_limiting.max_traces_per_second %v: %w",
			maxTracesPerSecond, ErrInvalidLimit)
	}
	r := &RateLimiting{
		tokens:     maxTracesPerSecond,
		capacity:   maxTracesPerSecond,
		lastRefill: time.Now(),
		now:        time.Now,
	}
	r.stats.init()
	return r, nil
}

// Decide consumes a token when one is available. Refill is computed lazily
// from the elapsed time since the last call; accumulation is capped at the
// bucket capacity so idle periods cannot bank an unbounded burst.
func (r *RateLimiting) Decide(sc Context) (d Decision) {
	defer settle(&r.stats, &d)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	if elapsed > 0 {
		r.tokens += elapsed * r.capacity
		if r.tokens > r.capacity {
			r.tokens = r.capacity
		}
	}
	r.lastRefill = now

	if r.tokens >= 1.0 {
		r.tokens--
		return RecordAndSample
	}
	return Drop
}

// Stats returns a snapshot of decision counters.
func (r *RateLimiting) Stats() Stats {
	return r.stats.snapshot()
}

// ResetStats zeroes the decision counters. The token level is untouched.
func (r *RateLimiting) ResetStats() {
	r.stats.reset()
}

// Tokens returns the current token level, for health surfaces.
func (r *RateLimiting) Tokens() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens
}

// Description identifies the strategy.
func (r *RateLimiting) Description() string {
	return fmt.Sprintf("rate_limiting(%g/s)", r.capacity)
}
