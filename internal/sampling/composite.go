package sampling

import (
	"fmt"
)

// Combination resolves the child decisions of a composite sampler.
type Combination string

const (
	// Any samples when at least one child samples.
	Any Combination = "any"
	// All samples only when every child samples.
	All Combination = "all"
	// Majority samples when more than half of the children sample.
	Majority Combination = "majority"
)

func (c Combination) valid() bool {
	switch c {
	case Any, All, Majority:
		return true
	}
	return false
}

// Composite combines an ordered list of child samplers. Every child's Decide
// runs on every call so child state (token buckets, adaptive controllers,
// per-child stats) advances even when the combined result discards its vote.
// The composite's own stats track only the combined decision.
type Composite struct {
	children []Sampler
	strategy Combination
	stats    counters
}

// NewComposite creates a composite sampler over the given children.
func NewComposite(children []Sampler, strategy Combination) (*Composite, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("composite.children: %w", ErrNoChildren)
	}
	if !strategy.valid() {
		return nil, fmt.Errorf("composite.strategy %q: %w", strategy, ErrUnknownStrategy)
	}
	c := &Composite{
		children: append([]Sampler(nil), children...),
		strategy: strategy,
	}
	c.stats.init()
	return c, nil
}

// Decide polls every child, then resolves the votes per the combination
// strategy.
func (c *Composite) Decide(sc Context) (d Decision) {
	defer settle(&c.stats, &d)

	var sampleCount, recordCount int
	for _, child := range c.children {
		switch child.Decide(sc) {
		case RecordAndSample:
			sampleCount++
		case RecordOnly:
			recordCount++
		}
	}

	n := len(c.children)
	switch c.strategy {
	case All:
		if sampleCount == n {
			return RecordAndSample
		}
		if sampleCount+recordCount == n {
			return RecordOnly
		}
	case Majority:
		m := n/2 + 1
		if sampleCount >= m {
			return RecordAndSample
		}
		if sampleCount+recordCount >= m {
			return RecordOnly
		}
	default: // Any
		if sampleCount > 0 {
			return RecordAndSample
		}
		if recordCount > 0 {
			return RecordOnly
		}
	}
	return Drop
}

// Start forwards to children owning background work.
func (c *Composite) Start() {
	for _, child := range c.children {
		if lc, ok := child.(Lifecycle); ok {
			lc.Start()
		}
	}
}

// Stop forwards to children owning background work.
func (c *Composite) Stop() {
	for _, child := range c.children {
		if lc, ok := child.(Lifecycle); ok {
			lc.Stop()
		}
	}
}

// Stats returns a snapshot of the combined decision counters.
func (c *Composite) Stats() Stats {
	return c.stats.snapshot()
}

// ResetStats zeroes the combined counters and those of every child that
// supports resetting.
func (c *Composite) ResetStats() {
	c.stats.reset()
	for _, child := range c.children {
		if sr, ok := child.(StatsResetter); ok {
			sr.ResetStats()
		}
	}
}

// ChildStats returns per-child stat snapshots keyed by child description,
// for the observability surface.
func (c *Composite) ChildStats() map[string]Stats {
	out := make(map[string]Stats, len(c.children))
	for _, child := range c.children {
		out[child.Description()] = child.Stats()
	}
	return out
}

// Description identifies the strategy.
func (c *Composite) Description() string {
	return fmt.Sprintf("composite(%s, %d children)", c.strategy, len(c.children))
}
