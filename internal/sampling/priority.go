package sampling

import (
	"fmt"
	"strings"
)

// Rule maps a span-name pattern to a sampling rate. A pattern matches a span
// name exactly or as a substring; the first matching rule wins.
type Rule struct {
	Pattern string
	Rate    float64
}

// Priority resolves a per-span sampling rate from an ordered rule table,
// applies attribute overrides (forced high/low priority, error boost), then
// makes the deterministic trace-id probability test at the resolved rate.
type Priority struct {
	rules       []Rule
	defaultRate float64
	stats       counters
}

// NewPriority creates a priority sampler. Every rule needs a non-empty
// pattern and a rate within [0.0, 1.0]; the default rate applies when no
// rule matches.
func NewPriority(rules []Rule, defaultRate float64) (*Priority, error) {
	if defaultRate < 0 || defaultRate > 1 {
		return nil, fmt.Errorf("priority.default_rate %v: %w", defaultRate, ErrInvalidRate)
	}
	for i, r := range rules {
		if r.Pattern == "" {
			return nil, fmt.Errorf("priority.rules[%d]: empty pattern: %w", i, ErrInvalidRule)
		}
		if r.Rate < 0 || r.Rate > 1 {
			return nil, fmt.Errorf("priority.rules[%d] (%q) rate %v: %w",
				i, r.Pattern, r.Rate, ErrInvalidRate)
		}
	}
	p := &Priority{
		rules:       append([]Rule(nil), rules...),
		defaultRate: defaultRate,
	}
	p.stats.init()
	return p, nil
}

// Decide resolves the rate for the span and samples deterministically.
func (p *Priority) Decide(sc Context) (d Decision) {
	defer settle(&p.stats, &d)

	if sampleTraceID(sc.TraceID, p.resolveRate(sc)) {
		return RecordAndSample
	}
	return Drop
}

// resolveRate applies first-match-wins rule lookup, then the attribute
// overrides: forced priority replaces the rate, an error marker multiplies
// it by 5 capped at 1.0.
func (p *Priority) resolveRate(sc Context) float64 {
	rate := p.defaultRate
	for _, r := range p.rules {
		if strings.Contains(sc.SpanName, r.Pattern) {
			rate = r.Rate
			break
		}
	}

	switch sc.Attributes[AttrPriority] {
	case PriorityHigh:
		rate = 1.0
	case PriorityLow:
		rate = 0.01
	}
	if sc.Attributes[AttrError] == "true" {
		rate = rate * 5
		if rate > 1.0 {
			rate = 1.0
		}
	}
	return rate
}

// Stats returns a snapshot of decision counters.
func (p *Priority) Stats() Stats {
	return p.stats.snapshot()
}

// ResetStats zeroes the decision counters.
func (p *Priority) ResetStats() {
	p.stats.reset()
}

// Description identifies the strategy.
func (p *Priority) Description() string {
	return fmt.Sprintf("priority(%d rules, default=%g)", len(p.rules), p.defaultRate)
}
