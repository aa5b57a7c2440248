package monitoring

import (
	"github.com/helixtrace/helix/internal/sampling"
)

// observedSampler counts every decision a wrapped sampler makes.
type observedSampler struct {
	next    sampling.Sampler
	metrics *Metrics
}

// ObserveSampler wraps a sampler so each decision increments the
// per-strategy decision counter. Lifecycle calls pass through when the
// wrapped sampler supports them.
func ObserveSampler(next sampling.Sampler, metrics *Metrics) sampling.Sampler {
	if metrics == nil {
		return next
	}
	if lc, ok := next.(sampling.Lifecycle); ok {
		return &observedLifecycleSampler{
			observedSampler: observedSampler{next: next, metrics: metrics},
			lifecycle:       lc,
		}
	}
	return &observedSampler{next: next, metrics: metrics}
}

func (s *observedSampler) Decide(ctx sampling.Context) sampling.Decision {
	d := s.next.Decide(ctx)
	s.metrics.RecordDecision(s.next.Description(), d.String())
	s.metrics.SetSamplerRate(s.next.Description(), s.next.Stats().SamplingRate)
	return d
}

func (s *observedSampler) Stats() sampling.Stats { return s.next.Stats() }

func (s *observedSampler) Description() string { return s.next.Description() }

// ResetStats forwards a counter reset when the wrapped sampler supports it.
func (s *observedSampler) ResetStats() {
	if sr, ok := s.next.(sampling.StatsResetter); ok {
		sr.ResetStats()
	}
}

// ChildStats forwards per-child counters when the wrapped sampler is a
// composite. Nil otherwise.
func (s *observedSampler) ChildStats() map[string]sampling.Stats {
	if cs, ok := s.next.(interface{ ChildStats() map[string]sampling.Stats }); ok {
		return cs.ChildStats()
	}
	return nil
}

// observedLifecycleSampler additionally forwards Start and Stop.
type observedLifecycleSampler struct {
	observedSampler
	lifecycle sampling.Lifecycle
}

func (s *observedLifecycleSampler) Start() { s.lifecycle.Start() }
func (s *observedLifecycleSampler) Stop()  { s.lifecycle.Stop() }
