/*
Package sampling implements the sampling strategies that decide, at span
start, how much bookkeeping a span receives.

# Overview

Every strategy implements the Sampler interface: a Decide function mapping a
per-span Context to one of three decisions (record and sample, record only,
drop). Decisions never fail and never block; an unexpected panic on the
decision path is absorbed and degrades to Drop, visible only through the
sampler's fault counter.

# Strategies

  - Probabilistic: deterministic on the trace ID, so every span of one trace
    receives the same verdict at a configured rate.
  - RateLimiting: token bucket bounding absolute sampled throughput.
  - Adaptive: probabilistic with a closed-loop controller that raises the
    rate under elevated error rates and lowers it under load.
  - Priority: first-match-wins span-name rules with attribute overrides,
    resolved to a rate and applied deterministically.
  - Composite: combines any of the above with any/all/majority resolution.

# Concurrency

A single sampler instance may be shared by many tracers. Stateful strategies
(rate limiting, adaptive) serialize their read-modify-write sections behind a
mutex; stateless strategies only touch atomic stat counters. The adaptive
sampler's background adjustment loop is owned by Start/Stop and never races
with Decide.

# Configuration

Samplers are built from a Config tree (YAML-friendly, composite children
nest). All parameter validation happens at construction: a service should
fail to start on an invalid sampling config rather than misbehave at runtime.

	sampler, err := sampling.Build(cfg, logger)
	if err != nil {
	    return err
	}
	if lc, ok := sampler.(sampling.Lifecycle); ok {
	    lc.Start()
	    defer lc.Stop()
	}
*/
package sampling
