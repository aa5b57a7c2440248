/*
Package trace provides the span lifecycle: span creation through a Tracer,
single-writer mutation until Finish, and non-blocking handoff of finished
spans to processors and an exporter.

# Overview

A Tracer is a factory for Spans. At StartSpan time it consults the configured
sampler once, bakes the decision into the span, and never revisits it: local
children inherit the root's decision verbatim (strict head-based sampling),
so one trace is either captured whole or not at all. Remote parents carry
only the sampled flag; a sampled remote parent is honored, an unsampled one
is re-evaluated locally so priority rules can still promote it.

# Lifecycle

	span := tracer.StartSpan("checkout.charge", trace.WithKind(trace.KindServer))
	span.SetAttribute("customer.tier", "gold")
	defer span.Finish()

Spans are mutated only by their owning goroutine. Finish is idempotent, and
all mutators become no-ops after it; the finished span is immutable and is
handed to the analyzer and exporter exactly once. Export handoff is a
buffered, non-blocking queue: a slow or dead exporter costs dropped spans
(counted and logged), never caller latency.

Tracers are constructor-injected and owned by the composition root. The
Registry exists for processes that genuinely need several named tracers; it
is passed explicitly, never consulted as an ambient global.
*/
package trace
