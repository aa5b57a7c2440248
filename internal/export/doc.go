/*
Package export provides span exporter implementations and an exporter
circuit breaker.

Exporters receive batches of finished, sampled spans from the tracer's
export queue. The Log exporter writes structured span records through zap,
Capture retains spans in memory for tests and diagnostics, and Noop
discards everything. Breaker wraps any exporter with a three-state circuit
(closed, open, half-open) so a failing backend sheds batches instead of
accumulating latency on the export path.
*/
package export
