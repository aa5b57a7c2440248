/*
Package analysis maintains rolling latency windows over finished spans and
surfaces latency outliers and dependency bottlenecks.

# Overview

The Analyzer ingests one metric per finished recording span into a bounded
per-service.operation ring buffer (O(1) amortized, oldest evicted first). On
demand it computes distribution statistics over the retained window — mean,
median, standard deviation, nearest-rank p95/p99 — plus a first-half versus
second-half trend, and scans all operations for bottleneck conditions:

  - HighLatency: p95 above the configured threshold (High above 2x).
  - HighErrorRate: error fraction above the threshold (Critical above 20%).
  - ResourceContention: latency coefficient of variation above 1.0.

Ingestion runs on the span-finishing path and must stay cheap; the analysis
calls sort a copy of one window (O(n log n), n bounded by the window
capacity) and belong on a monitoring path, not the per-request path.

# Percentile convention

Percentiles use the nearest-rank method on a sorted copy of the window:
p = sorted[ceil(q*n) - 1]. The median alone uses the midpoint convention
(mean of the two central values for even sample counts).
*/
package analysis
