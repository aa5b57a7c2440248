// Package server provides the daemon's HTTP surface.
//
// Routes:
//   - GET  /health                   liveness plus span pipeline counters
//   - GET  /metrics                  Prometheus exposition
//   - GET  /v1/sampling/stats        sampler decision counters
//   - POST /v1/sampling/stats/reset  zero the sampler decision counters
//   - GET  /v1/analysis/summary      analyzer-wide counters
//   - GET  /v1/analysis/latency      per-operation latency distribution
//   - GET  /v1/analysis/bottlenecks  on-demand detection scan
//   - POST /v1/spans                 external span ingest (rate limited)
//
// Middleware stack: recovery, request ID, HTTP metrics, CORS, and per-IP
// rate limiting on the ingest route.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv := server.New(cfg, server.Deps{Sampler: sampler, Analyzer: analyzer})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
