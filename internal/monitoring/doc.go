/*
Package monitoring provides Prometheus metrics for the tracing daemon.

# Overview

This package tracks sampling decisions per strategy, span lifecycle counts,
export activity, analyzer detections, and HTTP ingest traffic. Metrics
satisfies the observer hooks of the tracer, the analyzer, and the export
breaker, so a single collector instance feeds the whole span pipeline.

# Usage

	// Create metrics against the default registry
	metrics := monitoring.NewMetrics(nil)

	// Count every sampler decision
	sampler = monitoring.ObserveSampler(sampler, metrics)

	// Add middleware to the Gin router
	router.Use(monitoring.Middleware(metrics))

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
