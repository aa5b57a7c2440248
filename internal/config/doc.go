// Package config provides 12-factor configuration management for the
// tracing daemon.
//
// Daemon settings are loaded from HELIX_-prefixed environment variables
// with sensible defaults. The sampling strategy is the one piece too
// structured for flat environment variables; it lives in a YAML file whose
// path comes from HELIX_SAMPLING_STRATEGY_FILE.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	strategy, err := config.LoadSamplingStrategy(cfg.Sampling.StrategyFile)
//
// Environment Variables:
//   - HELIX_PORT, HELIX_HOST, HELIX_SERVICE_NAME
//   - HELIX_LOG_LEVEL, HELIX_LOG_DEV
//   - HELIX_SAMPLING_STRATEGY_FILE
//   - HELIX_ANALYZER_WINDOW_CAPACITY, HELIX_ANALYZER_WINDOW_MINUTES,
//     HELIX_ANALYZER_SAMPLE_THRESHOLD, HELIX_ANALYZER_BOTTLENECK_MS,
//     HELIX_ANALYZER_ERROR_RATE
//   - HELIX_RATE_LIMIT_RPS, HELIX_RATE_LIMIT_BURST, HELIX_RATE_LIMIT_ENABLED
//   - HELIX_EXPORT_QUEUE_SIZE, HELIX_EXPORT_LOG_SPANS,
//     HELIX_EXPORT_BREAKER_THRESHOLD
package config
