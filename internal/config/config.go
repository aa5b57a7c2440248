package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"github.com/helixtrace/helix/internal/sampling"
)

// Config holds all daemon configuration.
type Config struct {
	Server    ServerConfig
	Service   ServiceConfig
	Sampling  SamplingConfig
	Analyzer  AnalyzerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Export    ExportConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"HELIX_PORT" default:"7070"`
	Host string `envconfig:"HELIX_HOST" default:"0.0.0.0"`
}

// ServiceConfig identifies the traced service.
type ServiceConfig struct {
	Name string `envconfig:"HELIX_SERVICE_NAME" default:"helix"`
}

// SamplingConfig points at the sampler strategy file. An empty path falls
// back to the default probabilistic strategy.
type SamplingConfig struct {
	StrategyFile string `envconfig:"HELIX_SAMPLING_STRATEGY_FILE" default:""`
}

// AnalyzerConfig holds performance analyzer thresholds.
type AnalyzerConfig struct {
	WindowCapacity        int     `envconfig:"HELIX_ANALYZER_WINDOW_CAPACITY" default:"1000"`
	WindowMinutes         float64 `envconfig:"HELIX_ANALYZER_WINDOW_MINUTES" default:"15"`
	SampleSizeThreshold   int     `envconfig:"HELIX_ANALYZER_SAMPLE_THRESHOLD" default:"10"`
	BottleneckThresholdMs float64 `envconfig:"HELIX_ANALYZER_BOTTLENECK_MS" default:"1000"`
	ErrorRateThreshold    float64 `envconfig:"HELIX_ANALYZER_ERROR_RATE" default:"0.05"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"HELIX_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"HELIX_LOG_DEV" default:"false"`
}

// RateLimitConfig holds ingest rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"HELIX_RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"HELIX_RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"HELIX_RATE_LIMIT_ENABLED" default:"true"`
}

// ExportConfig holds span export configuration.
type ExportConfig struct {
	QueueSize        int  `envconfig:"HELIX_EXPORT_QUEUE_SIZE" default:"1000"`
	LogSpans         bool `envconfig:"HELIX_EXPORT_LOG_SPANS" default:"false"`
	BreakerThreshold int  `envconfig:"HELIX_EXPORT_BREAKER_THRESHOLD" default:"5"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("HELIX", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "7070",
			Host: "0.0.0.0",
		},
		Service: ServiceConfig{
			Name: "helix",
		},
		Analyzer: AnalyzerConfig{
			WindowCapacity:        1000,
			WindowMinutes:         15,
			SampleSizeThreshold:   10,
			BottleneckThresholdMs: 1000,
			ErrorRateThreshold:    0.05,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Export: ExportConfig{
			QueueSize:        1000,
			BreakerThreshold: 5,
		},
	}
}

// LoadSamplingStrategy reads and parses the YAML strategy file. An empty
// path yields the default strategy.
func LoadSamplingStrategy(path string) (*sampling.Config, error) {
	if path == "" {
		cfg := sampling.DefaultConfig()
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sampling strategy %s: %w", path, err)
	}
	var cfg sampling.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse sampling strategy %s: %w", path, err)
	}
	return &cfg, nil
}
