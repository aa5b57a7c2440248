package sampling

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Strategy names recognized by Build.
const (
	StrategyProbabilistic = "probabilistic"
	StrategyRateLimiting  = "rate_limiting"
	StrategyAdaptive      = "adaptive"
	StrategyPriority      = "priority"
	StrategyComposite     = "composite"
)

// Config describes a sampler tree. Composite children nest, so the tree is
// loaded from YAML rather than flat environment variables.
type Config struct {
	Strategy string `yaml:"strategy" json:"strategy"`

	Probabilistic ProbabilisticConfig `yaml:"probabilistic" json:"probabilistic"`
	RateLimiting  RateLimitingConfig  `yaml:"rate_limiting" json:"rate_limiting"`
	Adaptive      AdaptiveConfig      `yaml:"adaptive" json:"adaptive"`
	Priority      PriorityConfig      `yaml:"priority" json:"priority"`
	Composite     CompositeConfig     `yaml:"composite" json:"composite"`
}

// ProbabilisticConfig configures the probabilistic strategy.
type ProbabilisticConfig struct {
	Rate float64 `yaml:"rate" json:"rate"`
}

// RateLimitingConfig configures the token-bucket strategy.
type RateLimitingConfig struct {
	MaxTracesPerSecond float64 `yaml:"max_traces_per_second" json:"max_traces_per_second"`
}

// AdaptiveConfig configures the closed-loop strategy.
type AdaptiveConfig struct {
	BaseRate                  float64 `yaml:"base_rate" json:"base_rate"`
	MinRate                   float64 `yaml:"min_rate" json:"min_rate"`
	MaxRate                   float64 `yaml:"max_rate" json:"max_rate"`
	AdjustmentIntervalSeconds float64 `yaml:"adjustment_interval_seconds" json:"adjustment_interval_seconds"`
	ErrorRateThreshold        float64 `yaml:"error_rate_threshold" json:"error_rate_threshold"`
	HighLoadThreshold         float64 `yaml:"high_load_threshold" json:"high_load_threshold"`
}

// PriorityConfig configures the rule-table strategy. Rules are ordered;
// the first match wins.
type PriorityConfig struct {
	Rules       []RuleConfig `yaml:"rules" json:"rules"`
	DefaultRate float64      `yaml:"default_rate" json:"default_rate"`
}

// RuleConfig is one priority rule.
type RuleConfig struct {
	Pattern string  `yaml:"pattern" json:"pattern"`
	Rate    float64 `yaml:"rate" json:"rate"`
}

// CompositeConfig configures the combinator strategy.
type CompositeConfig struct {
	Strategy string   `yaml:"strategy" json:"strategy"`
	Children []Config `yaml:"children" json:"children"`
}

// Build constructs the sampler tree described by cfg, validating every
// parameter. Errors name the offending parameter so a misconfigured service
// fails to start with a useful message.
func Build(cfg Config, logger *zap.Logger) (Sampler, error) {
	switch cfg.Strategy {
	case StrategyProbabilistic:
		return NewProbabilistic(cfg.Probabilistic.Rate)

	case StrategyRateLimiting:
		return NewRateLimiting(cfg.RateLimiting.MaxTracesPerSecond)

	case StrategyAdaptive:
		return NewAdaptive(AdaptiveParams{
			BaseRate:           cfg.Adaptive.BaseRate,
			MinRate:            cfg.Adaptive.MinRate,
			MaxRate:            cfg.Adaptive.MaxRate,
			AdjustmentInterval: time.Duration(cfg.Adaptive.AdjustmentIntervalSeconds * float64(time.Second)),
			ErrorRateThreshold: cfg.Adaptive.ErrorRateThreshold,
			HighLoadThreshold:  cfg.Adaptive.HighLoadThreshold,
		}, logger)

	case StrategyPriority:
		rules := make([]Rule, len(cfg.Priority.Rules))
		for i, r := range cfg.Priority.Rules {
			rules[i] = Rule{Pattern: r.Pattern, Rate: r.Rate}
		}
		return NewPriority(rules, cfg.Priority.DefaultRate)

	case StrategyComposite:
		children := make([]Sampler, 0, len(cfg.Composite.Children))
		for i, childCfg := range cfg.Composite.Children {
			child, err := Build(childCfg, logger)
			if err != nil {
				return nil, fmt.Errorf("composite.children[%d]: %w", i, err)
			}
			children = append(children, child)
		}
		return NewComposite(children, Combination(cfg.Composite.Strategy))

	default:
		return nil, fmt.Errorf("strategy %q: %w", cfg.Strategy, ErrUnknownStrategy)
	}
}

// DefaultConfig returns a conservative probabilistic config used when no
// sampling file is supplied.
func DefaultConfig() Config {
	return Config{
		Strategy:      StrategyProbabilistic,
		Probabilistic: ProbabilisticConfig{Rate: 0.1},
	}
}
