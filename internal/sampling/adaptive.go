package sampling

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// observationWindow bounds the retained error/request rate observations.
const observationWindow = 128

// AdaptiveParams configures the adaptive sampler's controller.
type AdaptiveParams struct {
	// BaseRate is the initial sampling rate.
	BaseRate float64
	// MinRate and MaxRate bound the rate at every point in time.
	MinRate float64
	MaxRate float64
	// AdjustmentInterval is the minimum time between controller passes.
	AdjustmentInterval time.Duration
	// ErrorRateThreshold is the mean error rate above which the sampling
	// rate is raised (capture more of a misbehaving system).
	ErrorRateThreshold float64
	// HighLoadThreshold is the request rate (req/s) above which the rate is
	// damped regardless of error rate. Zero disables load back-pressure.
	HighLoadThreshold float64
}

// Adaptive is a probabilistic sampler whose rate is steered by a simple
// proportional controller: error rates above the threshold raise the rate
// multiplicatively, calm periods decay it, and high request load damps it.
// Load damping is applied after the error adjustment so back-pressure wins
// over error-driven increases in the same pass.
type Adaptive struct {
	params AdaptiveParams
	logger *zap.Logger

	mu             sync.Mutex
	currentRate    float64
	errorRates     []float64
	requestRates   []float64
	lastAdjustment time.Time
	background     bool

	now   func() time.Time
	stats counters

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewAdaptive creates an adaptive sampler. All rates must be within
// [0.0, 1.0] with MinRate <= BaseRate <= MaxRate, and the adjustment
// interval must be positive.
func NewAdaptive(params AdaptiveParams, logger *zap.Logger) (*Adaptive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for name, rate := range map[string]float64{
		"adaptive.base_rate":            params.BaseRate,
		"adaptive.min_rate":             params.MinRate,
		"adaptive.max_rate":             params.MaxRate,
		"adaptive.error_rate_threshold": params.ErrorRateThreshold,
	} {
		if rate < 0 || rate > 1 {
			return nil, fmt.Errorf("%s %v: %w", name, rate, ErrInvalidRate)
		}
	}
	if params.MinRate > params.MaxRate {
		return nil, fmt.Errorf("adaptive.min_rate %v > adaptive.max_rate %v: %w",
			params.MinRate, params.MaxRate, ErrInvalidBounds)
	}
	if params.AdjustmentInterval <= 0 {
		return nil, fmt.Errorf("adaptive.adjustment_interval_seconds %v: %w",
			params.AdjustmentInterval.Seconds(), ErrInvalidInterval)
	}
	a := &Adaptive{
		params:         params,
		logger:         logger,
		currentRate:    clampRate(params.BaseRate, params.MinRate, params.MaxRate),
		lastAdjustment: time.Now(),
		now:            time.Now,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
	a.stats.init()
	return a, nil
}

// Decide records the caller's load observations, runs the controller inline
// when due (unless the background loop owns it), then applies the
// deterministic trace-id probability test at the current rate.
func (a *Adaptive) Decide(sc Context) (d Decision) {
	defer settle(&a.stats, &d)

	a.mu.Lock()
	if sc.ErrorRate != nil {
		a.errorRates = appendBounded(a.errorRates, *sc.ErrorRate)
	}
	if sc.RequestRate != nil {
		a.requestRates = appendBounded(a.requestRates, *sc.RequestRate)
	}
	now := a.now()
	if !a.background && now.Sub(a.lastAdjustment) >= a.params.AdjustmentInterval {
		a.adjustLocked(now)
	}
	rate := a.currentRate
	a.mu.Unlock()

	if sampleTraceID(sc.TraceID, rate) {
		return RecordAndSample
	}
	return Drop
}

// Start launches the periodic adjustment loop. Without Start the controller
// runs lazily inside Decide. Safe to call once; pair with Stop on shutdown.
func (a *Adaptive) Start() {
	a.startOnce.Do(func() {
		a.mu.Lock()
		a.background = true
		a.mu.Unlock()

		go func() {
			defer close(a.doneCh)
			ticker := time.NewTicker(a.params.AdjustmentInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					a.mu.Lock()
					a.adjustLocked(a.now())
					a.mu.Unlock()
				case <-a.stopCh:
					return
				}
			}
		}()
	})
}

// Stop signals the adjustment loop and waits for it to exit.
func (a *Adaptive) Stop() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		started := a.background
		a.background = false
		a.mu.Unlock()

		close(a.stopCh)
		if started {
			<-a.doneCh
		}
	})
}

// adjustLocked runs one controller pass. Caller holds a.mu.
func (a *Adaptive) adjustLocked(now time.Time) {
	a.lastAdjustment = now
	prev := a.currentRate
	rate := a.currentRate

	if len(a.errorRates) > 0 {
		meanErr := stat.Mean(a.errorRates, nil)
		switch {
		case meanErr > a.params.ErrorRateThreshold:
			rate = clampRate(rate*1.5, a.params.MinRate, a.params.MaxRate)
		case meanErr < a.params.ErrorRateThreshold/2:
			rate = clampRate(rate*0.9, a.params.MinRate, a.params.MaxRate)
		}
	}

	// Load damping last: back-pressure beats an error-driven raise made in
	// the same pass.
	if a.params.HighLoadThreshold > 0 && len(a.requestRates) > 0 {
		if stat.Mean(a.requestRates, nil) > a.params.HighLoadThreshold {
			rate = clampRate(rate*0.8, a.params.MinRate, a.params.MaxRate)
		}
	}

	a.currentRate = rate
	if rate != prev {
		a.logger.Debug("adaptive sampling rate adjusted",
			zap.Float64("previous", prev),
			zap.Float64("current", rate),
		)
	}
}

// Stats returns a snapshot of decision counters.
func (a *Adaptive) Stats() Stats {
	return a.stats.snapshot()
}

// ResetStats zeroes the decision counters. The controller's current rate and
// observation windows are untouched.
func (a *Adaptive) ResetStats() {
	a.stats.reset()
}

// CurrentRate returns the controller's current sampling rate.
func (a *Adaptive) CurrentRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// Description identifies the strategy.
func (a *Adaptive) Description() string {
	return fmt.Sprintf("adaptive(base=%g)", a.params.BaseRate)
}

func appendBounded(window []float64, v float64) []float64 {
	if len(window) >= observationWindow {
		copy(window, window[1:])
		window = window[:len(window)-1]
	}
	return append(window, v)
}
