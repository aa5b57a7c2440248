package analysis

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// DetectionType classifies a bottleneck finding.
type DetectionType string

const (
	HighLatency        DetectionType = "high_latency"
	HighErrorRate      DetectionType = "high_error_rate"
	ResourceContention DetectionType = "resource_contention"
)

// Severity ranks a detection.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// maxSampleTraceIDs bounds the affected-trace sample on each detection.
const maxSampleTraceIDs = 8

// Detection is one flagged bottleneck with remediation hints and a bounded
// sample of affected trace IDs.
type Detection struct {
	Type            DetectionType `json:"type"`
	Severity        Severity      `json:"severity"`
	Service         string        `json:"service"`
	Operation       string        `json:"operation"`
	Description     string        `json:"description"`
	Value           float64       `json:"value"`
	Threshold       float64       `json:"threshold"`
	Recommendations []string      `json:"recommendations"`
	SampleTraceIDs  []string      `json:"sample_trace_ids"`
	DetectedAt      time.Time     `json:"detected_at"`
}

// DetectBottlenecks scans every operation with enough samples in the
// current window and flags high latency, high error rates, and latency
// variance suggesting resource contention. O(n log n) per operation over
// bounded windows; intended for a monitoring path, not per-request use.
func (a *Analyzer) DetectBottlenecks() []Detection {
	a.mu.RLock()
	keys := make([]string, 0, len(a.windows))
	for key := range a.windows {
		keys = append(keys, key)
	}
	a.mu.RUnlock()
	sort.Strings(keys)

	now := a.now()
	var detections []Detection
	for _, key := range keys {
		service, operation := splitKey(key)
		metrics := a.windowSnapshot(service, operation)
		if len(metrics) < a.params.SampleSizeThreshold {
			continue
		}
		detections = append(detections, a.inspect(service, operation, metrics, now)...)
	}

	a.bottlenecks.Add(int64(len(detections)))
	for _, d := range detections {
		a.params.Observer.RecordBottleneck(string(d.Type), string(d.Severity))
	}
	if len(detections) > 0 {
		a.logger.Info("bottleneck scan completed",
			zap.Int("detections", len(detections)),
		)
	}
	return detections
}

// inspect evaluates one operation's window against all detection rules.
func (a *Analyzer) inspect(service, operation string, metrics []Metric, now time.Time) []Detection {
	durations := make([]float64, len(metrics))
	errCount := 0
	for i, m := range metrics {
		durations[i] = m.DurationMs
		if m.Err {
			errCount++
		}
	}
	sorted := make([]float64, len(durations))
	copy(sorted, durations)
	sort.Float64s(sorted)

	var detections []Detection

	if p95 := nearestRank(sorted, 95); p95 > a.params.BottleneckThresholdMs {
		severity := SeverityMedium
		if p95 > 2*a.params.BottleneckThresholdMs {
			severity = SeverityHigh
		}
		detections = append(detections, Detection{
			Type:      HighLatency,
			Severity:  severity,
			Service:   service,
			Operation: operation,
			Description: fmt.Sprintf("p95 latency %.1fms exceeds threshold %.1fms",
				p95, a.params.BottleneckThresholdMs),
			Value:     p95,
			Threshold: a.params.BottleneckThresholdMs,
			Recommendations: []string{
				"profile the operation for slow downstream calls",
				"check recent deploys touching this code path",
				"consider caching or batching repeated work",
			},
			SampleTraceIDs: sampleTraces(metrics, func(m Metric) bool {
				return m.DurationMs > a.params.BottleneckThresholdMs
			}),
			DetectedAt: now,
		})
	}

	if errRate := float64(errCount) / float64(len(metrics)); errRate > a.params.ErrorRateThreshold {
		severity := SeverityHigh
		if errRate > 0.2 {
			severity = SeverityCritical
		}
		detections = append(detections, Detection{
			Type:      HighErrorRate,
			Severity:  severity,
			Service:   service,
			Operation: operation,
			Description: fmt.Sprintf("error rate %.1f%% exceeds threshold %.1f%%",
				errRate*100, a.params.ErrorRateThreshold*100),
			Value:     errRate,
			Threshold: a.params.ErrorRateThreshold,
			Recommendations: []string{
				"inspect recent error traces for a common failure",
				"verify downstream dependency health",
				"check for malformed input from a specific caller",
			},
			SampleTraceIDs: sampleTraces(metrics, func(m Metric) bool { return m.Err }),
			DetectedAt:     now,
		})
	}

	if len(durations) > 1 {
		mean := stat.Mean(durations, nil)
		if mean > 0 {
			if cv := stat.StdDev(durations, nil) / mean; cv > 1.0 {
				detections = append(detections, Detection{
					Type:      ResourceContention,
					Severity:  SeverityMedium,
					Service:   service,
					Operation: operation,
					Description: fmt.Sprintf("latency coefficient of variation %.2f suggests contention",
						cv),
					Value:     cv,
					Threshold: 1.0,
					Recommendations: []string{
						"look for lock contention or connection pool exhaustion",
						"check for noisy-neighbor load on shared resources",
					},
					SampleTraceIDs: sampleTraces(metrics, func(m Metric) bool { return true }),
					DetectedAt:     now,
				})
			}
		}
	}

	return detections
}

// sampleTraces returns up to maxSampleTraceIDs trace IDs of the most recent
// metrics matching the predicate.
func sampleTraces(metrics []Metric, match func(Metric) bool) []string {
	var ids []string
	for i := len(metrics) - 1; i >= 0 && len(ids) < maxSampleTraceIDs; i-- {
		if match(metrics[i]) && metrics[i].TraceID.IsValid() {
			ids = append(ids, metrics[i].TraceID.String())
		}
	}
	return ids
}

func splitKey(key string) (service, operation string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
