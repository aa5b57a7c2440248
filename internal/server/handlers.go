package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helixtrace/helix/internal/analysis"
	"github.com/helixtrace/helix/internal/sampling"
	"github.com/helixtrace/helix/internal/shared/id"
)

// Handlers exposes the daemon's query and ingest surface.
type Handlers struct {
	sampler  sampling.Sampler
	analyzer *analysis.Analyzer
	tracer   spanCounter
	logger   *zap.Logger
}

// spanCounter is the slice of the tracer the handlers need.
type spanCounter interface {
	Counts() (started, finished, dropped int64)
}

// NewHandlers creates the handler set.
func NewHandlers(sampler sampling.Sampler, analyzer *analysis.Analyzer, tracer spanCounter, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		sampler:  sampler,
		analyzer: analyzer,
		tracer:   tracer,
		logger:   logger,
	}
}

// Health reports liveness plus span pipeline counters.
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"service": "helix",
	}
	if h.tracer != nil {
		started, finished, dropped := h.tracer.Counts()
		resp["spans"] = gin.H{
			"started":  started,
			"finished": finished,
			"dropped":  dropped,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// childStatser is satisfied by composite samplers and wrappers that
// forward to one.
type childStatser interface {
	ChildStats() map[string]sampling.Stats
}

// SamplingStats returns the sampler's decision counters, including
// per-child breakdowns for composite strategies.
func (h *Handlers) SamplingStats(c *gin.Context) {
	resp := gin.H{
		"strategy": h.sampler.Description(),
		"stats":    h.sampler.Stats(),
	}
	if cs, ok := h.sampler.(childStatser); ok {
		if children := cs.ChildStats(); len(children) > 0 {
			resp["children"] = children
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ResetSamplingStats zeroes the sampler's decision counters and returns the
// fresh snapshot.
func (h *Handlers) ResetSamplingStats(c *gin.Context) {
	sr, ok := h.sampler.(sampling.StatsResetter)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{
			"error": "sampler does not support stats reset",
		})
		return
	}
	sr.ResetStats()
	h.logger.Info("sampling stats reset", zap.String("strategy", h.sampler.Description()))
	c.JSON(http.StatusOK, gin.H{
		"strategy": h.sampler.Description(),
		"stats":    h.sampler.Stats(),
	})
}

// AnalysisSummary returns the analyzer-wide counters.
func (h *Handlers) AnalysisSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.analyzer.Summary())
}

// AnalysisLatency returns the latency distribution for one operation.
func (h *Handlers) AnalysisLatency(c *gin.Context) {
	service := c.Query("service")
	operation := c.Query("operation")
	if service == "" || operation == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "service and operation query parameters are required",
		})
		return
	}

	report, err := h.analyzer.AnalyzeLatency(service, operation)
	if err != nil {
		if errors.Is(err, analysis.ErrInsufficientData) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// AnalysisBottlenecks runs a detection scan and returns the findings.
func (h *Handlers) AnalysisBottlenecks(c *gin.Context) {
	detections := h.analyzer.DetectBottlenecks()
	c.JSON(http.StatusOK, gin.H{
		"count":       len(detections),
		"bottlenecks": detections,
	})
}

// spanRecord is one ingested span observation.
type spanRecord struct {
	TraceID    string            `json:"trace_id"`
	Service    string            `json:"service" binding:"required"`
	Operation  string            `json:"operation" binding:"required"`
	DurationMs float64           `json:"duration_ms"`
	Error      bool              `json:"error"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes"`
}

type ingestRequest struct {
	Spans []spanRecord `json:"spans" binding:"required"`
}

// IngestSpans accepts externally reported span observations and feeds the
// analyzer. Records with malformed trace IDs are rejected individually
// rather than failing the batch.
func (h *Handlers) IngestSpans(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accepted, rejected := 0, 0
	for _, record := range req.Spans {
		var traceID id.TraceID
		if record.TraceID != "" {
			parsed, err := id.TraceIDFromHex(record.TraceID)
			if err != nil {
				rejected++
				continue
			}
			traceID = parsed
		}
		if record.Service == "" || record.Operation == "" || record.DurationMs < 0 {
			rejected++
			continue
		}

		h.analyzer.Record(analysis.Metric{
			Timestamp:  record.Timestamp,
			Service:    record.Service,
			Operation:  record.Operation,
			DurationMs: record.DurationMs,
			Err:        record.Error,
			TraceID:    traceID,
			Attributes: record.Attributes,
		})
		accepted++
	}

	if rejected > 0 {
		h.logger.Debug("span ingest partially rejected",
			zap.Int("accepted", accepted),
			zap.Int("rejected", rejected),
		)
	}
	c.JSON(http.StatusAccepted, gin.H{
		"accepted": accepted,
		"rejected": rejected,
	})
}
