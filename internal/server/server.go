package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/helixtrace/helix/internal/analysis"
	"github.com/helixtrace/helix/internal/config"
	"github.com/helixtrace/helix/internal/monitoring"
	"github.com/helixtrace/helix/internal/sampling"
	"github.com/helixtrace/helix/internal/trace"
)

// Deps carries the wired components the server exposes.
type Deps struct {
	Sampler  sampling.Sampler
	Analyzer *analysis.Analyzer
	Tracer   *trace.Tracer
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
}

// Server wraps the HTTP server and its routes.
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// New creates a server instance and registers all routes.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestID())
	if deps.Metrics != nil {
		router.Use(monitoring.Middleware(deps.Metrics))
	}
	router.Use(CORS())

	handlers := NewHandlers(deps.Sampler, deps.Analyzer, deps.Tracer, logger)

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.GET("/sampling/stats", handlers.SamplingStats)
	v1.POST("/sampling/stats/reset", handlers.ResetSamplingStats)
	v1.GET("/analysis/summary", handlers.AnalysisSummary)
	v1.GET("/analysis/latency", handlers.AnalysisLatency)
	v1.GET("/analysis/bottlenecks", handlers.AnalysisBottlenecks)

	ingest := v1.Group("/spans")
	if cfg.RateLimit.Enabled {
		logger.Info("ingest rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		ingest.Use(RateLimit(RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	ingest.POST("", handlers.IngestSpans)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
