package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/helixtrace/helix/internal/analysis"
	"github.com/helixtrace/helix/internal/config"
	"github.com/helixtrace/helix/internal/export"
	"github.com/helixtrace/helix/internal/logging"
	"github.com/helixtrace/helix/internal/monitoring"
	"github.com/helixtrace/helix/internal/sampling"
	"github.com/helixtrace/helix/internal/server"
	"github.com/helixtrace/helix/internal/trace"
)

func main() {
	strategyFile := flag.String("strategy", "", "Path to the sampling strategy YAML (overrides env)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *strategyFile != "" {
		cfg.Sampling.StrategyFile = *strategyFile
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("daemon failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	metrics := monitoring.NewMetrics(nil)

	// Sampler from the strategy file, observed through Prometheus.
	strategy, err := config.LoadSamplingStrategy(cfg.Sampling.StrategyFile)
	if err != nil {
		return err
	}
	sampler, err := sampling.Build(*strategy, logging.Named(logger, "sampler"))
	if err != nil {
		return err
	}
	sampler = monitoring.ObserveSampler(sampler, metrics)
	if lc, ok := sampler.(sampling.Lifecycle); ok {
		lc.Start()
		defer lc.Stop()
	}
	logger.Info("sampler initialized", zap.String("strategy", sampler.Description()))

	// Performance analyzer, fed by both the tracer and the ingest route.
	analyzer, err := analysis.New(analysis.Params{
		WindowCapacity:        cfg.Analyzer.WindowCapacity,
		Window:                time.Duration(cfg.Analyzer.WindowMinutes * float64(time.Minute)),
		SampleSizeThreshold:   cfg.Analyzer.SampleSizeThreshold,
		BottleneckThresholdMs: cfg.Analyzer.BottleneckThresholdMs,
		ErrorRateThreshold:    cfg.Analyzer.ErrorRateThreshold,
		Observer:              metrics,
	}, logging.Named(logger, "analyzer"))
	if err != nil {
		return err
	}

	// Exporter behind a circuit breaker.
	var exporter trace.Exporter = export.NewNoop()
	if cfg.Export.LogSpans {
		exporter = export.NewLog(logging.Named(logger, "export"))
	}
	breaker, err := export.NewBreaker(exporter, export.BreakerSettings{
		FailureThreshold: cfg.Export.BreakerThreshold,
		Recorder:         metrics,
	}, logging.Named(logger, "breaker"))
	if err != nil {
		return err
	}

	tracer, err := trace.New(trace.Config{
		ServiceName: cfg.Service.Name,
		Sampler:     sampler,
		Exporter:    breaker,
		Processors:  []trace.Processor{analyzer},
		Observer:    metrics,
		Logger:      logging.Named(logger, "tracer"),
		QueueSize:   cfg.Export.QueueSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := tracer.Close(); err != nil {
			logger.Error("tracer shutdown failed", zap.Error(err))
		}
	}()

	srv := server.New(cfg, server.Deps{
		Sampler:  sampler,
		Analyzer: analyzer,
		Tracer:   tracer,
		Metrics:  metrics,
		Logger:   logging.Named(logger, "server"),
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}
