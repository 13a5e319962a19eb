package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/noc-kpi-engine/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/noc-kpi-engine/internal/adapter/kafka"
	"github.com/couchcryptid/noc-kpi-engine/internal/adapter/mapbox"
	"github.com/couchcryptid/noc-kpi-engine/internal/config"
	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
	"github.com/couchcryptid/noc-kpi-engine/internal/observability"
	"github.com/couchcryptid/noc-kpi-engine/internal/pipeline"
)

func main() {
	// A local .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var (
		writer *kafkaadapter.Writer
		loader pipeline.AlarmLoader
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loader = writer
		logger.Info("alarm publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlarmTopic)
	} else {
		logger.Info("alarm publishing disabled")
	}

	p := pipeline.New(pipeline.NewAnalyzer(geocoder, logger), loader, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, httpadapter.APIConfig{
		Defaults:       cfg.Params(),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Analyze the startup source, if any. Readiness flips once it finishes,
	// whether or not it succeeded.
	go p.Warmup(ctx, cfg.SourceFile, cfg.Params())

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
