package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/sismos-dashboard/internal/adapter/http"
	"github.com/couchcryptid/sismos-dashboard/internal/adapter/gael"
	kafkaadapter "github.com/couchcryptid/sismos-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/sismos-dashboard/internal/adapter/live"
	"github.com/couchcryptid/sismos-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/sismos-dashboard/internal/config"
	"github.com/couchcryptid/sismos-dashboard/internal/domain"
	"github.com/couchcryptid/sismos-dashboard/internal/observability"
	"github.com/couchcryptid/sismos-dashboard/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
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

	// Publishing is optional; a nil publisher keeps the dashboard standalone.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	fetcher := gael.NewClient(cfg.APIURL, cfg.APITimeout, metrics, logger)
	cleaner := pipeline.NewCleaner(domain.NewImputer(cfg.RandomSeed, nil), geocoder, logger)
	refresher := pipeline.New(fetcher, cleaner, publisher, cfg.RefreshInterval, logger, metrics)

	hub := live.NewHub(logger, metrics)
	refresher.Subscribe(hub.OnRefresh)

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:                cfg.HTTPAddr,
		SourceURL:           cfg.APIURL,
		MapboxToken:         cfg.MapboxToken,
		DefaultMinMagnitude: cfg.DefaultMinMagnitude,
		Live:                hub,
	}, refresher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()

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
