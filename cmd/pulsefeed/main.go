package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/pulse-feed-service/internal/adapter/feeds"
	httpadapter "github.com/couchcryptid/pulse-feed-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/pulse-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/pulse-feed-service/internal/adapter/mapbox"
	"github.com/couchcryptid/pulse-feed-service/internal/adapter/postgres"
	"github.com/couchcryptid/pulse-feed-service/internal/aggregator"
	"github.com/couchcryptid/pulse-feed-service/internal/classify"
	"github.com/couchcryptid/pulse-feed-service/internal/config"
	"github.com/couchcryptid/pulse-feed-service/internal/domain"
	"github.com/couchcryptid/pulse-feed-service/internal/observability"
	"github.com/couchcryptid/pulse-feed-service/internal/reports"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open report store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.ReverseGeocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// Report publishing is optional; a nil publisher keeps reports local.
	var publisher reports.Publisher
	var kafkaPublisher *kafkaadapter.ReportPublisher
	if cfg.PublishingEnabled() {
		kafkaPublisher = kafkaadapter.NewReportPublisher(cfg.KafkaBrokers, cfg.KafkaReportTopic, logger)
		publisher = kafkaPublisher
		logger.Info("report publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaReportTopic)
	}

	live := buildFeeds(cfg, logger)
	agg := aggregator.New(store, live, logger, metrics)
	submitter := reports.NewService(store, classify.NewKeyword(), geocoder, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Updates:   agg,
		Feeds:     []aggregator.Fetcher{live.Quake, live.Alert, live.Event, live.Hotspot},
		Reports:   store,
		Submitter: submitter,
		Ready:     store,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// openStore connects to PostgreSQL, waits for it to accept connections and
// creates the schema.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*postgres.Store, error) {
	store, err := postgres.New(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, logger)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := store.WaitReady(waitCtx, 5*time.Second); err != nil {
		store.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func buildFeeds(cfg *config.Config, logger *slog.Logger) aggregator.Feeds {
	feedConfig := func(f config.Feed) feeds.Config {
		return feeds.Config{URL: f.URL, Timeout: f.Timeout, UserAgent: cfg.FeedUserAgent}
	}
	if cfg.FIRMSMapKey == "" {
		logger.Info("fire hotspots disabled", "reason", feeds.MissingKeyNote)
	}
	return aggregator.Feeds{
		Quake:   feeds.NewQuakeFetcher(feedConfig(cfg.Feeds.Quake), logger),
		Alert:   feeds.NewAlertFetcher(feedConfig(cfg.Feeds.Alert), logger),
		Event:   feeds.NewEventFetcher(feedConfig(cfg.Feeds.Event), logger),
		Hotspot: feeds.NewHotspotFetcher(feedConfig(cfg.Feeds.Hotspot), cfg.FIRMSMapKey, cfg.HotspotMaxRows, logger),
	}
}
