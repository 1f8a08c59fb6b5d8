package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/venue-locator-service/internal/adapter/geocache"
	httpadapter "github.com/couchcryptid/venue-locator-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/venue-locator-service/internal/adapter/kafka"
	"github.com/couchcryptid/venue-locator-service/internal/adapter/mapbox"
	"github.com/couchcryptid/venue-locator-service/internal/adapter/position"
	"github.com/couchcryptid/venue-locator-service/internal/adapter/stadia"
	"github.com/couchcryptid/venue-locator-service/internal/config"
	"github.com/couchcryptid/venue-locator-service/internal/domain"
	"github.com/couchcryptid/venue-locator-service/internal/locator"
	"github.com/couchcryptid/venue-locator-service/internal/observability"
	"github.com/couchcryptid/venue-locator-service/internal/pipeline"
	"github.com/couchcryptid/venue-locator-service/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, version)
	if err != nil {
		return err
	}

	geocoder := newGeocoder(cfg, logger, metrics)

	positions := position.Chain{position.RequestSource{}}
	if cfg.DefaultPosition != "" {
		fallback, err := position.ParseStatic(cfg.DefaultPosition)
		if err != nil {
			return err
		}
		positions = append(positions, fallback)
		logger.Info("default position configured", "lat", fallback.Position.Latitude, "lon", fallback.Position.Longitude)
	}

	svc := locator.New(geocoder, positions, logger, metrics, locator.WithLanguage(cfg.GeocoderLanguage))

	checks := []sharedobs.ReadinessChecker{}

	var (
		p      *pipeline.Pipeline
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.PipelineEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p = pipeline.New(reader, pipeline.NewTransformer(svc, logger), writer, logger, metrics, cfg.BatchSize)
		checks = append(checks, p)
		logger.Info("activity venue pipeline enabled",
			"source_topic", cfg.KafkaSourceTopic,
			"sink_topic", cfg.KafkaSinkTopic,
		)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, httpadapter.AllReady(checks...), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if p != nil {
		g.Go(func() error { return p.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracing shutdown error", "error", err)
		}
		return nil
	})

	err = g.Wait()

	if reader != nil {
		if cerr := reader.Close(); cerr != nil {
			logger.Error("kafka reader close error", "error", cerr)
		}
	}
	if writer != nil {
		if cerr := writer.Close(); cerr != nil {
			logger.Error("kafka writer close error", "error", cerr)
		}
	}

	logger.Info("shutdown complete")
	return err
}

func newGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	var geocoder domain.Geocoder
	switch cfg.GeocoderProvider {
	case config.ProviderMapbox:
		geocoder = mapbox.NewClient(cfg.MapboxToken, cfg.MapboxBaseURL, cfg.GeocoderTimeout,
			cfg.GeocoderRateLimit, logger, metrics)
	default:
		if cfg.StadiaAPIKey == "" {
			logger.Warn("STADIA_API_KEY is not set; requests are limited to keyless quotas")
		}
		geocoder = stadia.NewClient(cfg.StadiaAPIKey, logger,
			stadia.WithBaseURL(cfg.StadiaBaseURL),
			stadia.WithTimeout(cfg.GeocoderTimeout),
			stadia.WithRateLimit(cfg.GeocoderRateLimit),
			stadia.WithMetrics(metrics),
		)
	}
	logger.Info("geocoder configured",
		"provider", cfg.GeocoderProvider,
		"timeout", cfg.GeocoderTimeout,
		"rate_limit", cfg.GeocoderRateLimit,
	)

	if cfg.GeocoderCacheSize > 0 {
		geocoder = geocache.NewCachedGeocoder(geocoder, cfg.GeocoderCacheSize, cfg.GeocoderCacheTTL,
			clockwork.NewRealClock(), metrics)
		logger.Info("reverse lookup cache enabled", "size", cfg.GeocoderCacheSize, "ttl", cfg.GeocoderCacheTTL)
	}
	return geocoder
}
