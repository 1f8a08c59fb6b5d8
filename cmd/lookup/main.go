// Command lookup queries the configured geocoding provider the same way the
// service does and prints the ranked results as JSON. Provider settings come
// from the same environment variables as the service.
//
// Usage:
//
//	go run ./cmd/lookup -q "badminton hall" -near 3.0567,101.6851
//	go run ./cmd/lookup -reverse 3.0545,101.6912
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/venue-locator-service/internal/adapter/mapbox"
	"github.com/couchcryptid/venue-locator-service/internal/adapter/position"
	"github.com/couchcryptid/venue-locator-service/internal/adapter/stadia"
	"github.com/couchcryptid/venue-locator-service/internal/config"
	"github.com/couchcryptid/venue-locator-service/internal/domain"
	"github.com/couchcryptid/venue-locator-service/internal/locator"
	"github.com/couchcryptid/venue-locator-service/internal/observability"
)

func main() {
	query := flag.String("q", "", "venue search text")
	limit := flag.Int("limit", locator.DefaultLimit, "maximum number of results")
	near := flag.String("near", "", "rank results by distance from lat,lon")
	reverse := flag.String("reverse", "", "resolve the place at lat,lon instead of searching")
	verbose := flag.Bool("v", false, "log provider calls to stderr")
	flag.Parse()

	if (*query == "") == (*reverse == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -q or -reverse is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	var positions domain.PositionSource
	if *near != "" {
		src, err := position.ParseStatic(*near)
		if err != nil {
			fatal(fmt.Errorf("-near: %w", err))
		}
		positions = src
	}

	svc := locator.New(newGeocoder(cfg, logger, metrics), positions, logger, metrics,
		locator.WithLanguage(cfg.GeocoderLanguage))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *reverse != "" {
		pt, err := position.ParseStatic(*reverse)
		if err != nil {
			fatal(fmt.Errorf("-reverse: %w", err))
		}
		place, ok := svc.ReverseLookup(ctx, pt.Position.Latitude, pt.Position.Longitude)
		if !ok {
			fmt.Fprintln(os.Stderr, "no match")
			os.Exit(1)
		}
		if err := enc.Encode(place); err != nil {
			fatal(err)
		}
		return
	}

	if err := enc.Encode(svc.Search(ctx, *query, *limit)); err != nil {
		fatal(err)
	}
}

func newGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	if cfg.GeocoderProvider == config.ProviderMapbox {
		return mapbox.NewClient(cfg.MapboxToken, cfg.MapboxBaseURL, cfg.GeocoderTimeout,
			cfg.GeocoderRateLimit, logger, metrics)
	}
	return stadia.NewClient(cfg.StadiaAPIKey, logger,
		stadia.WithBaseURL(cfg.StadiaBaseURL),
		stadia.WithTimeout(cfg.GeocoderTimeout),
		stadia.WithMetrics(metrics),
	)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
