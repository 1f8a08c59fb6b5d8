// Package locator ranks geocoding candidates by distance from the caller.
package locator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/couchcryptid/venue-locator-service/internal/domain"
	"github.com/couchcryptid/venue-locator-service/internal/observability"
)

const (
	// DefaultLimit caps search results when the caller passes no limit.
	DefaultLimit = 5

	// MinQueryLength is the shortest query, in characters, sent to the provider.
	MinQueryLength = 2

	defaultLanguage = "en"
)

var tracer = otel.Tracer("github.com/couchcryptid/venue-locator-service/internal/locator")

// Service turns free-text queries into places, nearest first when the
// device position is known. It never returns errors: failures degrade to
// empty results and are logged.
type Service struct {
	geocoder  domain.Geocoder
	positions domain.PositionSource
	language  string
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLanguage sets the language hint sent to the provider.
func WithLanguage(lang string) Option {
	return func(s *Service) {
		if lang != "" {
			s.language = lang
		}
	}
}

// New creates a Service. positions may be nil, in which case results are
// never distance-ranked.
func New(geocoder domain.Geocoder, positions domain.PositionSource, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		geocoder:  geocoder,
		positions: positions,
		language:  defaultLanguage,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveDevicePosition reads a single position fix. The second result is
// false when permission is missing, the source fails, or the fix is out of
// range.
func (s *Service) ResolveDevicePosition(ctx context.Context) (pos domain.DevicePosition, ok bool) {
	if s.positions == nil {
		s.metrics.PositionResolutions.WithLabelValues("no_source").Inc()
		return domain.DevicePosition{}, false
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("position source panicked", "panic", fmt.Sprint(r))
			s.metrics.PositionResolutions.WithLabelValues("error").Inc()
			pos, ok = domain.DevicePosition{}, false
		}
	}()

	perm, err := s.positions.RequestPermission(ctx)
	if err != nil {
		s.logger.Warn("location permission request failed", "error", err)
		s.metrics.PositionResolutions.WithLabelValues("error").Inc()
		return domain.DevicePosition{}, false
	}
	if perm != domain.PermissionGranted {
		s.logger.Debug("location permission not granted", "permission", perm.String())
		s.metrics.PositionResolutions.WithLabelValues("denied").Inc()
		return domain.DevicePosition{}, false
	}

	pos, err = s.positions.CurrentPosition(ctx)
	if err != nil {
		s.logger.Warn("read device position failed", "error", err)
		s.metrics.PositionResolutions.WithLabelValues("error").Inc()
		return domain.DevicePosition{}, false
	}
	if !pos.Valid() {
		s.logger.Warn("device position out of range", "lat", pos.Latitude, "lon", pos.Longitude)
		s.metrics.PositionResolutions.WithLabelValues("invalid").Inc()
		return domain.DevicePosition{}, false
	}

	s.metrics.PositionResolutions.WithLabelValues("granted").Inc()
	return pos, true
}

// Search returns at most limit places matching query. A limit of zero or
// less means DefaultLimit. The result is never nil.
func (s *Service) Search(ctx context.Context, query string, limit int) []domain.Coordinate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if utf8.RuneCountInString(query) < MinQueryLength {
		s.metrics.SearchRequests.WithLabelValues("short_query").Inc()
		return []domain.Coordinate{}
	}

	ctx, span := tracer.Start(ctx, "locator.Search", trace.WithAttributes(
		attribute.Int("locator.limit", limit),
		attribute.Int("locator.query_length", len(query)),
	))
	defer span.End()

	pos, havePos := s.ResolveDevicePosition(ctx)
	span.SetAttributes(attribute.Bool("locator.position_known", havePos))

	params := domain.SearchParams{
		Text:     query,
		Language: s.language,
		Size:     limit,
		Layers:   domain.PlaceLayers,
	}
	if havePos {
		params.Focus = &pos
	}

	fc, err := s.geocoder.Search(ctx, params)
	if err != nil {
		s.logger.Warn("place search failed", "query", query, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider search failed")
		s.metrics.SearchRequests.WithLabelValues("error").Inc()
		return []domain.Coordinate{}
	}

	results, skipped := domain.NormalizeFeatures(fc)
	if skipped > 0 {
		s.logger.Debug("dropped unplaceable features", "query", query, "skipped", skipped)
	}
	if len(results) > limit {
		results = results[:limit]
	}

	if havePos {
		rank(results, pos)
	}

	outcome := "results"
	if len(results) == 0 {
		outcome = "empty"
	}
	s.metrics.SearchRequests.WithLabelValues(outcome).Inc()
	s.metrics.SearchResults.Observe(float64(len(results)))
	span.SetAttributes(attribute.Int("locator.results", len(results)))
	return results
}

// rank sets DistanceKm on every candidate and sorts nearest first. Ties keep
// provider order.
func rank(results []domain.Coordinate, from domain.DevicePosition) {
	for i := range results {
		d := domain.DistanceKm(from, results[i].Position())
		results[i].DistanceKm = &d
	}
	slices.SortStableFunc(results, func(a, b domain.Coordinate) int {
		switch {
		case *a.DistanceKm < *b.DistanceKm:
			return -1
		case *a.DistanceKm > *b.DistanceKm:
			return 1
		default:
			return 0
		}
	})
}

// ReverseLookup returns the place at the given point. The second result is
// false when the point is out of range, nothing is there, or the provider
// fails.
func (s *Service) ReverseLookup(ctx context.Context, lat, lon float64) (domain.Coordinate, bool) {
	if !domain.ValidLatLon(lat, lon) {
		s.metrics.ReverseLookups.WithLabelValues("invalid").Inc()
		return domain.Coordinate{}, false
	}

	ctx, span := tracer.Start(ctx, "locator.ReverseLookup")
	defer span.End()

	fc, err := s.geocoder.Reverse(ctx, domain.ReverseParams{
		Latitude:  lat,
		Longitude: lon,
		Language:  s.language,
		Size:      1,
	})
	if err != nil {
		s.logger.Warn("reverse lookup failed", "lat", lat, "lon", lon, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider reverse failed")
		s.metrics.ReverseLookups.WithLabelValues("error").Inc()
		return domain.Coordinate{}, false
	}

	results, _ := domain.NormalizeFeatures(fc)
	if len(results) == 0 {
		s.metrics.ReverseLookups.WithLabelValues("not_found").Inc()
		return domain.Coordinate{}, false
	}

	s.metrics.ReverseLookups.WithLabelValues("found").Inc()
	return results[0], true
}
