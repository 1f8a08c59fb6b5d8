package domain

import (
	"context"
	"log/slog"
)

// PlaceLocator resolves venues. It never fails: absence is reported as an
// empty slice or false.
type PlaceLocator interface {
	Search(ctx context.Context, query string, limit int) []Coordinate
	ReverseLookup(ctx context.Context, lat, lon float64) (Coordinate, bool)
}

// EnrichActivityVenue completes whichever half of an activity's venue is
// missing. If locator is nil the activity is returned unchanged apart from
// EnrichedAt. Lookups that find nothing set GeoSource to "failed".
func EnrichActivityVenue(ctx context.Context, a ActivityVenue, locator PlaceLocator, logger *slog.Logger) ActivityVenue {
	a.EnrichedAt = clock.Now().UTC()
	if locator == nil {
		return a
	}

	hasCoords := a.HasCoordinates()
	hasLabel := a.HasLabel()

	switch {
	// Forward: venue label → coordinates.
	case hasLabel && !hasCoords:
		results := locator.Search(ctx, a.Location, 1)
		if len(results) == 0 {
			logger.Warn("forward venue lookup found nothing",
				"activity_id", a.ID,
				"location", a.Location,
			)
			a.GeoSource = GeoSourceFailed
			return a
		}
		place := results[0]
		lat, lon := place.Latitude, place.Longitude
		a.LocationLat = &lat
		a.LocationLon = &lon
		applyPlace(&a, place)
		a.GeoSource = GeoSourceForward
		return a

	// Reverse: coordinates → venue label.
	case hasCoords && !hasLabel:
		place, ok := locator.ReverseLookup(ctx, *a.LocationLat, *a.LocationLon)
		if !ok {
			logger.Warn("reverse venue lookup found nothing",
				"activity_id", a.ID,
				"lat", *a.LocationLat,
				"lon", *a.LocationLon,
			)
			a.GeoSource = GeoSourceFailed
			return a
		}
		a.Location = place.Label
		applyPlace(&a, place)
		a.GeoSource = GeoSourceReverse
		return a
	}

	a.GeoSource = GeoSourceOriginal
	return a
}

func applyPlace(a *ActivityVenue, place Coordinate) {
	a.PlaceID = place.ID
	a.PlaceLayer = place.Layer
	a.City = place.City
	a.Region = place.Region
	a.Country = place.Country
}
