package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Values of ActivityVenue.GeoSource.
const (
	GeoSourceForward  = "forward"
	GeoSourceReverse  = "reverse"
	GeoSourceOriginal = "original"
	GeoSourceFailed   = "failed"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ActivityVenue is the venue part of a club activity row, as published by the
// app backend when an activity is created or edited.
type ActivityVenue struct {
	ID          string   `json:"id"`
	ClubID      string   `json:"club_id"`
	Title       string   `json:"name,omitempty"`
	Location    string   `json:"location"`
	LocationLat *float64 `json:"location_lat"`
	LocationLon *float64 `json:"location_lon"`

	// Enrichment fields.
	PlaceID    string    `json:"place_id,omitempty"`
	PlaceLayer string    `json:"place_layer,omitempty"`
	City       string    `json:"city,omitempty"`
	Region     string    `json:"region,omitempty"`
	Country    string    `json:"country,omitempty"`
	GeoSource  string    `json:"geo_source,omitempty"`
	EnrichedAt time.Time `json:"enriched_at"`
}

// HasCoordinates reports whether both coordinates are set and in range.
func (a ActivityVenue) HasCoordinates() bool {
	return a.LocationLat != nil && a.LocationLon != nil && ValidLatLon(*a.LocationLat, *a.LocationLon)
}

// HasLabel reports whether the activity carries a venue label.
func (a ActivityVenue) HasLabel() bool {
	return strings.TrimSpace(a.Location) != ""
}

// ParseActivityVenue deserializes a RawEvent's value into an ActivityVenue.
func ParseActivityVenue(raw RawEvent) (ActivityVenue, error) {
	var a ActivityVenue
	if err := json.Unmarshal(raw.Value, &a); err != nil {
		return ActivityVenue{}, fmt.Errorf("parse activity venue: %w", err)
	}
	if a.ID == "" {
		return ActivityVenue{}, errors.New("parse activity venue: missing id")
	}
	return a, nil
}
