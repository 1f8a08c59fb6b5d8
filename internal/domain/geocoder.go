package domain

import "context"

// Result layers accepted by place searches.
const (
	LayerVenue   = "venue"
	LayerAddress = "address"
)

// PlaceLayers restricts searches to results a player can travel to.
var PlaceLayers = []string{LayerVenue, LayerAddress}

// SearchParams describes a forward (text) geocoding request.
type SearchParams struct {
	Text     string
	Language string
	Size     int
	Layers   []string

	// Focus biases ranking toward a point without filtering by radius.
	Focus *DevicePosition
}

// ReverseParams describes a reverse geocoding request.
type ReverseParams struct {
	Latitude  float64
	Longitude float64
	Language  string
	Size      int
}

// Geocoder is a geocoding provider.
type Geocoder interface {
	// Search converts free text to candidate places.
	Search(ctx context.Context, p SearchParams) (FeatureCollection, error)

	// Reverse converts a point to the places at it.
	Reverse(ctx context.Context, p ReverseParams) (FeatureCollection, error)
}
