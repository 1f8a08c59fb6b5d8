package domain

// Coordinate is a normalized geocoding candidate.
type Coordinate struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Layer          string  `json:"layer"`
	Label          string  `json:"label"`
	CoarseLocation string  `json:"coarse_location"`
	Street         string  `json:"street"`
	City           string  `json:"city"`
	Region         string  `json:"region"`
	Country        string  `json:"country"`
	PostalCode     string  `json:"postal_code"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`

	// DistanceKm is set only when the result was ranked against a known
	// device position.
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Position returns the coordinate's point.
func (c Coordinate) Position() DevicePosition {
	return DevicePosition{Latitude: c.Latitude, Longitude: c.Longitude}
}

// DevicePosition is a single location fix. It has no identity beyond the call
// that produced it.
type DevicePosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the position lies within WGS-84 bounds.
func (p DevicePosition) Valid() bool {
	return ValidLatLon(p.Latitude, p.Longitude)
}

// ValidLatLon reports whether lat is in [-90, 90] and lon in [-180, 180].
// NaN fails both comparisons and is rejected.
func ValidLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
