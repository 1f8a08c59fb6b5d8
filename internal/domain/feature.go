package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFeature is returned by NormalizeFeature for features that cannot
// be placed on a map.
var ErrInvalidFeature = errors.New("invalid feature")

// FeatureCollection is a provider response.
type FeatureCollection struct {
	Features []RawFeature `json:"features"`
}

// RawFeature is a GeoJSON feature in the Pelias property layout. Any nested
// object may be absent.
type RawFeature struct {
	ID         string         `json:"id,omitempty"`
	Geometry   *RawGeometry   `json:"geometry,omitempty"`
	Properties *RawProperties `json:"properties,omitempty"`
}

// RawGeometry holds a GeoJSON point as [longitude, latitude].
type RawGeometry struct {
	Type        string    `json:"type,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

// RawProperties are the Pelias feature properties this service reads.
type RawProperties struct {
	GID                  string                `json:"gid,omitempty"`
	Layer                string                `json:"layer,omitempty"`
	Name                 string                `json:"name,omitempty"`
	Label                string                `json:"label,omitempty"`
	FormattedAddressLine string                `json:"formatted_address_line,omitempty"`
	CoarseLocation       string                `json:"coarse_location,omitempty"`
	Street               string                `json:"street,omitempty"`
	Locality             string                `json:"locality,omitempty"`
	Region               string                `json:"region,omitempty"`
	Country              string                `json:"country,omitempty"`
	PostalCode           string                `json:"postalcode,omitempty"`
	AddressComponents    *RawAddressComponents `json:"address_components,omitempty"`
	Context              *RawContext           `json:"context,omitempty"`
}

// RawAddressComponents is the structured address block.
type RawAddressComponents struct {
	Number     string `json:"number,omitempty"`
	Street     string `json:"street,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// RawContext holds the administrative hierarchy of a feature.
type RawContext struct {
	WhosOnFirst *RawWhosOnFirst `json:"whosonfirst,omitempty"`
}

// RawWhosOnFirst is the Who's On First hierarchy.
type RawWhosOnFirst struct {
	Locality *RawPlaceRef `json:"locality,omitempty"`
	Region   *RawPlaceRef `json:"region,omitempty"`
	Country  *RawPlaceRef `json:"country,omitempty"`
}

// RawPlaceRef names one level of the hierarchy.
type RawPlaceRef struct {
	GID  string `json:"gid,omitempty"`
	Name string `json:"name,omitempty"`
}

// NormalizeFeature maps a provider feature onto a Coordinate. String fields
// missing from the feature become "". Features without a point inside WGS-84
// bounds are rejected with ErrInvalidFeature.
func NormalizeFeature(f RawFeature) (Coordinate, error) {
	if f.Geometry == nil || len(f.Geometry.Coordinates) < 2 {
		return Coordinate{}, fmt.Errorf("%w: missing point geometry", ErrInvalidFeature)
	}
	lon, lat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
	if !ValidLatLon(lat, lon) {
		return Coordinate{}, fmt.Errorf("%w: point (%g, %g) out of range", ErrInvalidFeature, lat, lon)
	}

	var p RawProperties
	if f.Properties != nil {
		p = *f.Properties
	}
	var ac RawAddressComponents
	if p.AddressComponents != nil {
		ac = *p.AddressComponents
	}
	wof := whosOnFirst(p.Context)

	return Coordinate{
		ID:             firstNonEmpty(p.GID, f.ID),
		Name:           strings.TrimSpace(p.Name),
		Layer:          p.Layer,
		Label:          firstNonEmpty(p.FormattedAddressLine, p.Label, p.Name),
		CoarseLocation: strings.TrimSpace(p.CoarseLocation),
		Street:         firstNonEmpty(ac.Street, p.Street),
		City:           firstNonEmpty(placeName(wof.Locality), p.Locality),
		Region:         firstNonEmpty(placeName(wof.Region), p.Region),
		Country:        firstNonEmpty(placeName(wof.Country), p.Country),
		PostalCode:     firstNonEmpty(ac.PostalCode, p.PostalCode),
		Latitude:       lat,
		Longitude:      lon,
	}, nil
}

// NormalizeFeatures normalizes a collection, skipping invalid features. The
// returned slice is never nil. The second value counts skipped features.
func NormalizeFeatures(fc FeatureCollection) ([]Coordinate, int) {
	out := make([]Coordinate, 0, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		c, err := NormalizeFeature(f)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, c)
	}
	return out, skipped
}

func whosOnFirst(ctx *RawContext) RawWhosOnFirst {
	if ctx == nil || ctx.WhosOnFirst == nil {
		return RawWhosOnFirst{}
	}
	return *ctx.WhosOnFirst
}

func placeName(ref *RawPlaceRef) string {
	if ref == nil {
		return ""
	}
	return ref.Name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
