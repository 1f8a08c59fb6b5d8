// Package domain models places returned by geocoding providers and the club
// activity records whose venues are resolved against them.
//
// # Provider Data
//
// Both supported providers answer with GeoJSON feature collections. Stadia
// Maps runs Pelias, whose features carry the properties this package is
// shaped around; the Mapbox adapter translates its own features into the same
// [RawFeature] form so the rest of the service sees one provider shape.
//
// Coordinate order:
//
//	GeoJSON stores positions as [longitude, latitude].
//	[Coordinate] and [DevicePosition] always spell the fields out by name.
//
// Layers (Pelias):
//
//	venue     points of interest, e.g. a sports hall
//	address   a street address
//	street, locality, region, country, ...  administrative results
//
//	Searches only accept "venue" and "address" (see [PlaceLayers]); a club
//	activity needs somewhere to stand, not a district.
//
// Address components may come from three places, in order of preference:
//
//	properties.address_components   structured, newest API versions
//	properties.context.whosonfirst  Who's On First hierarchy (locality, region, country)
//	flat properties                 street, locality, region, country, postalcode
//
// # Normalization
//
// [NormalizeFeature] is the only place provider fields are interpreted.
// Every string field of [Coordinate] is the empty string when the provider
// did not supply it, so display code can concatenate them freely. A feature
// without a usable point is rejected rather than placed at (0, 0).
//
// # Distance
//
// [DistanceKm] is the haversine great-circle distance on a sphere of radius
// 6371 km. It is accurate enough to order venues by proximity; it is not a
// geodesic on the WGS-84 ellipsoid.
package domain
