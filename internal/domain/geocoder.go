package domain

import "context"

// GeocodingResult is the place a provider resolved for a site's coordinates.
// A zero FormattedAddress means the provider had no match.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	// Region is the administrative area NOC field teams are dispatched by,
	// e.g. a province. Empty when the provider does not report one.
	Region     string
	Confidence float64 // 0.0–1.0
}

// Geocoder resolves site coordinates for the congestion map.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
