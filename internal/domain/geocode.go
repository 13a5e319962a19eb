package domain

import (
	"context"
	"log/slog"
)

// GeoPoints returns a map point for every row with prb >= threshold that
// carries coordinates, in input order.
func GeoPoints(rows []ClassifiedRow, threshold float64) []GeoPoint {
	points := make([]GeoPoint, 0)
	for _, row := range rows {
		if row.PRB < threshold || !row.HasCoordinates() {
			continue
		}
		points = append(points, GeoPoint{
			Site:   row.Site,
			Sector: row.Sector,
			Date:   row.Date,
			PRB:    row.PRB,
			Lat:    *row.Lat,
			Lon:    *row.Lon,
		})
	}
	return points
}

// EnrichGeoPoints reverse-geocodes each point's coordinates. If geocoder is
// nil the points are returned untouched; a failed lookup marks the point
// GeoSource "failed" and enrichment continues with the next one.
func EnrichGeoPoints(ctx context.Context, points []GeoPoint, geocoder Geocoder, logger *slog.Logger) []GeoPoint {
	if geocoder == nil {
		return points
	}

	out := make([]GeoPoint, len(points))
	for i, p := range points {
		out[i] = enrichGeoPoint(ctx, p, geocoder, logger)
	}
	return out
}

func enrichGeoPoint(ctx context.Context, p GeoPoint, geocoder Geocoder, logger *slog.Logger) GeoPoint {
	result, err := geocoder.ReverseGeocode(ctx, p.Lat, p.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"site", p.Site,
			"sector", p.Sector,
			"lat", p.Lat,
			"lon", p.Lon,
			"error", err,
		)
		p.GeoSource = "failed"
		return p
	}
	if result.FormattedAddress == "" {
		p.GeoSource = "original"
		return p
	}

	p.FormattedAddress = result.FormattedAddress
	p.PlaceName = result.PlaceName
	p.Region = result.Region
	p.GeoConfidence = result.Confidence
	p.GeoSource = "reverse"
	return p
}
