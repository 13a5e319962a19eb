package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
)

// KPIAnalyzer implements Analyzer using the domain engine with optional
// reverse geocoding of congested sites.
type KPIAnalyzer struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewAnalyzer creates a KPIAnalyzer. Pass a nil geocoder to disable
// geo enrichment.
func NewAnalyzer(geocoder domain.Geocoder, logger *slog.Logger) *KPIAnalyzer {
	return &KPIAnalyzer{
		geocoder: geocoder,
		logger:   logger,
	}
}

func (a *KPIAnalyzer) Analyze(ctx context.Context, rows []domain.MetricRow, params domain.Params) (domain.Report, error) {
	report, err := domain.Analyze(rows, params)
	if err != nil {
		return domain.Report{}, err
	}

	report.GeoPoints = domain.EnrichGeoPoints(ctx, report.GeoPoints, a.geocoder, a.logger)
	return report, nil
}
