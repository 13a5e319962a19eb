package domain

import (
	"math"
	"slices"

	"github.com/jonboulle/clockwork"
)

// clock stamps Report.GeneratedAt.
var clock = clockwork.NewRealClock()

// SetClock swaps the report time source, letting fixtures and tests produce
// byte-stable reports. Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Analyze runs the full engine over a batch of rows: validation, status
// classification, consecutive-run detection, the availability rule, major
// alarms, warnings, ranking, geo points, and the recommendation.
//
// The input slice is not modified. Rows in the report are in chronological
// order; rows sharing a date keep their input order.
func Analyze(rows []MetricRow, p Params) (Report, error) {
	if err := p.Validate(); err != nil {
		return Report{}, err
	}
	for i := range rows {
		if err := ValidateRow(i, rows[i]); err != nil {
			return Report{}, err
		}
	}

	sorted := slices.Clone(rows)
	SortByDate(sorted)

	classified := ComputeConsecutiveRuns(sorted, p.Threshold)
	if p.AvailThreshold != nil || p.PRBThreshold != nil {
		// -Inf disables the availability half when only a PRB threshold is set.
		availThreshold := math.Inf(-1)
		if p.AvailThreshold != nil {
			availThreshold = *p.AvailThreshold
		}
		for i := range classified {
			classified[i].CongestionFlags = ClassifyAvailability(
				classified[i].Availability, classified[i].PRB, availThreshold, p.PRBThreshold)
		}
	}

	alarms := DetectMajorAlarms(classified, p.ConsecutiveDays)

	return Report{
		GeneratedAt:    clock.Now().UTC(),
		Params:         p,
		TotalRows:      len(rows),
		Rows:           classified,
		MajorAlarms:    SortByPRBDesc(alarms),
		Warnings:       Warnings(classified),
		Ranking:        RankCongestion(sorted, p.Threshold),
		GeoAvailable:   slices.ContainsFunc(sorted, MetricRow.HasCoordinates),
		GeoPoints:      GeoPoints(classified, p.Threshold),
		Recommendation: Recommend(alarms),
	}, nil
}
