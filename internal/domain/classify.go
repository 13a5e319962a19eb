package domain

import (
	"slices"

	"cloud.google.com/go/civil"
)

// WarningBand is the width, in PRB percentage points, of the warning zone
// directly below the congestion threshold.
const WarningBand = 15.0

// Classify maps a PRB value to a status against the congestion threshold.
func Classify(prb, threshold float64) Status {
	switch {
	case prb >= threshold:
		return StatusCongested
	case prb >= threshold-WarningBand:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// ClassifyAvailability applies the instantaneous availability rule to one
// row's values. A nil prbThreshold disables the PRB half of the rule, which
// is how datasets without a PRB column are handled.
func ClassifyAvailability(availability, prb, availThreshold float64, prbThreshold *float64) CongestionFlags {
	f := CongestionFlags{
		CongestionAvail: availability < availThreshold,
		CongestionPRB:   prbThreshold != nil && prb > *prbThreshold,
	}
	f.Congestion = f.CongestionAvail || f.CongestionPRB
	return f
}

// SortByDate stable-sorts rows by ascending date in place. Rows sharing a
// date keep their relative order.
func SortByDate(rows []MetricRow) {
	slices.SortStableFunc(rows, func(a, b MetricRow) int {
		return compareDates(a.Date, b.Date)
	})
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}
