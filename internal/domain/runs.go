package domain

import "slices"

// ComputeConsecutiveRuns classifies each row and computes its consecutive
// congestion counter within its (site, sector) partition. The result is in
// input order; only the walk over each partition is chronological.
func ComputeConsecutiveRuns(rows []MetricRow, threshold float64) []ClassifiedRow {
	out := make([]ClassifiedRow, len(rows))
	partitions := make(map[SectorKey][]int)

	for i, row := range rows {
		out[i] = ClassifiedRow{
			MetricRow:     row,
			Status:        Classify(row.PRB, threshold),
			CongestedFlag: row.PRB >= threshold,
		}
		key := row.Key()
		partitions[key] = append(partitions[key], i)
	}

	for _, idx := range partitions {
		slices.SortStableFunc(idx, func(a, b int) int {
			return compareDates(rows[a].Date, rows[b].Date)
		})

		run := 0
		for _, i := range idx {
			if !out[i].CongestedFlag {
				run = 0
				out[i].Consecutive = 0
				continue
			}
			run++
			out[i].Consecutive = run
		}
	}

	return out
}

// DetectMajorAlarms returns the rows whose consecutive counter has reached
// consecutiveDays, in input order.
func DetectMajorAlarms(rows []ClassifiedRow, consecutiveDays int) []ClassifiedRow {
	alarms := make([]ClassifiedRow, 0)
	for _, row := range rows {
		if row.Consecutive >= consecutiveDays {
			alarms = append(alarms, row)
		}
	}
	return alarms
}

// Warnings returns the rows classified as Warning, in input order.
func Warnings(rows []ClassifiedRow) []ClassifiedRow {
	out := make([]ClassifiedRow, 0)
	for _, row := range rows {
		if row.Status == StatusWarning {
			out = append(out, row)
		}
	}
	return out
}

// SortByPRBDesc returns a copy of rows ordered by PRB, highest first. Equal
// PRB values keep their relative order.
func SortByPRBDesc(rows []ClassifiedRow) []ClassifiedRow {
	out := slices.Clone(rows)
	if out == nil {
		out = make([]ClassifiedRow, 0)
	}
	slices.SortStableFunc(out, func(a, b ClassifiedRow) int {
		switch {
		case a.PRB > b.PRB:
			return -1
		case a.PRB < b.PRB:
			return 1
		default:
			return 0
		}
	})
	return out
}
