package domain

import "slices"

// RankCongestion counts rows with prb >= threshold per (site, sector) and
// orders the groups by count, highest first. Groups with equal counts keep
// the order in which they were first encountered.
func RankCongestion(rows []MetricRow, threshold float64) []RankEntry {
	ranking := make([]RankEntry, 0)
	pos := make(map[SectorKey]int)

	for _, row := range rows {
		if row.PRB < threshold {
			continue
		}
		key := row.Key()
		i, ok := pos[key]
		if !ok {
			i = len(ranking)
			pos[key] = i
			ranking = append(ranking, RankEntry{Site: key.Site, Sector: key.Sector})
		}
		ranking[i].Count++
	}

	slices.SortStableFunc(ranking, func(a, b RankEntry) int {
		return b.Count - a.Count
	})
	return ranking
}
