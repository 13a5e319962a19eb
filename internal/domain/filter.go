package domain

import (
	"slices"

	"cloud.google.com/go/civil"
)

// SelectAll is the sidebar sentinel meaning no restriction on a field.
const SelectAll = "All"

// Filter returns the rows matching the selection, in input order. Date
// bounds are inclusive.
func Filter(rows []MetricRow, sel Selection) []MetricRow {
	out := make([]MetricRow, 0, len(rows))
	for _, row := range rows {
		if !matches(sel.Site, row.Site) || !matches(sel.Sector, row.Sector) || !matches(sel.Band, row.Band) {
			continue
		}
		if !isZeroDate(sel.Start) && row.Date.Before(sel.Start) {
			continue
		}
		if !isZeroDate(sel.End) && row.Date.After(sel.End) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func matches(want, got string) bool {
	return want == "" || want == SelectAll || want == got
}

func isZeroDate(d civil.Date) bool {
	return d == (civil.Date{})
}

// Options collects the distinct sites, sectors, and bands of a dataset plus
// its date range.
func Options(rows []MetricRow) FilterOptions {
	opts := FilterOptions{
		Sites:   make([]string, 0),
		Sectors: make([]string, 0),
		Bands:   make([]string, 0),
	}
	sites := make(map[string]struct{})
	sectors := make(map[string]struct{})
	bands := make(map[string]struct{})

	for i, row := range rows {
		sites[row.Site] = struct{}{}
		sectors[row.Sector] = struct{}{}
		if row.Band != "" {
			bands[row.Band] = struct{}{}
		}
		if i == 0 || row.Date.Before(opts.MinDate) {
			opts.MinDate = row.Date
		}
		if i == 0 || row.Date.After(opts.MaxDate) {
			opts.MaxDate = row.Date
		}
	}

	opts.Sites = sortedKeys(sites, opts.Sites)
	opts.Sectors = sortedKeys(sectors, opts.Sectors)
	opts.Bands = sortedKeys(bands, opts.Bands)
	return opts
}

func sortedKeys(set map[string]struct{}, dst []string) []string {
	for k := range set {
		dst = append(dst, k)
	}
	slices.Sort(dst)
	return dst
}
