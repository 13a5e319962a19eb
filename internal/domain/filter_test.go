package domain

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func filterFixture() []MetricRow {
	return []MetricRow{
		{Site: "JKT001", Sector: "1", Band: "L1800", Date: day(1)},
		{Site: "JKT001", Sector: "2", Band: "L900", Date: day(2)},
		{Site: "BDG002", Sector: "1", Band: "L1800", Date: day(3)},
		{Site: "BDG002", Sector: "3", Band: "L2100", Date: day(4)},
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		sel      Selection
		expected []civil.Date
	}{
		{"empty selection keeps everything", Selection{}, []civil.Date{day(1), day(2), day(3), day(4)}},
		{"All sentinel keeps everything", Selection{Site: SelectAll, Sector: SelectAll, Band: SelectAll}, []civil.Date{day(1), day(2), day(3), day(4)}},
		{"site", Selection{Site: "BDG002"}, []civil.Date{day(3), day(4)}},
		{"sector across sites", Selection{Sector: "1"}, []civil.Date{day(1), day(3)}},
		{"band", Selection{Band: "L1800"}, []civil.Date{day(1), day(3)}},
		{"site and sector", Selection{Site: "JKT001", Sector: "2"}, []civil.Date{day(2)}},
		{"inclusive date range", Selection{Start: day(2), End: day(3)}, []civil.Date{day(2), day(3)}},
		{"open start", Selection{End: day(1)}, []civil.Date{day(1)}},
		{"open end", Selection{Start: day(4)}, []civil.Date{day(4)}},
		{"no match", Selection{Site: "SBY009"}, []civil.Date{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(filterFixture(), tt.sel)
			dates := make([]civil.Date, len(got))
			for i, r := range got {
				dates[i] = r.Date
			}
			assert.Equal(t, tt.expected, dates)
		})
	}
}

func TestOptions(t *testing.T) {
	opts := Options(filterFixture())

	assert.Equal(t, []string{"BDG002", "JKT001"}, opts.Sites)
	assert.Equal(t, []string{"1", "2", "3"}, opts.Sectors)
	assert.Equal(t, []string{"L1800", "L2100", "L900"}, opts.Bands)
	assert.Equal(t, day(1), opts.MinDate)
	assert.Equal(t, day(4), opts.MaxDate)
}

func TestOptions_Empty(t *testing.T) {
	opts := Options(nil)

	assert.Empty(t, opts.Sites)
	assert.NotNil(t, opts.Sites)
	assert.Equal(t, civil.Date{}, opts.MinDate)
}
