package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankCongestion_DescendingByCount(t *testing.T) {
	var rows []MetricRow
	rows = append(rows, sectorSeries("A", "1", 90, 90, 90)...)
	rows = append(rows, sectorSeries("B", "2", 90, 90, 90, 90, 90)...)

	ranking := RankCongestion(rows, testThreshold)

	assert.Equal(t, []RankEntry{
		{Site: "B", Sector: "2", Count: 5},
		{Site: "A", Sector: "1", Count: 3},
	}, ranking)
}

func TestRankCongestion_CountsOnlyRowsAtOrAboveThreshold(t *testing.T) {
	rows := sectorSeries("A", "1", 85, 84.9, 100, 10)

	ranking := RankCongestion(rows, testThreshold)

	assert.Equal(t, []RankEntry{{Site: "A", Sector: "1", Count: 2}}, ranking)
}

func TestRankCongestion_TiesKeepFirstEncounteredOrder(t *testing.T) {
	rows := []MetricRow{
		{Site: "C", Sector: "1", Date: day(1), PRB: 90},
		{Site: "A", Sector: "1", Date: day(1), PRB: 90},
		{Site: "B", Sector: "1", Date: day(1), PRB: 90},
		{Site: "B", Sector: "1", Date: day(2), PRB: 90},
	}

	ranking := RankCongestion(rows, testThreshold)

	assert.Equal(t, []RankEntry{
		{Site: "B", Sector: "1", Count: 2},
		{Site: "C", Sector: "1", Count: 1},
		{Site: "A", Sector: "1", Count: 1},
	}, ranking)
}

func TestRankCongestion_SameSiteDifferentSectors(t *testing.T) {
	rows := []MetricRow{
		{Site: "A", Sector: "1", Date: day(1), PRB: 90},
		{Site: "A", Sector: "2", Date: day(1), PRB: 90},
		{Site: "A", Sector: "2", Date: day(2), PRB: 90},
	}

	ranking := RankCongestion(rows, testThreshold)

	assert.Len(t, ranking, 2)
	assert.Equal(t, "2", ranking[0].Sector)
}

func TestRankCongestion_Empty(t *testing.T) {
	ranking := RankCongestion(nil, testThreshold)
	assert.NotNil(t, ranking)
	assert.Empty(t, ranking)

	ranking = RankCongestion(sectorSeries("A", "1", 10, 20), testThreshold)
	assert.Empty(t, ranking)
}

func TestSectorKey_Label(t *testing.T) {
	assert.Equal(t, "JKT001_S2", SectorKey{Site: "JKT001", Sector: "2"}.Label())
}
