// Package ingest turns vendor KPI CSV exports into domain rows.
//
// Headers are trimmed and renamed to their canonical names, cells are
// coerced to the domain types, and rows with cells that cannot be coerced are
// rejected individually instead of failing the whole file.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
)

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")

	// ErrDuplicateColumn is returned when two headers map to the same column.
	ErrDuplicateColumn = errors.New("duplicate column")
)

// Canonical column names.
const (
	ColDate         = "date"
	ColSite         = "site"
	ColSector       = "sector"
	ColBand         = "band"
	ColTraffic      = "traffic_gb"
	ColPRB          = "prb"
	ColAvailability = "availability"
	ColLat          = "lat"
	ColLon          = "lon"
)

// columnAliases maps vendor export headers to canonical names.
var columnAliases = map[string]string{
	"Date":         ColDate,
	"eNodeBName":   ColSite,
	"Sector":       ColSector,
	"Band":         ColBand,
	"Payload":      ColTraffic,
	"payload":      ColTraffic,
	"PRB":          ColPRB,
	"Availability": ColAvailability,
	"Lat":          ColLat,
	"Lon":          ColLon,
}

// dateLayouts are tried in order after ISO dates.
var dateLayouts = []string{
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
}

// Dataset is the result of ingesting one CSV file.
type Dataset struct {
	Rows     []domain.MetricRow
	Rejected []domain.InvalidRowError

	HasPRB          bool
	HasAvailability bool
	HasCoordinates  bool
}

// Parse reads a KPI CSV. Required columns are date, site, sector, and at
// least one of prb or availability. Rejected rows carry their 1-based data
// row number as Index.
func Parse(r io.Reader) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("ingest csv: %w", err)
	}
	if len(records) == 0 {
		return Dataset{Rows: []domain.MetricRow{}}, nil
	}

	header := normalizeHeader(records[0])
	if err := checkColumns(header); err != nil {
		return Dataset{}, err
	}

	ds := Dataset{
		Rows:            make([]domain.MetricRow, 0, len(records)-1),
		HasPRB:          contains(header, ColPRB),
		HasAvailability: contains(header, ColAvailability),
		HasCoordinates:  contains(header, ColLat) && contains(header, ColLon),
	}
	if len(records) == 1 {
		return ds, nil
	}

	df, err := loadFrame(header, records[1:])
	if err != nil {
		return Dataset{}, err
	}

	cols := make(map[string][]string, len(header))
	for _, name := range df.Names() {
		cols[name] = df.Col(name).Records()
	}
	nums := numericColumns(df)

	for i := 0; i < df.Nrow(); i++ {
		row, rowErr := parseRow(i+1, cols, nums, i)
		if rowErr != nil {
			ds.Rejected = append(ds.Rejected, *rowErr)
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// normalizeHeader trims header cells, drops a UTF-8 BOM, and maps vendor
// names to canonical ones.
func normalizeHeader(raw []string) []string {
	header := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if canonical, ok := columnAliases[h]; ok {
			h = canonical
		}
		header[i] = h
	}
	return header
}

func checkColumns(header []string) error {
	for _, col := range []string{ColDate, ColSite, ColSector} {
		if !contains(header, col) {
			return fmt.Errorf("ingest csv: %w: %s", ErrMissingColumn, col)
		}
	}
	if !contains(header, ColPRB) && !contains(header, ColAvailability) {
		return fmt.Errorf("ingest csv: %w: need %s or %s", ErrMissingColumn, ColPRB, ColAvailability)
	}
	seen := make(map[string]struct{}, len(header))
	for _, h := range header {
		if _, dup := seen[h]; dup && h != "" {
			return fmt.Errorf("ingest csv: %w %q", ErrDuplicateColumn, h)
		}
		seen[h] = struct{}{}
	}
	return nil
}

// loadFrame builds a string-typed dataframe so every cell is coerced here
// rather than by type detection.
func loadFrame(header []string, body [][]string) (dataframe.DataFrame, error) {
	records := make([][]string, 0, len(body)+1)
	records = append(records, header)
	for _, rec := range body {
		// Ragged rows are padded so a short row is rejected on its missing
		// field instead of failing the whole frame.
		padded := make([]string, len(header))
		copy(padded, rec)
		records = append(records, padded)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("ingest csv: %w", df.Err)
	}
	return df, nil
}

// numericColumns converts every metric and coordinate column present in df
// to a gota Float series. Cells are trimmed and lose a trailing "%" first;
// cells gota cannot parse become NaN elements.
func numericColumns(df dataframe.DataFrame) map[string]series.Series {
	names := df.Names()
	nums := make(map[string]series.Series)
	for _, col := range []string{ColPRB, ColAvailability, ColTraffic, ColLat, ColLon} {
		if !contains(names, col) {
			continue
		}
		cleaned := df.Col(col).Records()
		for i, v := range cleaned {
			cleaned[i] = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		}
		nums[col] = series.New(cleaned, series.Float, col)
	}
	return nums
}

func parseRow(index int, cols map[string][]string, nums map[string]series.Series, i int) (domain.MetricRow, *domain.InvalidRowError) {
	cell := func(name string) (string, bool) {
		values, ok := cols[name]
		if !ok {
			return "", false
		}
		return strings.TrimSpace(values[i]), true
	}
	reject := func(field, value, reason string) *domain.InvalidRowError {
		return &domain.InvalidRowError{Index: index, Field: field, Value: value, Reason: reason}
	}

	var row domain.MetricRow

	raw, _ := cell(ColDate)
	date, err := parseDate(raw)
	if err != nil {
		return row, reject(ColDate, raw, "unrecognized date")
	}
	row.Date = date

	row.Site, _ = cell(ColSite)
	if row.Site == "" {
		return row, reject(ColSite, "", "missing")
	}
	row.Sector, _ = cell(ColSector)
	if row.Sector == "" {
		return row, reject(ColSector, "", "missing")
	}
	row.Band, _ = cell(ColBand)

	for _, f := range []struct {
		col      string
		dst      *float64
		required bool
	}{
		{ColPRB, &row.PRB, true},
		{ColAvailability, &row.Availability, true},
		{ColTraffic, &row.TrafficGB, false},
	} {
		raw, present := cell(f.col)
		if !present || (raw == "" && !f.required) {
			continue
		}
		v, reason := numberAt(nums[f.col], i, raw)
		if reason != "" {
			return row, reject(f.col, raw, reason)
		}
		*f.dst = v
	}

	for _, f := range []struct {
		col string
		dst **float64
	}{
		{ColLat, &row.Lat},
		{ColLon, &row.Lon},
	} {
		raw, present := cell(f.col)
		if !present || raw == "" {
			continue
		}
		v, reason := numberAt(nums[f.col], i, raw)
		if reason != "" {
			return row, reject(f.col, raw, reason)
		}
		*f.dst = &v
	}

	return row, nil
}

func parseDate(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, errors.New("empty date")
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unrecognized date %q", s)
}

// numberAt reads element i of a Float series. It returns a rejection reason
// for missing, unparsable, or non-finite cells.
func numberAt(col series.Series, i int, raw string) (float64, string) {
	if raw == "" {
		return 0, "missing"
	}
	e := col.Elem(i)
	if e.IsNA() {
		return 0, "not a number"
	}
	v := e.Float()
	if math.IsInf(v, 0) {
		return 0, "not a finite number"
	}
	return v, ""
}

func contains(header []string, col string) bool {
	for _, h := range header {
		if h == col {
			return true
		}
	}
	return false
}
