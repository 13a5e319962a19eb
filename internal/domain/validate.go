package domain

import (
	"errors"
	"fmt"
	"math"

	"cloud.google.com/go/civil"
)

var (
	// ErrInvalidRow matches every *InvalidRowError via errors.Is.
	ErrInvalidRow = errors.New("invalid row")

	// ErrInvalidParams is returned by Params.Validate.
	ErrInvalidParams = errors.New("invalid params")
)

// InvalidRowError names the row and field the engine refused to process.
// Index is the row position as seen by the caller that produced it.
type InvalidRowError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (e *InvalidRowError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("row %d: %s %q: %s", e.Index, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Index, e.Field, e.Reason)
}

func (e *InvalidRowError) Is(target error) bool {
	return target == ErrInvalidRow
}

// ValidateRow checks the preconditions the engine relies on.
func ValidateRow(index int, row MetricRow) error {
	switch {
	case row.Date == (civil.Date{}):
		return &InvalidRowError{Index: index, Field: "date", Reason: "missing"}
	case !row.Date.IsValid():
		return &InvalidRowError{Index: index, Field: "date", Value: row.Date.String(), Reason: "not a calendar date"}
	case row.Site == "":
		return &InvalidRowError{Index: index, Field: "site", Reason: "missing"}
	case row.Sector == "":
		return &InvalidRowError{Index: index, Field: "sector", Reason: "missing"}
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"prb", row.PRB},
		{"availability", row.Availability},
		{"traffic_gb", row.TrafficGB},
	} {
		if !isFinite(f.value) {
			return &InvalidRowError{Index: index, Field: f.name, Value: fmt.Sprint(f.value), Reason: "not a finite number"}
		}
	}

	if row.Lat != nil && !isFinite(*row.Lat) {
		return &InvalidRowError{Index: index, Field: "lat", Value: fmt.Sprint(*row.Lat), Reason: "not a finite number"}
	}
	if row.Lon != nil && !isFinite(*row.Lon) {
		return &InvalidRowError{Index: index, Field: "lon", Value: fmt.Sprint(*row.Lon), Reason: "not a finite number"}
	}
	return nil
}

// Validate checks the parameters. Threshold values outside [0, 100] are
// accepted and applied literally.
func (p Params) Validate() error {
	if !isFinite(p.Threshold) {
		return fmt.Errorf("%w: threshold must be a finite number", ErrInvalidParams)
	}
	if p.ConsecutiveDays < 1 {
		return fmt.Errorf("%w: consecutive days must be at least 1, got %d", ErrInvalidParams, p.ConsecutiveDays)
	}
	if p.AvailThreshold != nil && !isFinite(*p.AvailThreshold) {
		return fmt.Errorf("%w: availability threshold must be a finite number", ErrInvalidParams)
	}
	if p.PRBThreshold != nil && !isFinite(*p.PRBThreshold) {
		return fmt.Errorf("%w: prb threshold must be a finite number", ErrInvalidParams)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
