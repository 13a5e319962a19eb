package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// MetricRow is one KPI measurement for one site sector on one day.
type MetricRow struct {
	Date         civil.Date `json:"date"`
	Site         string     `json:"site"`
	Sector       string     `json:"sector"`
	Band         string     `json:"band,omitempty"`
	PRB          float64    `json:"prb"`
	Availability float64    `json:"availability"`
	TrafficGB    float64    `json:"traffic_gb"`
	Lat          *float64   `json:"lat,omitempty"`
	Lon          *float64   `json:"lon,omitempty"`
}

// Key returns the (site, sector) partition the row belongs to.
func (r MetricRow) Key() SectorKey {
	return SectorKey{Site: r.Site, Sector: r.Sector}
}

// HasCoordinates reports whether both latitude and longitude are set.
func (r MetricRow) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}

// SectorKey identifies a sector within a site.
type SectorKey struct {
	Site   string `json:"site"`
	Sector string `json:"sector"`
}

// Label renders the key the way ranking charts label bars, e.g. "JKT001_S2".
func (k SectorKey) Label() string {
	return k.Site + "_S" + k.Sector
}

// Status is the per-row PRB classification.
type Status string

const (
	StatusNormal    Status = "Normal"
	StatusWarning   Status = "Warning"
	StatusCongested Status = "Congested"
)

// CongestionFlags holds the result of the instantaneous availability rule.
type CongestionFlags struct {
	CongestionAvail bool `json:"congestion_avail"`
	CongestionPRB   bool `json:"congestion_prb"`
	Congestion      bool `json:"congestion"`
}

// ClassifiedRow is a MetricRow augmented with every derived engine field.
type ClassifiedRow struct {
	MetricRow
	Status        Status `json:"status"`
	CongestedFlag bool   `json:"congested_flag"`
	Consecutive   int    `json:"consecutive"`
	CongestionFlags
}

// RankEntry is one (site, sector) line of the congestion ranking.
type RankEntry struct {
	Site   string `json:"site"`
	Sector string `json:"sector"`
	Count  int    `json:"congestion_days"`
}

// GeoPoint is a congested row with coordinates, ready for a map layer.
type GeoPoint struct {
	Site   string     `json:"site"`
	Sector string     `json:"sector"`
	Date   civil.Date `json:"date"`
	PRB    float64    `json:"prb"`
	Lat    float64    `json:"lat"`
	Lon    float64    `json:"lon"`

	// Geocoding enrichment fields.
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	Region           string  `json:"region,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "reverse", "original", "failed"
}

// Params are the user-adjustable engine inputs.
type Params struct {
	Threshold       float64  `json:"threshold"`
	ConsecutiveDays int      `json:"consecutive_days"`
	AvailThreshold  *float64 `json:"avail_threshold,omitempty"`
	PRBThreshold    *float64 `json:"prb_threshold,omitempty"`
}

// Selection narrows a dataset the way the dashboard sidebar does. Empty or
// "All" string fields and zero dates mean no restriction. Zero dates are
// omitted from JSON since civil.Date cannot decode "0000-00-00".
type Selection struct {
	Site   string     `json:"site,omitempty"`
	Sector string     `json:"sector,omitempty"`
	Band   string     `json:"band,omitempty"`
	Start  civil.Date `json:"start,omitzero"`
	End    civil.Date `json:"end,omitzero"`
}

// FilterOptions lists the distinct values a selection can choose from.
type FilterOptions struct {
	Sites   []string   `json:"sites"`
	Sectors []string   `json:"sectors"`
	Bands   []string   `json:"bands"`
	MinDate civil.Date `json:"min_date,omitzero"`
	MaxDate civil.Date `json:"max_date,omitzero"`
}

// Recommendation is the operator guidance attached to a report.
type Recommendation struct {
	Level   string   `json:"level"` // "major" or "stable"
	Message string   `json:"message"`
	Actions []string `json:"actions,omitempty"`
}

// Report is the full dashboard payload for one analysis.
type Report struct {
	GeneratedAt    time.Time         `json:"generated_at"`
	Params         Params            `json:"params"`
	Selection      Selection         `json:"selection"`
	TotalRows      int               `json:"total_rows"`
	Rows           []ClassifiedRow   `json:"rows"`
	MajorAlarms    []ClassifiedRow   `json:"major_alarms"`
	Warnings       []ClassifiedRow   `json:"warnings"`
	Ranking        []RankEntry       `json:"ranking"`
	GeoAvailable   bool              `json:"geo_available"`
	GeoPoints      []GeoPoint        `json:"geo_points"`
	Recommendation Recommendation    `json:"recommendation"`
	Rejected       []InvalidRowError `json:"rejected,omitempty"`
}
