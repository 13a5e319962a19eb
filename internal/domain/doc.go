// Package domain models radio-access-network (RAN) KPI data and the congestion
// engine that a NOC dashboard is built on.
//
// # Data Source
//
// KPI exports arrive as CSV with one row per site, sector, and day. The
// ingest package normalizes the vendor column names before rows reach this
// package:
//
//	Date         → date          calendar day, no time-of-day semantics
//	eNodeBName   → site          eNodeB (site) identifier
//	Sector       → sector        sector number within the site, kept as text
//	Band         → band          carrier band, used for filtering only
//	Payload      → traffic_gb    daily traffic volume in GB
//	PRB          → prb           physical resource block utilization, percent
//	Availability → availability  cell availability, percent
//	Lat / Lon    → lat / lon     optional WGS-84 site coordinates
//
// PRB and availability are expected in [0, 100] but are never clamped:
// thresholds are applied literally to whatever value was reported.
//
// # Classification
//
// Each row gets a status from its PRB against the congestion threshold:
//
//	prb >= threshold                      Congested
//	threshold-15 <= prb < threshold       Warning
//	prb < threshold-15                    Normal
//
// The 15-point warning band is [WarningBand].
//
// # Consecutive Congestion
//
// Rows are partitioned by (site, sector) and each partition is walked in
// ascending date order. The counter increments on every row with
// prb >= threshold and resets to 0 on the first row below it, so the flag
// sequence [t t f t t t] yields [1 2 0 1 2 3]. Rows sharing a date within a
// partition keep their input order. Missing days do not reset the counter:
// consecutive means consecutive observations. A row whose counter reaches the
// configured number of days is a major alarm.
//
// # Availability Rule
//
// A second, instantaneous congestion test ORs two independent checks:
// availability below the availability threshold, and PRB strictly above the
// PRB threshold. It carries no memory between rows and is reported alongside
// the run-length result, never merged with it.
//
// # Validation
//
// The engine rejects rows it cannot reason about instead of guessing: a
// non-finite PRB, availability, or traffic value, an empty site or sector, or
// a missing date produce an [*InvalidRowError] naming the field. Empty input
// is not an error; every operation returns empty results.
package domain
