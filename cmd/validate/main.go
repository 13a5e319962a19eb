// Command validate checks a KPI CSV for data integrity and verifies the
// engine's run-length invariants over it. When a report fixture produced by
// genmock is given, it also checks the fixture still matches the engine.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/mock/kpi_mock.csv \
//	  -report data/mock/kpi_mock_report.json \
//	  -threshold 85 -consecutive-days 3
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
	"github.com/couchcryptid/noc-kpi-engine/internal/ingest"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the KPI CSV to validate")
	reportPath := flag.String("report", "", "optional report fixture to compare against")
	threshold := flag.Float64("threshold", 85, "PRB congestion threshold")
	consecutive := flag.Int("consecutive-days", 3, "days required for a major alarm")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	avail, prb := 95.0, 85.0
	params := domain.Params{
		Threshold:       *threshold,
		ConsecutiveDays: *consecutive,
		AvailThreshold:  &avail,
		PRBThreshold:    &prb,
	}
	if code := run(*csvPath, *reportPath, params); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, reportPath string, params domain.Params) int {
	if err := params.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	// Match genmock's fixed clock so report fixtures compare cleanly.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	fmt.Println("=== NOC KPI Integrity Validation ===")
	fmt.Println()

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open csv: %v\n", err)
		return 1
	}
	ds, err := ingest.Parse(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse csv: %v\n", err)
		return 1
	}

	report, err := domain.Analyze(ds.Rows, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: analyze: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateIngest(ds),
		validateRanges(ds.Rows),
		validateUniqueness(ds.Rows),
		validateRuns(report, params),
	}
	if reportPath != "" {
		phases = append(phases, validateFixture(reportPath, report))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d accepted, %d rejected, %d major alarms, %d warnings\n",
		len(ds.Rows), len(ds.Rejected), len(report.MajorAlarms), len(report.Warnings))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateIngest(ds ingest.Dataset) *phase {
	p := &phase{name: "Ingest (every row accepted)"}
	if !ds.HasPRB {
		p.errorf("no prb column: congestion classification is meaningless")
	}
	for i := range ds.Rejected {
		p.errorf("%v", &ds.Rejected[i])
	}
	return p
}

func validateRanges(rows []domain.MetricRow) *phase {
	p := &phase{name: "Value ranges (percentages, coordinates)"}
	for i, r := range rows {
		if r.PRB < 0 || r.PRB > 100 {
			p.errorf("row %d: prb %.2f outside [0, 100]", i+1, r.PRB)
		}
		if r.Availability < 0 || r.Availability > 100 {
			p.errorf("row %d: availability %.2f outside [0, 100]", i+1, r.Availability)
		}
		if r.TrafficGB < 0 {
			p.errorf("row %d: negative traffic_gb %.2f", i+1, r.TrafficGB)
		}
		if (r.Lat == nil) != (r.Lon == nil) {
			p.errorf("row %d: only one of lat/lon is set", i+1)
		}
		if r.HasCoordinates() && (*r.Lat < -90 || *r.Lat > 90 || *r.Lon < -180 || *r.Lon > 180) {
			p.errorf("row %d: coordinates (%.5f, %.5f) out of range", i+1, *r.Lat, *r.Lon)
		}
	}
	return p
}

func validateUniqueness(rows []domain.MetricRow) *phase {
	p := &phase{name: "Uniqueness (one row per sector-day)"}
	type dayKey struct {
		domain.SectorKey
		date civil.Date
	}
	seen := make(map[dayKey]int, len(rows))
	for i, r := range rows {
		k := dayKey{SectorKey: r.Key(), date: r.Date}
		if first, ok := seen[k]; ok {
			p.errorf("rows %d and %d: duplicate %s on %s", first, i+1, k.Label(), r.Date)
			continue
		}
		seen[k] = i + 1
	}
	return p
}

// validateRuns re-derives the run-length invariants from the classified rows
// instead of trusting the engine's own bookkeeping.
func validateRuns(report domain.Report, params domain.Params) *phase {
	p := &phase{name: "Run-length invariants"}

	bySector := make(map[domain.SectorKey][]domain.ClassifiedRow)
	for _, r := range report.Rows {
		if (r.Consecutive > 0) != r.CongestedFlag {
			p.errorf("%s %s: consecutive %d with congested flag %v", r.Key().Label(), r.Date, r.Consecutive, r.CongestedFlag)
		}
		bySector[r.Key()] = append(bySector[r.Key()], r)
	}
	for key, rows := range bySector {
		prev := 0
		for _, r := range rows {
			want := 0
			if r.CongestedFlag {
				want = prev + 1
			}
			if r.Consecutive != want {
				p.errorf("%s %s: consecutive %d, want %d", key.Label(), r.Date, r.Consecutive, want)
			}
			prev = r.Consecutive
		}
	}

	wantAlarms := 0
	for _, r := range report.Rows {
		if r.Consecutive >= params.ConsecutiveDays {
			wantAlarms++
		}
	}
	if len(report.MajorAlarms) != wantAlarms {
		p.errorf("major alarms: got %d, want %d", len(report.MajorAlarms), wantAlarms)
	}
	if !slices.IsSortedFunc(report.MajorAlarms, func(a, b domain.ClassifiedRow) int {
		switch {
		case a.PRB > b.PRB:
			return -1
		case a.PRB < b.PRB:
			return 1
		}
		return 0
	}) {
		p.errorf("major alarms are not sorted by PRB descending")
	}

	for i := 1; i < len(report.Ranking); i++ {
		if report.Ranking[i].Count > report.Ranking[i-1].Count {
			p.errorf("ranking not descending at position %d", i)
		}
	}
	return p
}

func validateFixture(path string, got domain.Report) *phase {
	p := &phase{name: "Report fixture matches engine"}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read fixture: %v", err)
		return p
	}
	var want domain.Report
	if err := json.Unmarshal(data, &want); err != nil {
		p.errorf("decode fixture: %v", err)
		return p
	}

	// Round-trip the fresh report so both sides carry JSON-normalised values.
	fresh, err := json.Marshal(got)
	if err != nil {
		p.errorf("encode report: %v", err)
		return p
	}
	var gotJSON domain.Report
	if err := json.Unmarshal(fresh, &gotJSON); err != nil {
		p.errorf("decode report: %v", err)
		return p
	}

	for _, c := range []struct {
		name      string
		want, got any
	}{
		{"params", want.Params, gotJSON.Params},
		{"major alarms", want.MajorAlarms, gotJSON.MajorAlarms},
		{"warnings", want.Warnings, gotJSON.Warnings},
		{"ranking", want.Ranking, gotJSON.Ranking},
		{"recommendation", want.Recommendation, gotJSON.Recommendation},
	} {
		if diff := cmp.Diff(c.want, c.got); diff != "" {
			p.errorf("%s mismatch (-fixture +engine):\n%s", c.name, diff)
		}
	}
	return p
}
