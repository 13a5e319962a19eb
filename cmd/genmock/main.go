// Command genmock writes a deterministic KPI CSV for demos and fixtures, and
// optionally the analysis report the engine produces for it. The same seed
// always yields the same file.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/kpi_mock.csv \
//	  -report-out data/mock/kpi_mock_report.json \
//	  -sites 6 -days 30 -seed 42
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
	"github.com/couchcryptid/noc-kpi-engine/internal/ingest"
)

var bands = []string{"L900", "L1800", "L2100", "L2300"}

// sectorProfile shapes one sector's synthetic series.
type sectorProfile struct {
	site     string
	sector   string
	band     string
	lat, lon float64
	basePRB  float64
	// busy sectors drift upwards and produce congestion runs.
	busy bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the KPI CSV")
	reportOut := flag.String("report-out", "", "optional output path for the JSON analysis report")
	sites := flag.Int("sites", 5, "number of sites, each with three sectors")
	days := flag.Int("days", 30, "number of days per sector")
	seed := flag.Uint64("seed", 42, "random seed")
	startStr := flag.String("start", "2025-01-01", "first date, YYYY-MM-DD")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *sites <= 0 || *days <= 0 {
		return fmt.Errorf("-sites and -days must be positive")
	}
	start, err := civil.ParseDate(*startStr)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	profiles := buildProfiles(rng, *sites)

	var buf bytes.Buffer
	if err := writeCSV(&buf, rng, profiles, start, *days); err != nil {
		return err
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil { //nolint:gosec // fixture output
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote %d rows to %s", len(profiles)**days, *out)

	if *reportOut == "" {
		return nil
	}
	return writeReport(buf.Bytes(), *reportOut)
}

func buildProfiles(rng *rand.Rand, sites int) []sectorProfile {
	profiles := make([]sectorProfile, 0, sites*3)
	for s := range sites {
		site := fmt.Sprintf("JKT%03d", s+1)
		lat := -6.1 - rng.Float64()*0.3
		lon := 106.7 + rng.Float64()*0.3
		for sec := 1; sec <= 3; sec++ {
			profiles = append(profiles, sectorProfile{
				site:    site,
				sector:  strconv.Itoa(sec),
				band:    bands[rng.IntN(len(bands))],
				lat:     lat,
				lon:     lon,
				basePRB: 45 + rng.Float64()*30,
				busy:    rng.IntN(4) == 0,
			})
		}
	}
	return profiles
}

func writeCSV(buf *bytes.Buffer, rng *rand.Rand, profiles []sectorProfile, start civil.Date, days int) error {
	w := csv.NewWriter(buf)
	header := []string{
		ingest.ColDate, ingest.ColSite, ingest.ColSector, ingest.ColBand,
		ingest.ColTraffic, ingest.ColPRB, ingest.ColAvailability, ingest.ColLat, ingest.ColLon,
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for d := range days {
		date := start.AddDays(d)
		for _, p := range profiles {
			prb := p.basePRB + rng.NormFloat64()*6
			if p.busy {
				prb += float64(d) * 1.5
			}
			prb = clamp(prb, 0, 100)
			avail := clamp(99.9-rng.ExpFloat64()*0.8, 80, 100)
			traffic := 20 + prb*1.8 + rng.Float64()*15

			if err := w.Write([]string{
				date.String(), p.site, p.sector, p.band,
				formatFloat(traffic, 2), formatFloat(prb, 2), formatFloat(avail, 2),
				formatFloat(p.lat, 5), formatFloat(p.lon, 5),
			}); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// writeReport runs the engine over the generated CSV with default parameters
// and a fixed clock so the JSON is byte-stable across runs.
func writeReport(data []byte, path string) error {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	ds, err := ingest.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse generated csv: %w", err)
	}
	avail, prb := 95.0, 85.0
	report, err := domain.Analyze(ds.Rows, domain.Params{
		Threshold:       85,
		ConsecutiveDays: 3,
		AvailThreshold:  &avail,
		PRBThreshold:    &prb,
	})
	if err != nil {
		return fmt.Errorf("analyze generated csv: %w", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil { //nolint:gosec // fixture output
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Printf("wrote report with %d major alarms to %s", len(report.MajorAlarms), path)
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
