package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
	"github.com/couchcryptid/noc-kpi-engine/internal/ingest"
	"github.com/couchcryptid/noc-kpi-engine/internal/observability"
)

var (
	// ErrPublishDisabled is returned when a request asks for alarm publishing
	// but no AlarmLoader is configured.
	ErrPublishDisabled = errors.New("alarm publishing is not enabled")

	// ErrPublishFailed wraps the final error of a failed alarm publish.
	ErrPublishFailed = errors.New("publish alarms")
)

const maxPublishAttempts = 5

// Analyzer runs the congestion engine over a filtered set of rows.
type Analyzer interface {
	Analyze(ctx context.Context, rows []domain.MetricRow, params domain.Params) (domain.Report, error)
}

// AlarmLoader writes major alarms to the destination.
type AlarmLoader interface {
	LoadBatch(ctx context.Context, alarms []domain.ClassifiedRow) error
}

// Request describes one analysis: the CSV to ingest, the sidebar selection,
// the engine parameters, and whether major alarms should be published.
type Request struct {
	CSV       io.Reader
	Selection domain.Selection
	Params    domain.Params
	Publish   bool
}

// Pipeline orchestrates the ingest-analyze-publish flow.
type Pipeline struct {
	analyzer  Analyzer
	loader    AlarmLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a Pipeline. Pass a nil loader to disable alarm publishing.
func New(a Analyzer, l AlarmLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		analyzer:       a,
		loader:         l,
		logger:         logger,
		metrics:        metrics,
		batchSize:      batchSize,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// CheckReadiness returns nil once the pipeline has completed an analysis or
// has been marked ready, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed an analysis yet")
	}
	return nil
}

// MarkReady flags the pipeline as ready without a prior analysis. Used when
// there is no startup source file to wait for.
func (p *Pipeline) MarkReady() {
	p.ready.Store(true)
}

// Analyze ingests the request CSV, applies the selection, runs the engine,
// and publishes major alarms when requested. Rows rejected during ingestion
// are excluded from the analysis and listed in the report.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (domain.Report, error) {
	start := time.Now()
	defer func() { p.metrics.AnalysisDuration.Observe(time.Since(start).Seconds()) }()

	if req.Publish && p.loader == nil {
		p.metrics.AnalysisErrors.Inc()
		return domain.Report{}, ErrPublishDisabled
	}

	ds, err := ingest.Parse(req.CSV)
	if err != nil {
		p.metrics.AnalysisErrors.Inc()
		return domain.Report{}, err
	}
	p.metrics.RowsIngested.Add(float64(len(ds.Rows)))
	p.metrics.RowsRejected.Add(float64(len(ds.Rejected)))
	for _, rej := range ds.Rejected {
		p.logger.Warn("rejected kpi row", "index", rej.Index, "field", rej.Field, "value", rej.Value, "reason", rej.Reason)
	}

	rows := domain.Filter(ds.Rows, req.Selection)
	report, err := p.analyzer.Analyze(ctx, rows, datasetParams(ds, req.Params))
	if err != nil {
		p.metrics.AnalysisErrors.Inc()
		return domain.Report{}, err
	}
	report.Selection = req.Selection
	report.Rejected = ds.Rejected

	p.metrics.Analyses.Inc()
	p.metrics.MajorAlarms.Set(float64(len(report.MajorAlarms)))
	p.ready.Store(true)

	p.logger.Info("analysis complete",
		"rows", report.TotalRows,
		"rejected", len(report.Rejected),
		"major_alarms", len(report.MajorAlarms),
		"warnings", len(report.Warnings),
	)

	if req.Publish && len(report.MajorAlarms) > 0 {
		if err := p.publish(ctx, report.MajorAlarms); err != nil {
			return report, fmt.Errorf("%w: %w", ErrPublishFailed, err)
		}
	}
	return report, nil
}

// AnalyzeFile analyzes a CSV file on disk with no selection. Major alarms are
// published when a loader is configured.
func (p *Pipeline) AnalyzeFile(ctx context.Context, path string, params domain.Params) (domain.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Report{}, fmt.Errorf("open kpi source: %w", err)
	}
	defer f.Close()

	return p.Analyze(ctx, Request{
		CSV:     f,
		Params:  params,
		Publish: p.loader != nil,
	})
}

// Warmup runs the startup analysis of path, if any, and then marks the
// pipeline ready. A failed startup analysis is logged but does not hold back
// readiness: uploads are still served.
func (p *Pipeline) Warmup(ctx context.Context, path string, params domain.Params) {
	defer p.MarkReady()
	if path == "" {
		return
	}

	report, err := p.AnalyzeFile(ctx, path, params)
	if err != nil {
		p.logger.Error("startup analysis failed", "source", path, "error", err)
		return
	}
	p.logger.Info("startup analysis complete",
		"source", path,
		"level", report.Recommendation.Level,
		"major_alarms", len(report.MajorAlarms),
	)
}

// Options ingests a CSV and returns the values available to a selection.
func (p *Pipeline) Options(_ context.Context, r io.Reader) (domain.FilterOptions, error) {
	ds, err := ingest.Parse(r)
	if err != nil {
		return domain.FilterOptions{}, err
	}
	return domain.Options(ds.Rows), nil
}

// datasetParams drops the parts of the availability rule the dataset has no
// column for.
func datasetParams(ds ingest.Dataset, params domain.Params) domain.Params {
	if !ds.HasAvailability {
		params.AvailThreshold = nil
		params.PRBThreshold = nil
	}
	if !ds.HasPRB {
		params.PRBThreshold = nil
	}
	return params
}

// publish writes alarms in batches of batchSize, retrying each batch with
// exponential backoff.
func (p *Pipeline) publish(ctx context.Context, alarms []domain.ClassifiedRow) error {
	size := p.batchSize
	if size <= 0 {
		size = len(alarms)
	}

	for start := 0; start < len(alarms); start += size {
		end := min(start+size, len(alarms))
		if err := p.loadWithRetry(ctx, alarms[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) loadWithRetry(ctx context.Context, batch []domain.ClassifiedRow) error {
	backoff := p.initialBackoff

	var err error
	for attempt := 1; attempt <= maxPublishAttempts; attempt++ {
		if err = p.loader.LoadBatch(ctx, batch); err == nil {
			p.metrics.AlarmsPublished.Add(float64(len(batch)))
			p.metrics.PublishBatchSize.Observe(float64(len(batch)))
			return nil
		}

		p.metrics.PublishErrors.Inc()
		p.logger.Error("load alarm batch failed", "error", err, "batch_size", len(batch), "attempt", attempt)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == maxPublishAttempts {
			break
		}
		if !sleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, p.maxBackoff)
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxPublishAttempts, err)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
