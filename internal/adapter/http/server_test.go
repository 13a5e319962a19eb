package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/noc-kpi-engine/internal/adapter/http"
	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
	"github.com/couchcryptid/noc-kpi-engine/internal/observability"
	"github.com/couchcryptid/noc-kpi-engine/internal/pipeline"
)

const scenarioCSV = `Date,eNodeBName,Sector,Band,PRB,Availability
2025-01-01,X,1,L1800,80,99.9
2025-01-02,X,1,L1800,90,99.9
2025-01-03,X,1,L1800,92,99.9
2025-01-04,X,1,L1800,60,99.9
2025-01-05,X,1,L1800,95,99.9
2025-01-01,Y,2,L900,50,99.9
`

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockLoader struct {
	err error
}

func (m *mockLoader) LoadBatch(context.Context, []domain.ClassifiedRow) error { return m.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultAPIConfig() httpadapter.APIConfig {
	avail, prb := 95.0, 85.0
	return httpadapter.APIConfig{
		Defaults:       domain.Params{Threshold: 85, ConsecutiveDays: 3, AvailThreshold: &avail, PRBThreshold: &prb},
		MaxUploadBytes: 1 << 20,
	}
}

func newTestServer(readyErr error, loader pipeline.AlarmLoader) *httpadapter.Server {
	p := pipeline.New(pipeline.NewAnalyzer(nil, discardLogger()), loader, discardLogger(), observability.NewMetricsForTesting(), 50)
	return httpadapter.NewServer(":0", p, &mockReadiness{err: readyErr}, defaultAPIConfig(), discardLogger())
}

func postCSV(t *testing.T, srv http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) domain.Report {
	t.Helper()
	var report domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return report
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAnalyze_Defaults(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := postCSV(t, srv, "/api/v1/analyze", scenarioCSV)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	report := decodeReport(t, rec)
	assert.Equal(t, 6, report.TotalRows)
	assert.Empty(t, report.MajorAlarms)
	assert.Equal(t, domain.LevelStable, report.Recommendation.Level)
	assert.Equal(t, 3, report.Params.ConsecutiveDays)
}

func TestAnalyze_QueryParameters(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := postCSV(t, srv, "/api/v1/analyze?site=X&sector=1&band=All&consecutive_days=2&start=2025-01-01&end=2025-01-05", scenarioCSV)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeReport(t, rec)

	assert.Equal(t, 5, report.TotalRows)
	require.Len(t, report.MajorAlarms, 1)
	assert.Equal(t, 2, report.MajorAlarms[0].Consecutive)
	assert.Equal(t, "X", report.Selection.Site)
	assert.Equal(t, domain.LevelMajor, report.Recommendation.Level)
	assert.Len(t, report.Recommendation.Actions, 4)
}

func TestAnalyze_DisableAvailabilityRule(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := postCSV(t, srv, "/api/v1/analyze?avail_threshold=&prb_threshold=", scenarioCSV)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeReport(t, rec)
	assert.Nil(t, report.Params.AvailThreshold)
	assert.Nil(t, report.Params.PRBThreshold)
	for _, row := range report.Rows {
		assert.False(t, row.Congestion)
	}
}

func TestAnalyze_Multipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "kpi.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, scenarioCSV)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze?threshold=90", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeReport(t, rec)
	assert.InDelta(t, 90.0, report.Params.Threshold, 0)
	assert.Equal(t, []domain.RankEntry{{Site: "X", Sector: "1", Count: 3}}, report.Ranking)
}

func TestAnalyze_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"bad threshold", "/api/v1/analyze?threshold=high", scenarioCSV, http.StatusBadRequest},
		{"zero consecutive days", "/api/v1/analyze?consecutive_days=0", scenarioCSV, http.StatusBadRequest},
		{"bad start date", "/api/v1/analyze?start=01-01-2025", scenarioCSV, http.StatusBadRequest},
		{"bad publish flag", "/api/v1/analyze?publish=maybe", scenarioCSV, http.StatusBadRequest},
		{"missing column", "/api/v1/analyze", "date,site,prb\n2025-01-01,A,80\n", http.StatusBadRequest},
		{"malformed csv", "/api/v1/analyze", "date,site,sector,prb\n\"2025-01-01,A,1,80\n", http.StatusBadRequest},
		{"publish without kafka", "/api/v1/analyze?publish=true", scenarioCSV, http.StatusConflict},
		{"too large", "/api/v1/analyze", strings.Repeat("x", 2<<20), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(nil, nil)
			rec := postCSV(t, srv, tt.target, tt.body)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAnalyze_PublishFailureReturns502(t *testing.T) {
	srv := newTestServer(nil, &mockLoader{err: errors.New("broker unavailable")})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze?consecutive_days=1&publish=true", strings.NewReader(scenarioCSV))
	req = req.WithContext(ctx)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
}

func TestAnalyze_PublishSucceeds(t *testing.T) {
	srv := newTestServer(nil, &mockLoader{})
	rec := postCSV(t, srv, "/api/v1/analyze?consecutive_days=1&publish=true", scenarioCSV)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeReport(t, rec).MajorAlarms, 3)
}

func TestAnalyze_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyze", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestOptions(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := postCSV(t, srv, "/api/v1/options", scenarioCSV)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var opts domain.FilterOptions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	assert.Equal(t, []string{"X", "Y"}, opts.Sites)
	assert.Equal(t, []string{"1", "2"}, opts.Sectors)
	assert.Equal(t, []string{"L1800", "L900"}, opts.Bands)
	assert.Equal(t, "2025-01-01", opts.MinDate.String())
	assert.Equal(t, "2025-01-05", opts.MaxDate.String())
}
