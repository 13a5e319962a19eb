package http

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"cloud.google.com/go/civil"

	"github.com/couchcryptid/noc-kpi-engine/internal/domain"
	"github.com/couchcryptid/noc-kpi-engine/internal/ingest"
	"github.com/couchcryptid/noc-kpi-engine/internal/pipeline"
)

// multipartMemory bounds the in-memory part of a multipart upload; larger
// files spill to disk.
const multipartMemory = 8 << 20

// Analyzer runs analyses over uploaded KPI CSV files.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (domain.Report, error)
	Options(ctx context.Context, r io.Reader) (domain.FilterOptions, error)
}

// errBadRequest marks malformed query parameters and uploads.
var errBadRequest = errors.New("bad request")

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sel, err := parseSelection(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	params, err := parseParams(q, s.cfg.Defaults)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	publish, err := parseBool(q, "publish")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body, err := s.csvBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer body.Close()

	report, err := s.api.Analyze(r.Context(), pipeline.Request{
		CSV:       body,
		Selection: sel,
		Params:    params,
		Publish:   publish,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	body, err := s.csvBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer body.Close()

	opts, err := s.api.Options(r.Context(), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// csvBody returns the uploaded CSV: the "file" part of a multipart form, or
// the raw request body otherwise.
func (s *Server) csvBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("%w: parse upload: %w", errBadRequest, err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: multipart field \"file\": %v", errBadRequest, err)
	}
	return file, nil
}

func parseSelection(q url.Values) (domain.Selection, error) {
	sel := domain.Selection{
		Site:   q.Get("site"),
		Sector: q.Get("sector"),
		Band:   q.Get("band"),
	}

	var err error
	if sel.Start, err = parseDate(q, "start"); err != nil {
		return sel, err
	}
	if sel.End, err = parseDate(q, "end"); err != nil {
		return sel, err
	}
	return sel, nil
}

// parseParams overlays query parameters on the defaults. An empty
// avail_threshold or prb_threshold disables that half of the availability rule.
func parseParams(q url.Values, defaults domain.Params) (domain.Params, error) {
	p := domain.Params{
		Threshold:       defaults.Threshold,
		ConsecutiveDays: defaults.ConsecutiveDays,
		AvailThreshold:  copyFloat(defaults.AvailThreshold),
		PRBThreshold:    copyFloat(defaults.PRBThreshold),
	}

	if s := q.Get("threshold"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, fmt.Errorf("%w: threshold %q", errBadRequest, s)
		}
		p.Threshold = v
	}
	if s := q.Get("consecutive_days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, fmt.Errorf("%w: consecutive_days %q", errBadRequest, s)
		}
		p.ConsecutiveDays = n
	}

	for _, opt := range []struct {
		key string
		dst **float64
	}{
		{"avail_threshold", &p.AvailThreshold},
		{"prb_threshold", &p.PRBThreshold},
	} {
		if !q.Has(opt.key) {
			continue
		}
		s := q.Get(opt.key)
		if s == "" {
			*opt.dst = nil
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, fmt.Errorf("%w: %s %q", errBadRequest, opt.key, s)
		}
		*opt.dst = &v
	}

	return p, p.Validate()
}

func parseDate(q url.Values, key string) (civil.Date, error) {
	s := q.Get(key)
	if s == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %s %q, want YYYY-MM-DD", errBadRequest, key, s)
	}
	return d, nil
}

func parseBool(q url.Values, key string) (bool, error) {
	s := q.Get(key)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s %q", errBadRequest, key, s)
	}
	return v, nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// writeError maps engine, ingest, and upload errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var parseErr *csv.ParseError

	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrPublishDisabled):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidParams),
		errors.Is(err, domain.ErrInvalidRow),
		errors.Is(err, ingest.ErrMissingColumn),
		errors.Is(err, ingest.ErrDuplicateColumn),
		errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrPublishFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
