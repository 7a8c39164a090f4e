// Package server exposes dataset analysis over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tablescope/internal/analysis"
	"github.com/KaramelBytes/tablescope/internal/classify"
	"github.com/KaramelBytes/tablescope/internal/insights"
	"github.com/KaramelBytes/tablescope/internal/parser"
	"github.com/KaramelBytes/tablescope/internal/store"
	"github.com/KaramelBytes/tablescope/internal/table"
)

// DefaultMaxUpload bounds multipart uploads when no limit is configured.
const DefaultMaxUpload int64 = 50 << 20

// AnalyzerFactory builds an analyzer for a decoded upload.
type AnalyzerFactory func(name string, t *table.Table) *analysis.Analyzer

// Server routes HTTP requests to the dataset store.
type Server struct {
	store     *store.Store
	analyzer  AnalyzerFactory
	insights  *insights.Generator
	decode    parser.Options
	maxUpload int64
	logger    *zap.Logger
	metrics   *metrics
}

// Option configures a Server.
type Option func(*Server)

// WithInsights enables GET /datasets/{id}/insights.
func WithInsights(g *insights.Generator) Option { return func(s *Server) { s.insights = g } }

// WithMaxUpload sets the largest accepted upload in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithDecodeOptions sets the parser options applied to every upload.
func WithDecodeOptions(o parser.Options) Option { return func(s *Server) { s.decode = o } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Server backed by st. A nil factory uses analysis defaults.
func New(st *store.Store, factory AnalyzerFactory, opts ...Option) *Server {
	if factory == nil {
		factory = func(name string, t *table.Table) *analysis.Analyzer {
			return analysis.New(t, analysis.WithName(name))
		}
	}
	s := &Server{store: st, analyzer: factory, maxUpload: DefaultMaxUpload, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("server")
	s.metrics = newMetrics(func() float64 { return float64(st.Len()) })
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", s.metrics.handler())
	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", s.health)
		r.Get("/formats", s.formats)
		r.Post("/analyze", s.analyze)
		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", s.listDatasets)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getDataset)
				r.Delete("/", s.deleteDataset)
				r.Post("/columns/{column}/type", s.overrideType)
				r.Get("/insights", s.datasetInsights)
			})
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Routes(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", zap.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ok(w, r, map[string]string{"status": "healthy"})
}

func (s *Server) formats(w http.ResponseWriter, r *http.Request) {
	ok(w, r, map[string][]string{"formats": parser.SupportedFormats()})
}

type analyzeResult struct {
	ID       uuid.UUID        `json:"id"`
	Filename string           `json:"filename"`
	Analysis *analysis.Report `json:"analysis"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			fail(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.maxUpload))
			return
		}
		fail(w, r, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		fail(w, r, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}

	opt := s.decode
	if sheet := r.URL.Query().Get("sheet"); sheet != "" {
		opt.Sheet = sheet
	}
	if tbl := r.URL.Query().Get("table"); tbl != "" {
		opt.Table = tbl
	}
	name := filepath.Base(hdr.Filename)
	t, err := parser.Decode(name, data, opt)
	if err != nil {
		fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if t.RowCount() == 0 {
		fail(w, r, http.StatusBadRequest, "file contains no data rows")
		return
	}

	a := s.analyzer(name, t)
	rep, err := a.AnalyzeAll(r.Context())
	if err != nil {
		fail(w, r, http.StatusInternalServerError, fmt.Sprintf("analyze: %v", err))
		return
	}
	id := s.store.Put(name, a, rep)
	s.metrics.analyzed.WithLabelValues(strings.ToLower(filepath.Ext(name))).Inc()
	s.metrics.observe(start)
	s.logger.Info("dataset analyzed",
		zap.String("id", id.String()),
		zap.String("filename", name),
		zap.Int("rows", rep.Overview.Rows),
		zap.Int("columns", rep.Overview.Columns))
	ok(w, r, analyzeResult{ID: id, Filename: name, Analysis: rep})
}

type datasetSummary struct {
	ID       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	Rows     int       `json:"rows"`
	Columns  int       `json:"columns"`
	Created  time.Time `json:"created"`
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	list := s.store.List()
	out := make([]datasetSummary, 0, len(list))
	for _, ds := range list {
		sum := datasetSummary{ID: ds.ID, Filename: ds.Filename, Created: ds.Created}
		if ds.Report != nil {
			sum.Rows = ds.Report.Overview.Rows
			sum.Columns = ds.Report.Overview.Columns
		}
		out = append(out, sum)
	}
	ok(w, r, out)
}

// dataset resolves the {id} parameter, writing the error response itself.
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (store.Dataset, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "invalid dataset id")
		return store.Dataset{}, false
	}
	ds, found := s.store.Get(id)
	if !found {
		fail(w, r, http.StatusNotFound, store.ErrNotFound.Error())
		return store.Dataset{}, false
	}
	return ds, true
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	if ds, found := s.dataset(w, r); found {
		ok(w, r, ds)
	}
}

func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	ds, found := s.dataset(w, r)
	if !found {
		return
	}
	s.store.Delete(ds.ID)
	ok(w, r, map[string]string{"id": ds.ID.String()})
}

type overrideRequest struct {
	Type string `json:"type"`
}

type overrideResult struct {
	Column string                 `json:"column"`
	Report *analysis.ColumnReport `json:"report"`
}

func (s *Server) overrideType(w http.ResponseWriter, r *http.Request) {
	ds, found := s.dataset(w, r)
	if !found {
		return
	}
	column, err := url.PathUnescape(chi.URLParam(r, "column"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "invalid column name")
		return
	}
	var req overrideRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Type == "" {
		fail(w, r, http.StatusBadRequest, `body must be {"type": "<base type>"}`)
		return
	}
	cr, err := s.store.Override(ds.ID, column, req.Type)
	if err != nil {
		s.metrics.overrides.WithLabelValues("rejected").Inc()
		fail(w, r, overrideStatus(err), err.Error())
		return
	}
	s.metrics.overrides.WithLabelValues("applied").Inc()
	ok(w, r, overrideResult{Column: column, Report: cr})
}

func overrideStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, analysis.ErrColumnNotFound):
		return http.StatusNotFound
	case errors.Is(err, classify.ErrUnknownBaseType):
		return http.StatusBadRequest
	case errors.Is(err, classify.ErrNotConvertible):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) datasetInsights(w http.ResponseWriter, r *http.Request) {
	ds, found := s.dataset(w, r)
	if !found {
		return
	}
	if s.insights == nil {
		fail(w, r, http.StatusServiceUnavailable, insights.ErrDisabled.Error())
		return
	}
	text, err := s.insights.Generate(r.Context(), ds.Report)
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, insights.ErrDisabled) {
			code = http.StatusServiceUnavailable
		}
		fail(w, r, code, fmt.Sprintf("Unable to generate insight: %v", err))
		return
	}
	ok(w, r, map[string]string{"insight": text, "model": s.insights.Model()})
}
