// Package server provides the three-tab dashboard and its JSON API.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/sources"
	"github.com/ppiankov/coinsight/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// HomepageRunner scrapes the configured homepage links
type HomepageRunner interface {
	Run(ctx context.Context, links []string, progress func(model.ProgressEvent)) (*model.HomepageSnapshot, error)
}

// NewsSearcher queries the news API
type NewsSearcher interface {
	Search(ctx context.Context, query string) (*model.NewsSnapshot, error)
}

// ReportFetcher downloads the latest annual report
type ReportFetcher interface {
	Latest(ctx context.Context) (*sources.DownloadedReport, error)
}

// Analyzer parses and analyzes the downloaded report and writes the
// company overview
type Analyzer interface {
	Parse(ctx context.Context) (*model.ParsedDocument, error)
	Analyze(ctx context.Context, progress func(model.ProgressEvent)) (*model.AnalysisReport, error)
	Overview(ctx context.Context) (*model.BackgroundReport, error)
}

// RunLister lists recorded runs
type RunLister interface {
	List(ctx context.Context, kind string, limit int) ([]model.RunRecord, error)
}

// Deps are the services behind the dashboard
type Deps struct {
	Store     *store.Store
	Company   model.CompanyConfig
	NewsQuery string
	Homepage  HomepageRunner
	News      NewsSearcher
	Reports   ReportFetcher
	Analyzer  Analyzer
	History   RunLister
}

// Server is the HTTP server for the dashboard
type Server struct {
	deps   Deps
	config model.ServerConfig
	logger *zap.Logger
	tmpl   *template.Template
	server *http.Server

	// jobs run one at a time
	busy sync.Mutex
}

// NewServer creates a server with the given dependencies
func NewServer(deps Deps, cfg model.ServerConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Server{deps: deps, config: cfg, logger: logger, tmpl: tmpl}, nil
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
		r.Get("/homepage/stream", s.handleHomepageStream)
		r.Post("/news", s.handleNews)
		r.Post("/overview", s.handleOverview)

		r.Route("/report", func(r chi.Router) {
			r.Post("/fetch", s.handleReportFetch)
			r.Post("/parse", s.handleReportParse)
			r.Post("/analyze", s.handleReportAnalyze)
			r.Get("/analysis", s.handleReportAnalysis)
			r.Get("/export.xlsx", s.handleReportExport)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("took", time.Since(start)))
	})
}
