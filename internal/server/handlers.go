package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/export"
	"github.com/ppiankov/coinsight/internal/insight"
	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/pipeline"
	"github.com/ppiankov/coinsight/internal/sources"
	"github.com/ppiankov/coinsight/internal/statement"
	"github.com/ppiankov/coinsight/internal/store"
	"github.com/ppiankov/coinsight/internal/tables"
)

type indexData struct {
	Company     string
	Dates       model.UpdateDates
	Overview    *model.BackgroundReport
	Analysis    *model.AnalysisReport
	InsightHTML template.HTML
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{Company: s.deps.Company.Name, Dates: s.deps.Store.UpdateDates()}
	if ov, err := s.deps.Store.LoadOverview(); err == nil {
		data.Overview = ov
	}
	if a, err := s.deps.Store.LoadAnalysis(); err == nil {
		data.Analysis = a
		data.InsightHTML = insight.HTML(a.Insight)
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error("render index failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.deps.Store.UpdateDates())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.respondJSON(w, http.StatusOK, map[string]any{"runs": []model.RunRecord{}})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := s.deps.History.List(r.Context(), r.URL.Query().Get("kind"), limit)
	if err != nil {
		s.fail(w, "list history", err)
		return
	}
	if runs == nil {
		runs = []model.RunRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleHomepageStream runs the homepage scrape and streams every
// progress event as a server-sent event
func (s *Server) handleHomepageStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if !s.busy.TryLock() {
		s.respondError(w, http.StatusConflict, "another job is running")
		return
	}
	defer s.busy.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	snap, err := s.deps.Homepage.Run(r.Context(), s.deps.Company.HomepageLinks, func(e model.ProgressEvent) {
		writeEvent(w, "progress", e)
		flusher.Flush()
	})
	if err == nil {
		err = s.deps.Store.SaveHomepage(snap)
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("homepage scrape failed", zap.Error(err))
		}
		writeEvent(w, "error", map[string]string{"error": err.Error()})
		flusher.Flush()
		return
	}

	writeEvent(w, "done", map[string]any{"date": snap.Date, "pages": len(snap.Results)})
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{}`)
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if !s.lock(w) {
		return
	}
	defer s.busy.Unlock()

	snap, err := s.deps.News.Search(r.Context(), s.deps.NewsQuery)
	if err != nil {
		s.fail(w, "news search", err)
		return
	}
	if err := s.deps.Store.SaveNews(snap); err != nil {
		s.fail(w, "save news", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"date": snap.Date, "articles": len(snap.Results)})
}

func (s *Server) handleReportFetch(w http.ResponseWriter, r *http.Request) {
	if !s.lock(w) {
		return
	}
	defer s.busy.Unlock()

	report, err := s.deps.Reports.Latest(r.Context())
	if err != nil {
		s.fail(w, "fetch report", err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleReportParse(w http.ResponseWriter, r *http.Request) {
	if !s.lock(w) {
		return
	}
	defer s.busy.Unlock()

	doc, err := s.deps.Analyzer.Parse(r.Context())
	if err != nil {
		s.fail(w, "parse report", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"pages": len(doc.Pages), "tables": len(doc.Tables)})
}

type analysisResponse struct {
	*model.AnalysisReport
	HTML template.HTML `json:"html"`
}

func (s *Server) handleReportAnalyze(w http.ResponseWriter, r *http.Request) {
	if !s.lock(w) {
		return
	}
	defer s.busy.Unlock()

	report, err := s.deps.Analyzer.Analyze(r.Context(), nil)
	if err != nil {
		s.fail(w, "analyze report", err)
		return
	}
	s.respondJSON(w, http.StatusOK, analysisResponse{AnalysisReport: report, HTML: insight.HTML(report.Insight)})
}

func (s *Server) handleReportAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Store.LoadAnalysis()
	if err != nil {
		s.fail(w, "load analysis", err)
		return
	}
	s.respondJSON(w, http.StatusOK, analysisResponse{AnalysisReport: report, HTML: insight.HTML(report.Insight)})
}

func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Store.LoadAnalysis()
	if err != nil {
		s.fail(w, "load analysis", err)
		return
	}
	doc, err := s.deps.Store.LoadAnalyzedDocument(report)
	if err != nil {
		s.fail(w, "load parsed report", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, doc, report.Categories); err != nil {
		s.fail(w, "export workbook", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="annual_report_statements.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if !s.lock(w) {
		return
	}
	defer s.busy.Unlock()

	report, err := s.deps.Analyzer.Overview(r.Context())
	if err != nil {
		s.fail(w, "company overview", err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) lock(w http.ResponseWriter) bool {
	if s.busy.TryLock() {
		return true
	}
	s.respondError(w, http.StatusConflict, "another job is running")
	return false
}

func (s *Server) fail(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(action+" failed", zap.Error(err))
	} else {
		s.logger.Info(action+" rejected", zap.Int("status", status), zap.Error(err))
	}

	body := map[string]string{"error": err.Error()}
	var se *pipeline.StageError
	if errors.As(err, &se) {
		body["stage"] = string(se.Stage)
	}
	s.respondJSON(w, status, body)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, sources.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrStale):
		return http.StatusConflict
	case errors.Is(err, sources.ErrNoAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, statement.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, tables.ErrPageNumberNotFound),
		errors.Is(err, tables.ErrPageOutOfRange),
		errors.Is(err, tables.ErrInvalidRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
