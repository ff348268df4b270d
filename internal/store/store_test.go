package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/coinsight/internal/model"
)

func TestStore_PointerRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	pdf, err := s.SaveReportPDF([]byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("SaveReportPDF: %v", err)
	}
	if err := s.SavePointer(&model.AnnualReportPointer{
		Date:    "20240301",
		Results: []model.AnnualReportEntry{{Path: pdf}},
	}); err != nil {
		t.Fatalf("SavePointer: %v", err)
	}

	if _, err := s.ParsedPath(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before parsing, got %v", err)
	}

	doc := &model.ParsedDocument{
		Pages: []model.Page{{Index: 0, PageNumber: 1, Lines: []model.Line{{Content: "CONTENTS"}}}},
	}
	saved, err := s.SaveParsed("azure", doc, []byte(`{"status":"succeeded"}`))
	if err != nil {
		t.Fatalf("SaveParsed: %v", err)
	}

	// reload the pointer from disk and re-derive the cache path
	reloaded := New(s.Dir)
	derived, err := reloaded.ParsedPath()
	if err != nil {
		t.Fatalf("ParsedPath: %v", err)
	}
	if derived != saved {
		t.Errorf("cache path changed across round trip: %q vs %q", derived, saved)
	}

	// saving the reloaded pointer again keeps the path byte-for-byte
	p, _ := reloaded.LoadPointer()
	if err := reloaded.SavePointer(p); err != nil {
		t.Fatalf("SavePointer: %v", err)
	}
	again, _ := reloaded.ParsedPath()
	if again != saved {
		t.Errorf("path changed after re-save: %q vs %q", again, saved)
	}

	got, err := reloaded.LoadParsed()
	if err != nil {
		t.Fatalf("LoadParsed: %v", err)
	}
	if got.Provider != "azure" || len(got.Document.Pages) != 1 || got.Document.Pages[0].Text() != "CONTENTS" {
		t.Errorf("unexpected cached layout: %+v", got)
	}
	if string(got.Raw) != `{"status":"succeeded"}` {
		t.Errorf("raw result not kept verbatim: %s", got.Raw)
	}

	reportPath, err := reloaded.ReportPath()
	if err != nil || reportPath != pdf {
		t.Errorf("ReportPath = %q, %v", reportPath, err)
	}
}

func TestStore_MissingArtifacts(t *testing.T) {
	s := New(t.TempDir())

	if _, err := s.LoadHomepage(); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadHomepage: expected ErrNotFound, got %v", err)
	}
	if _, err := s.LoadParsedDocument(); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadParsedDocument: expected ErrNotFound, got %v", err)
	}
	if _, err := s.SaveParsed("azure", &model.ParsedDocument{}, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveParsed without pointer: expected ErrNotFound, got %v", err)
	}

	_ = s.SavePointer(&model.AnnualReportPointer{Date: "20240301"})
	if _, err := s.LoadPointer(); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty pointer: expected ErrNotFound, got %v", err)
	}
}

func TestStore_SnapshotsAndDates(t *testing.T) {
	s := New(t.TempDir())

	if d := s.UpdateDates(); d != (model.UpdateDates{}) {
		t.Errorf("expected empty dates, got %+v", d)
	}

	_ = s.SaveHomepage(&model.HomepageSnapshot{
		Date:    "20240301",
		Results: []model.HomepagePage{{Link: "https://www.mtr.com.hk", Content: "港鐵 <Caring>"}},
	})
	_ = s.SaveNews(&model.NewsSnapshot{
		Date:    "20240302",
		Results: []model.NewsArticle{{Title: "MTR", PublishedAt: "2024-03-02T00:00:00Z"}},
	})

	raw, err := os.ReadFile(filepath.Join(s.Dir, HomepageFile))
	if err != nil {
		t.Fatalf("read homepage file: %v", err)
	}
	if !strings.Contains(string(raw), "港鐵 <Caring>") {
		t.Errorf("expected unescaped text on disk, got %s", raw)
	}

	news, err := s.LoadNews()
	if err != nil {
		t.Fatalf("LoadNews: %v", err)
	}
	if news.Results[0].PublishedAt != "2024-03-02T00:00:00Z" {
		t.Errorf("unexpected article: %+v", news.Results[0])
	}

	d := s.UpdateDates()
	if d.Homepage != "20240301" || d.News != "20240302" || d.AnnualReport != "" {
		t.Errorf("unexpected dates: %+v", d)
	}
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.json")

	if err := WriteFileAtomic(path, strings.NewReader("{}")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 || entries[0].Name() != "file.json" {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestStore_AnalysisAndOverview(t *testing.T) {
	s := New(t.TempDir())

	if _, err := s.LoadAnalysis(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	report := &model.AnalysisReport{
		RunID:      "run-1",
		Classified: map[string]string{"Cash flow": "cash_flow"},
		Rendered:   model.RenderedContent{{Category: model.CategoryCashFlow, Content: "| a |"}},
	}
	if err := s.SaveAnalysis(report); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	got, err := s.LoadAnalysis()
	if err != nil {
		t.Fatalf("LoadAnalysis: %v", err)
	}
	if got.RunID != "run-1" || got.Classified["Cash flow"] != "cash_flow" || len(got.Rendered) != 1 {
		t.Errorf("Unexpected analysis: %+v", got)
	}

	if err := s.SaveOverview(&model.BackgroundReport{RunID: "run-2", Overview: "MTR runs trains."}); err != nil {
		t.Fatalf("SaveOverview: %v", err)
	}
	overview, err := s.LoadOverview()
	if err != nil {
		t.Fatalf("LoadOverview: %v", err)
	}
	if overview.Overview != "MTR runs trains." {
		t.Errorf("Unexpected overview %q", overview.Overview)
	}
}

func TestStore_LoadAnalyzedDocument(t *testing.T) {
	s := New(t.TempDir())
	pdf, err := s.SaveReportPDF([]byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("SaveReportPDF: %v", err)
	}
	if err := s.SavePointer(&model.AnnualReportPointer{Date: "20240301", Results: []model.AnnualReportEntry{{Path: pdf}}}); err != nil {
		t.Fatalf("SavePointer: %v", err)
	}
	if _, err := s.SaveParsed("azure", &model.ParsedDocument{Tables: []model.Table{{RowCount: 1}, {RowCount: 2}}}, nil); err != nil {
		t.Fatalf("SaveParsed: %v", err)
	}

	doc, err := s.LoadAnalyzedDocument(&model.AnalysisReport{ReportPath: pdf, TableCount: 2})
	if err != nil {
		t.Fatalf("matching analysis: %v", err)
	}
	if len(doc.Tables) != 2 {
		t.Errorf("expected 2 tables, got %d", len(doc.Tables))
	}

	if _, err := s.LoadAnalyzedDocument(&model.AnalysisReport{ReportPath: filepath.Join("elsewhere", "old.pdf")}); !errors.Is(err, ErrStale) {
		t.Errorf("other report: expected ErrStale, got %v", err)
	}
	if _, err := s.LoadAnalyzedDocument(&model.AnalysisReport{ReportPath: pdf, TableCount: 5}); !errors.Is(err, ErrStale) {
		t.Errorf("re-extracted layout: expected ErrStale, got %v", err)
	}
}
