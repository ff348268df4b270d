// Package store persists the JSON snapshots and the cached layout
// result under one data directory.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/coinsight/internal/model"
)

// ErrNotFound is returned when a snapshot or cached artifact is missing
var ErrNotFound = errors.New("artifact not found")

// ErrStale is returned when a saved analysis no longer matches the
// cached report it was built from
var ErrStale = errors.New("analysis is out of date, run the analysis again")

const (
	HomepageFile = "homepage_data.json"
	NewsFile     = "news_data.json"
	PointerFile  = "annual_report.json"
	ReportFile   = "annual_report.pdf"
	LayoutFile   = "annual_report.layout.json"
	AnalysisFile = "annual_report.analysis.json"
	OverviewFile = "background_overview.json"
)

// Store reads and writes artifacts under Dir. Writes are atomic.
type Store struct {
	Dir string
}

// New returns a store rooted at dir
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Path joins name onto the data directory
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// SaveHomepage writes the homepage snapshot
func (s *Store) SaveHomepage(snap *model.HomepageSnapshot) error {
	return s.writeJSON(HomepageFile, snap)
}

// LoadHomepage reads the homepage snapshot
func (s *Store) LoadHomepage() (*model.HomepageSnapshot, error) {
	var snap model.HomepageSnapshot
	if err := s.readJSON(HomepageFile, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveNews writes the news snapshot
func (s *Store) SaveNews(snap *model.NewsSnapshot) error {
	return s.writeJSON(NewsFile, snap)
}

// LoadNews reads the news snapshot
func (s *Store) LoadNews() (*model.NewsSnapshot, error) {
	var snap model.NewsSnapshot
	if err := s.readJSON(NewsFile, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SavePointer writes the annual-report pointer
func (s *Store) SavePointer(p *model.AnnualReportPointer) error {
	return s.writeJSON(PointerFile, p)
}

// LoadPointer reads the annual-report pointer. A pointer without
// results is reported as ErrNotFound.
func (s *Store) LoadPointer() (*model.AnnualReportPointer, error) {
	var p model.AnnualReportPointer
	if err := s.readJSON(PointerFile, &p); err != nil {
		return nil, err
	}
	if len(p.Results) == 0 {
		return nil, fmt.Errorf("%s has no results: %w", PointerFile, ErrNotFound)
	}
	return &p, nil
}

// SaveAnalysis writes the latest annual-report analysis
func (s *Store) SaveAnalysis(r *model.AnalysisReport) error {
	return s.writeJSON(AnalysisFile, r)
}

// LoadAnalysis reads the latest annual-report analysis
func (s *Store) LoadAnalysis() (*model.AnalysisReport, error) {
	var r model.AnalysisReport
	if err := s.readJSON(AnalysisFile, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveOverview writes the latest company background overview
func (s *Store) SaveOverview(r *model.BackgroundReport) error {
	return s.writeJSON(OverviewFile, r)
}

// LoadOverview reads the latest company background overview
func (s *Store) LoadOverview() (*model.BackgroundReport, error) {
	var r model.BackgroundReport
	if err := s.readJSON(OverviewFile, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveReportPDF atomically writes the downloaded report and returns its path
func (s *Store) SaveReportPDF(data []byte) (string, error) {
	if err := s.writeFile(ReportFile, data); err != nil {
		return "", err
	}
	return s.Path(ReportFile), nil
}

// UpdateDates returns the date stamp of each snapshot; missing ones are empty
func (s *Store) UpdateDates() model.UpdateDates {
	var dates model.UpdateDates
	if snap, err := s.LoadHomepage(); err == nil {
		dates.Homepage = snap.Date
	}
	if snap, err := s.LoadNews(); err == nil {
		dates.News = snap.Date
	}
	if p, err := s.LoadPointer(); err == nil {
		dates.AnnualReport = p.Date
	}
	return dates
}

func (s *Store) readJSON(name string, out any) error {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// writeJSON keeps non-ASCII text readable and indents like the files
// the dashboard has always written
func (s *Store) writeJSON(name string, v any) error {
	return s.encodeJSON(name, v, "    ")
}

func (s *Store) encodeJSON(name string, v any, indent string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.writeFile(name, buf.Bytes())
}

func (s *Store) writeFile(name string, data []byte) error {
	return WriteFileAtomic(s.Path(name), bytes.NewReader(data))
}

// WriteFileAtomic streams r into a temp file next to path and renames it
// into place, so readers never observe a partial file
func WriteFileAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
