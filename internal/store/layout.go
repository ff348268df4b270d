package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/coinsight/internal/model"
)

// CachedLayout is the on-disk form of one layout extraction. Raw holds
// the service response verbatim when it was JSON.
type CachedLayout struct {
	Provider string               `json:"provider"`
	Document model.ParsedDocument `json:"document"`
	Raw      json.RawMessage      `json:"raw,omitempty"`
}

// SaveParsed persists a layout result and records its path in the
// pointer's first entry. The pointer must already exist.
func (s *Store) SaveParsed(provider string, doc *model.ParsedDocument, raw []byte) (string, error) {
	p, err := s.LoadPointer()
	if err != nil {
		return "", err
	}

	entry := CachedLayout{Provider: provider, Document: *doc}
	if len(raw) > 0 && json.Valid(raw) {
		entry.Raw = json.RawMessage(raw)
	}
	// compact: layout results run to megabytes
	if err := s.encodeJSON(LayoutFile, entry, ""); err != nil {
		return "", err
	}

	path := s.Path(LayoutFile)
	p.Results[0].Content = &path
	if err := s.SavePointer(p); err != nil {
		return "", err
	}
	return path, nil
}

// ReportPath is the PDF path recorded in the pointer
func (s *Store) ReportPath() (string, error) {
	p, err := s.LoadPointer()
	if err != nil {
		return "", err
	}
	if p.Results[0].Path == "" {
		return "", fmt.Errorf("pointer has no report path: %w", ErrNotFound)
	}
	return p.Results[0].Path, nil
}

// ParsedPath derives the cached layout path from the pointer
func (s *Store) ParsedPath() (string, error) {
	p, err := s.LoadPointer()
	if err != nil {
		return "", err
	}
	content := p.Results[0].Content
	if content == nil || *content == "" {
		return "", fmt.Errorf("annual report has not been parsed: %w", ErrNotFound)
	}
	return *content, nil
}

// LoadParsed reads the cached layout referenced by the pointer
func (s *Store) LoadParsed() (*CachedLayout, error) {
	path, err := s.ParsedPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read cached layout: %w", err)
	}

	var cached CachedLayout
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("decode cached layout: %w", err)
	}
	return &cached, nil
}

// LoadParsedDocument returns just the normalized document
func (s *Store) LoadParsedDocument() (*model.ParsedDocument, error) {
	cached, err := s.LoadParsed()
	if err != nil {
		return nil, err
	}
	return &cached.Document, nil
}

// LoadAnalyzedDocument returns the cached layout that report was built
// from. A layout for a different report, or one re-extracted since the
// analysis ran, is reported as ErrStale.
func (s *Store) LoadAnalyzedDocument(report *model.AnalysisReport) (*model.ParsedDocument, error) {
	if report.ReportPath != "" {
		current, err := s.ReportPath()
		if err != nil {
			return nil, err
		}
		if current != report.ReportPath {
			return nil, fmt.Errorf("analysis was built from %s but the current report is %s: %w", report.ReportPath, current, ErrStale)
		}
	}
	doc, err := s.LoadParsedDocument()
	if err != nil {
		return nil, err
	}
	if report.TableCount > 0 && len(doc.Tables) != report.TableCount {
		return nil, fmt.Errorf("analysis covers %d tables but the cached layout has %d: %w", report.TableCount, len(doc.Tables), ErrStale)
	}
	return doc, nil
}
