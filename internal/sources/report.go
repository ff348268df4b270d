package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/store"
)

// ErrReportNotFound is returned when no year yields an annual report
var ErrReportNotFound = errors.New("no annual report found")

// ReportFinder locates and downloads the most recent annual report
type ReportFinder struct {
	fetcher  *Fetcher
	store    *store.Store
	company  model.CompanyConfig
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

// DownloadedReport describes a saved report
type DownloadedReport struct {
	Year  int    `json:"year"`
	URL   string `json:"url"`
	Path  string `json:"path"`
	Pages int    `json:"pages"`
}

// NewReportFinder returns a finder saving into st
func NewReportFinder(f *Fetcher, st *store.Store, company model.CompanyConfig, maxBytes int64, logger *zap.Logger) *ReportFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportFinder{
		fetcher:  f,
		store:    st,
		company:  company,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

// Latest walks back from the current year to the oldest configured year
// and saves the first report it can download and open. The pointer is
// rewritten with content reset to null, so any earlier parse is stale.
func (r *ReportFinder) Latest(ctx context.Context) (*DownloadedReport, error) {
	oldest := r.company.ReportOldestYear
	if oldest <= 0 {
		oldest = 2011
	}

	for year := r.now().Year(); year >= oldest; year-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report, err := r.tryYear(ctx, year)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Info("no report for year", zap.Int("year", year), zap.Error(err))
			continue
		}

		pointer := &model.AnnualReportPointer{
			Date:    model.DateStamp(r.now()),
			Results: []model.AnnualReportEntry{{Path: report.Path}},
		}
		if err := r.store.SavePointer(pointer); err != nil {
			return nil, fmt.Errorf("save report pointer: %w", err)
		}

		r.logger.Info("annual report downloaded",
			zap.Int("year", report.Year),
			zap.String("url", report.URL),
			zap.Int("pages", report.Pages))
		return report, nil
	}
	return nil, ErrReportNotFound
}

func (r *ReportFinder) tryYear(ctx context.Context, year int) (*DownloadedReport, error) {
	indexURL := strings.ReplaceAll(r.company.ReportIndexURL, "{year}", strconv.Itoa(year))
	page, err := r.fetcher.Fetch(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	href, err := r.findLink(page.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", indexURL, err)
	}
	pdfURL, err := r.resolveLink(indexURL, href)
	if err != nil {
		return nil, err
	}

	pdf, err := r.fetcher.Download(ctx, pdfURL, r.maxBytes)
	if err != nil {
		return nil, err
	}
	pages, err := api.PageCount(bytes.NewReader(pdf.Body), nil)
	if err != nil {
		return nil, fmt.Errorf("%s is not a readable PDF: %w", pdfURL, err)
	}
	if pages == 0 {
		return nil, fmt.Errorf("%s has no pages", pdfURL)
	}

	path, err := r.store.SaveReportPDF(pdf.Body)
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return &DownloadedReport{Year: year, URL: pdfURL, Path: path, Pages: pages}, nil
}

func (r *ReportFinder) findLink(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}
	selector := r.company.ReportLinkSelect
	if selector == "" {
		selector = `a[title="here"]`
	}
	href, ok := doc.Find(selector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("no report link matching %s", selector)
	}
	return strings.TrimSpace(href), nil
}

// resolveLink prefixes site-relative links with the configured base URL
// and resolves other relative links against the index page
func (r *ReportFinder) resolveLink(indexURL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse report link %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if strings.HasPrefix(href, "/") && r.company.ReportBaseURL != "" {
		return strings.TrimSuffix(r.company.ReportBaseURL, "/") + href, nil
	}
	base, err := url.Parse(indexURL)
	if err != nil {
		return "", fmt.Errorf("parse index URL: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
