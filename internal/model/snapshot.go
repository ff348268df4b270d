package model

import "time"

// DateLayout is the YYYYMMDD stamp written into every snapshot
const DateLayout = "20060102"

// DateStamp formats t as YYYYMMDD
func DateStamp(t time.Time) string {
	return t.Format(DateLayout)
}

// HomepageSnapshot is persisted as homepage_data.json
type HomepageSnapshot struct {
	Date    string         `json:"date"`
	Results []HomepagePage `json:"results"`
}

// HomepagePage is the visible text of one scraped link
type HomepagePage struct {
	Link    string `json:"link"`
	Content string `json:"content"`
}

// NewsSnapshot is persisted as news_data.json
type NewsSnapshot struct {
	Date    string        `json:"date"`
	Results []NewsArticle `json:"results"`
}

// NewsArticle mirrors the fields kept from the news API
type NewsArticle struct {
	Source      string `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// AnnualReportPointer is persisted as annual_report.json
type AnnualReportPointer struct {
	Date    string              `json:"date"`
	Results []AnnualReportEntry `json:"results"`
}

// AnnualReportEntry points at the PDF and, once parsed, at the cached layout result
type AnnualReportEntry struct {
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

// ProgressEvent is emitted while a fixed sequence of fetches runs
type ProgressEvent struct {
	Messages []string `json:"messages"`
	Fraction float64  `json:"fraction"`
}
