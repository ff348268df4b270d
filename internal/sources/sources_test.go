package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/coinsight/internal/cache"
	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/store"
	"github.com/ppiankov/coinsight/internal/util"
	"github.com/ppiankov/coinsight/internal/worker"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "coinsight-test",
		MaxBodyBytes: 1 << 20,
	}
}

// onePagePDF builds a minimal single-page PDF with a correct xref table
func onePagePDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
	}
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

func TestFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "coinsight-test" {
			t.Errorf("Unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>0123456789</body></html>")
	}))
	defer server.Close()

	f := NewFetcher(testHTTPConfig())
	res, err := f.Fetch(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(res.Body) != "<html><body>0123456789</body></html>" {
		t.Errorf("Unexpected body %q", res.Body)
	}
	if res.ContentType != "text/html" {
		t.Errorf("Unexpected content type %q", res.ContentType)
	}

	_, err = f.Fetch(context.Background(), server.URL+"/missing")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 StatusError, got %v", err)
	}
}

func TestFetcher_BodyLimits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("x", 100))
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 10
	f := NewFetcher(cfg)

	res, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(res.Body) != 10 {
		t.Errorf("Expected page body truncated to 10 bytes, got %d", len(res.Body))
	}

	if _, err := f.Download(context.Background(), server.URL, 50); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
	res, err = f.Download(context.Background(), server.URL, 100)
	if err != nil || len(res.Body) != 100 {
		t.Errorf("Expected full 100 byte download, got %v (%v)", res, err)
	}
}

func TestFetcher_Cache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "<p>cached</p>")
	}))
	defer server.Close()

	f := NewFetcher(testHTTPConfig(), WithCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Minute))

	first, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	second, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 request, got %d", hits.Load())
	}
	if first.FromCache || !second.FromCache {
		t.Errorf("Unexpected cache flags: %v, %v", first.FromCache, second.FromCache)
	}
	if string(second.Body) != "<p>cached</p>" {
		t.Errorf("Unexpected cached body %q", second.Body)
	}
}

func TestFetcher_Robots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		_, _ = fmt.Fprint(w, "<p>ok</p>")
	}))
	defer server.Close()

	robots := util.NewRobotsChecker("coinsight-test", server.Client(), time.Minute)
	f := NewFetcher(testHTTPConfig(), WithRobots(robots), WithLimiter(worker.NewLimiter(0, 1)))

	if _, err := f.Fetch(context.Background(), server.URL+"/private/page"); !errors.Is(err, ErrDisallowed) {
		t.Errorf("Expected ErrDisallowed, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), server.URL+"/public"); err != nil {
		t.Errorf("Expected public page to be allowed, got %v", err)
	}
}

func TestVisibleText(t *testing.T) {
	page := []byte(`<html><head><title>MTR</title><style>p{color:red}</style>
<script>var x = 1;</script></head>
<body><h1>Our   Vision</h1><!-- hidden --><p>Keeping cities
moving</p><noscript>enable js</noscript></body></html>`)

	got, err := VisibleText(page)
	if err != nil {
		t.Fatalf("VisibleText failed: %v", err)
	}
	if got != "MTR Our Vision Keeping cities moving" {
		t.Errorf("Unexpected text %q", got)
	}
}

func TestHomepageScraper_Run(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a", "/c":
			_, _ = fmt.Fprintf(w, "<p>page %s</p>", r.URL.Path[1:])
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	links := []string{server.URL + "/a", server.URL + "/b", server.URL + "/c"}
	s := NewHomepageScraper(NewFetcher(testHTTPConfig()), "MTR", nil)
	s.now = func() time.Time { return time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) }

	var events []model.ProgressEvent
	snap, err := s.Run(context.Background(), links, func(e model.ProgressEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if snap.Date != "20240305" {
		t.Errorf("Unexpected date %q", snap.Date)
	}
	if len(snap.Results) != 2 || snap.Results[0].Content != "page a" || snap.Results[1].Link != links[2] {
		t.Fatalf("Unexpected results: %+v", snap.Results)
	}

	last := events[len(events)-1]
	if last.Fraction != 1 {
		t.Errorf("Expected final fraction 1, got %v", last.Fraction)
	}
	want := []string{
		"[MTR Homepage Search]",
		"[1] " + links[0] + " Extracted!",
		"[3] " + links[2] + " Extracted!",
		"All links have been processed.",
	}
	if len(last.Messages) != len(want) {
		t.Fatalf("Expected messages %v, got %v", want, last.Messages)
	}
	for i := range want {
		if last.Messages[i] != want[i] {
			t.Errorf("message %d: expected %q, got %q", i, want[i], last.Messages[i])
		}
	}
}

func TestHomepageScraper_HeaderNamesCompany(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<p>text</p>")
	}))
	defer server.Close()

	tests := map[string]string{
		"Swire Properties": "[Swire Properties Homepage Search]",
		"":                 "[Homepage Search]",
	}
	for company, want := range tests {
		s := NewHomepageScraper(NewFetcher(testHTTPConfig()), company, nil)
		var first string
		_, err := s.Run(context.Background(), []string{server.URL + "/"}, func(e model.ProgressEvent) {
			if first == "" && len(e.Messages) > 0 {
				first = e.Messages[0]
			}
		})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if first != want {
			t.Errorf("company %q: expected header %q, got %q", company, want, first)
		}
	}
}

func TestHomepageScraper_Cancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<p>text</p>")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewHomepageScraper(NewFetcher(testHTTPConfig()), "MTR", nil)

	_, err := s.Run(ctx, []string{server.URL + "/1", server.URL + "/2"}, func(e model.ProgressEvent) {
		if e.Fraction > 0 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestNewsClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/everything" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "港鐵" {
			t.Errorf("Unexpected query %q", r.URL.Query().Get("q"))
		}
		if r.Header.Get("X-Api-Key") != "news-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = fmt.Fprint(w, `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"status":"ok","totalResults":1,"articles":[{"source":{"id":null,"name":"RTHK"},"author":null,"title":"MTR fares","description":"d","url":"https://news.example/1","publishedAt":"2024-01-01T00:00:00Z","content":"c"}]}`)
	}))
	defer server.Close()

	c := NewNewsClient(model.NewsConfig{BaseURL: server.URL, APIKey: "news-key"}, server.Client(), nil)
	c.now = func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) }

	snap, err := c.Search(context.Background(), "港鐵")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if snap.Date != "20240102" || len(snap.Results) != 1 {
		t.Fatalf("Unexpected snapshot: %+v", snap)
	}
	a := snap.Results[0]
	if a.Source != "RTHK" || a.Author != "" || a.Title != "MTR fares" || a.PublishedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("Unexpected article: %+v", a)
	}

	bad := NewNewsClient(model.NewsConfig{BaseURL: server.URL, APIKey: "wrong"}, server.Client(), nil)
	if _, err := bad.Search(context.Background(), "港鐵"); err == nil || !strings.Contains(err.Error(), "apiKeyInvalid") {
		t.Errorf("Expected API error, got %v", err)
	}

	missing := NewNewsClient(model.NewsConfig{BaseURL: server.URL}, nil, nil)
	if _, err := missing.Search(context.Background(), "港鐵"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func newReportServer(t *testing.T) *httptest.Server {
	t.Helper()
	pdf := onePagePDF()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/investor/2023frpt.html":
			_, _ = fmt.Fprint(w, `<a href="/pdf/broken.pdf" title="here">here</a>`)
		case "/investor/2022frpt.html":
			_, _ = fmt.Fprint(w, `<a href="/elsewhere">other</a><a href="/pdf/e_ar_2022.pdf" title="here">here</a>`)
		case "/pdf/broken.pdf":
			_, _ = fmt.Fprint(w, "not a pdf")
		case "/pdf/e_ar_2022.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write(pdf)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestReportFinder_Latest(t *testing.T) {
	server := newReportServer(t)
	defer server.Close()

	st := store.New(t.TempDir())
	company := model.CompanyConfig{
		ReportIndexURL:   server.URL + "/investor/{year}frpt.html",
		ReportBaseURL:    server.URL,
		ReportOldestYear: 2020,
	}
	finder := NewReportFinder(NewFetcher(testHTTPConfig()), st, company, 1<<20, nil)
	finder.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	report, err := finder.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if report.Year != 2022 || report.URL != server.URL+"/pdf/e_ar_2022.pdf" || report.Pages != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}

	data, err := os.ReadFile(report.Path)
	if err != nil || !strings.HasPrefix(string(data), "%PDF-") {
		t.Fatalf("Expected saved PDF at %s: %v", report.Path, err)
	}

	pointer, err := st.LoadPointer()
	if err != nil {
		t.Fatalf("LoadPointer failed: %v", err)
	}
	if pointer.Date != "20240601" || pointer.Results[0].Path != report.Path || pointer.Results[0].Content != nil {
		t.Errorf("Unexpected pointer: %+v", pointer)
	}
}

func TestReportFinder_NotFound(t *testing.T) {
	server := newReportServer(t)
	defer server.Close()

	company := model.CompanyConfig{
		ReportIndexURL:   server.URL + "/investor/{year}frpt.html",
		ReportBaseURL:    server.URL,
		ReportOldestYear: 2023,
	}
	st := store.New(t.TempDir())
	finder := NewReportFinder(NewFetcher(testHTTPConfig()), st, company, 1<<20, nil)
	finder.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	if _, err := finder.Latest(context.Background()); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("Expected ErrReportNotFound, got %v", err)
	}
	if _, err := st.LoadPointer(); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected no pointer, got %v", err)
	}
}

func TestResolveLink(t *testing.T) {
	r := &ReportFinder{company: model.CompanyConfig{ReportBaseURL: "https://www.mtr.com.hk/"}}
	tests := map[string]string{
		"/archive/corporate/en/investor/e_ar_2023.pdf": "https://www.mtr.com.hk/archive/corporate/en/investor/e_ar_2023.pdf",
		"https://cdn.example.com/ar.pdf":               "https://cdn.example.com/ar.pdf",
		"files/ar.pdf":                                 "https://www.mtr.com.hk/en/corporate/investor/files/ar.pdf",
	}
	for href, want := range tests {
		got, err := r.resolveLink("https://www.mtr.com.hk/en/corporate/investor/2023frpt.html", href)
		if err != nil || got != want {
			t.Errorf("resolveLink(%q) = %q, %v; want %q", href, got, err, want)
		}
	}
}
