package model

import "time"

// Config is the complete coinsight configuration.
// It is built once at startup and passed to every component that talks to
// an external service.
type Config struct {
	DataDir      string             `yaml:"data_dir" mapstructure:"data_dir"`
	Company      CompanyConfig      `yaml:"company" mapstructure:"company"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	News         NewsConfig         `yaml:"news" mapstructure:"news"`
	Layout       LayoutConfig       `yaml:"layout" mapstructure:"layout"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Analysis     AnalysisConfig     `yaml:"analysis" mapstructure:"analysis"`
	History      HistoryConfig      `yaml:"history" mapstructure:"history"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// CompanyConfig describes the company being researched
type CompanyConfig struct {
	Name          string   `yaml:"name" mapstructure:"name"`
	HomepageLinks []string `yaml:"homepage_links" mapstructure:"homepage_links"`
	// ReportIndexURL is the per-year report page; {year} is substituted
	ReportIndexURL string `yaml:"report_index_url" mapstructure:"report_index_url"`
	// ReportBaseURL is prefixed to the relative PDF link found on the index page
	ReportBaseURL    string `yaml:"report_base_url" mapstructure:"report_base_url"`
	ReportLinkSelect string `yaml:"report_link_selector" mapstructure:"report_link_selector"`
	ReportOldestYear int    `yaml:"report_oldest_year" mapstructure:"report_oldest_year"`
}

// HTTPConfig controls outbound fetches
type HTTPConfig struct {
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxReportBytes int64         `yaml:"max_report_bytes" mapstructure:"max_report_bytes"`
	RespectRobots  bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy      string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy     string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls the fetch cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitingConfig applies per domain
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// NewsConfig configures the news API client
type NewsConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Query    string `yaml:"query" mapstructure:"query"`
	Language string `yaml:"language,omitempty" mapstructure:"language"`
	APIKey   string `yaml:"-" mapstructure:"api_key"`
}

// LayoutConfig selects and configures the layout extraction service
type LayoutConfig struct {
	Provider     string        `yaml:"provider" mapstructure:"provider"` // azure, mistral, local
	Endpoint     string        `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	APIKey       string        `yaml:"-" mapstructure:"api_key"`
	Model        string        `yaml:"model" mapstructure:"model"`
	APIVersion   string        `yaml:"api_version,omitempty" mapstructure:"api_version"`
	Locale       string        `yaml:"locale,omitempty" mapstructure:"locale"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LLMConfig configures the text-generation service
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, azure, anthropic, ollama, gemini
	// Model empty uses the provider's default; azure needs the deployment name
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"-" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIVersion string `yaml:"api_version,omitempty" mapstructure:"api_version"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AnalysisConfig tunes the statement pipeline
type AnalysisConfig struct {
	TOCPages         int  `yaml:"toc_pages" mapstructure:"toc_pages"`
	RefineBoundaries bool `yaml:"refine_boundaries" mapstructure:"refine_boundaries"`
	RefineWindow     int  `yaml:"refine_window" mapstructure:"refine_window"`
}

// HistoryConfig selects where analysis runs are recorded
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"-" mapstructure:"database_url"`
}

// ServerConfig configures the dashboard
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir: "data",
		Company: CompanyConfig{
			Name: "MTR Corporation",
			HomepageLinks: []string{
				"https://www.mtr.com.hk/purpose-vision-values/en/index.html",
				"https://www.mtr.com.hk/en/corporate/consultancy/our-attributes.html",
				"https://www.mtr.com.hk/en/corporate/overview/profile_index.html",
				"https://www.mtr.com.hk/en/corporate/sustainability/our_approach.html",
				"https://www.mtr.com.hk/sustainability/en/home.html",
				"https://www.mtr.com.hk/en/corporate/sustainability/policy_statement.html",
				"https://www.mtr.com.hk/en/corporate/sustainability/community_connect.html",
				"https://www.mtr.com.hk/en/corporate/sustainability/operating_responsibly.html",
				"https://www.mtr.com.hk/en/corporate/sustainability/sustainability_reporting.html",
			},
			ReportIndexURL:   "https://www.mtr.com.hk/en/corporate/investor/{year}frpt.html",
			ReportBaseURL:    "https://www.mtr.com.hk",
			ReportLinkSelect: `a[title="here"]`,
			ReportOldestYear: 2011,
		},
		HTTP: HTTPConfig{
			Timeout:        60 * time.Second,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			MaxBodyBytes:   5_000_000,
			MaxReportBytes: 200_000_000,
			RespectRobots:  false,
		},
		Cache: CacheConfig{
			Enabled:   false,
			Dir:       ".coinsight-cache",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         2,
		},
		News: NewsConfig{
			BaseURL: "https://newsapi.org",
			Query:   "港鐵",
		},
		Layout: LayoutConfig{
			Provider:     "azure",
			Model:        "prebuilt-layout",
			APIVersion:   "2023-07-31",
			Locale:       "en-US",
			PollInterval: 2 * time.Second,
			Timeout:      10 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "",
			Timeout:   120,
			MaxTokens: 2000,
		},
		Analysis: AnalysisConfig{
			TOCPages:         5,
			RefineBoundaries: false,
			RefineWindow:     5,
		},
		History: HistoryConfig{
			Enabled:    true,
			Driver:     "sqlite",
			SQLitePath: "data/history.db",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8501,
		},
	}
}
