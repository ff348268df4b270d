package model

import "time"

// AnalysisReport is the outcome of one annual-report analysis run
type AnalysisReport struct {
	RunID       string            `json:"run_id"`
	ReportPath  string            `json:"report_path"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Pairs       []StatementPair   `json:"pairs"`
	Entries     []StatementEntry  `json:"entries"`
	Categories  []CategoryTables  `json:"categories"`
	Rendered    RenderedContent   `json:"rendered"`
	Insight     string            `json:"insight"`
	LLM         LLMInfo           `json:"llm"`
	Refined     bool              `json:"refined"`
	Classified  map[string]string `json:"classified,omitempty"` // statement name -> category
	TokensUsed  int               `json:"tokens_used,omitempty"`
	PageCount   int               `json:"page_count"`
	TableCount  int               `json:"table_count"`
	ErrorDetail string            `json:"error,omitempty"`
}

// LLMInfo records which model produced the text
type LLMInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// BackgroundReport is the company-overview summary
type BackgroundReport struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	Overview   string    `json:"overview"`
	NewsDate   string    `json:"news_date"`
	HomeDate   string    `json:"homepage_date"`
	LLM        LLMInfo   `json:"llm"`
	TokensUsed int       `json:"tokens_used,omitempty"`
}

// RunRecord is one row of analysis history
type RunRecord struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // annual_report, background
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"` // succeeded, failed
	Stage      string    `json:"stage,omitempty"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Output     string    `json:"output"`
	Error      string    `json:"error,omitempty"`
}

// UpdateDates is the date stamp of each snapshot, empty when missing
type UpdateDates struct {
	Homepage     string `json:"homepage"`
	News         string `json:"news"`
	AnnualReport string `json:"annual_report"`
}
