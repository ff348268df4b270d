package model

// StatementEntry is a financial statement located in the report.
// StartPage and EndPage are page indices into ParsedDocument.Pages.
type StatementEntry struct {
	Name      string `json:"name"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

// StatementPair is a (name, printed page) pair as listed on a contents page
type StatementPair struct {
	Name string `json:"name"`
	Page string `json:"page"`
}

// StatementCategory is the closed taxonomy of financial statements
type StatementCategory string

const (
	CategoryProfitOrLoss        StatementCategory = "profit_or_loss"
	CategoryFinancialPosition   StatementCategory = "financial_position"
	CategoryChangesInEquity     StatementCategory = "changes_in_equity"
	CategoryCashFlow            StatementCategory = "cash_flow"
	CategoryComprehensiveIncome StatementCategory = "comprehensive_income"
	CategoryNotApplicable       StatementCategory = "not_applicable"
)

// Categories lists every category in canonical order
func Categories() []StatementCategory {
	return []StatementCategory{
		CategoryProfitOrLoss,
		CategoryFinancialPosition,
		CategoryChangesInEquity,
		CategoryCashFlow,
		CategoryComprehensiveIncome,
		CategoryNotApplicable,
	}
}

// Valid reports whether c belongs to the closed set
func (c StatementCategory) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// CategoryTables is the union of table indices collected for one category
type CategoryTables struct {
	Category StatementCategory `json:"category"`
	Tables   []int             `json:"tables"`
}

// CategoryContent is the rendered text for one category
type CategoryContent struct {
	Category StatementCategory `json:"category"`
	Content  string            `json:"content"`
}

// RenderedContent keeps categories in first-seen order
type RenderedContent []CategoryContent
