package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/coinsight/internal/insight"
	"github.com/ppiankov/coinsight/internal/model"
)

// WriteMarkdown renders an analysis report as a standalone document
func WriteMarkdown(w io.Writer, report *model.AnalysisReport) error {
	var sb strings.Builder

	sb.WriteString("# Annual Report Analysis\n\n")
	fmt.Fprintf(&sb, "- **Run:** %s\n", report.RunID)
	fmt.Fprintf(&sb, "- **Report:** %s\n", report.ReportPath)
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Generated:** %s\n", report.FinishedAt.UTC().Format(time.RFC3339))
	}
	if report.LLM.Provider != "" {
		fmt.Fprintf(&sb, "- **Model:** %s (%s)\n", report.LLM.Model, report.LLM.Provider)
	}
	fmt.Fprintf(&sb, "- **Pages / tables:** %d / %d\n\n", report.PageCount, report.TableCount)

	if len(report.Entries) > 0 {
		sb.WriteString("## Statements\n\n")
		sb.WriteString("| Statement | Category | Pages |\n|:---|:---|---:|\n")
		for _, e := range report.Entries {
			category := report.Classified[e.Name]
			if category == "" {
				category = string(model.CategoryNotApplicable)
			}
			pages := fmt.Sprintf("%d", e.StartPage)
			if e.EndPage != e.StartPage {
				pages = fmt.Sprintf("%d-%d", e.StartPage, e.EndPage)
			}
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", strings.ReplaceAll(e.Name, "|", `\|`), category, pages)
		}
		sb.WriteString("\n")
	}

	if sections := insight.Sections(report.Insight); len(sections) > 0 {
		sb.WriteString("## Insight\n")
		for _, s := range sections {
			fmt.Fprintf(&sb, "\n### %s\n\n", s.Title)
			for _, it := range s.Items {
				fmt.Fprintf(&sb, "- **%s:** %s\n", it.Label, it.Text)
			}
		}
		sb.WriteString("\n")
	} else if strings.TrimSpace(report.Insight) != "" {
		sb.WriteString("## Insight\n\n")
		sb.WriteString(strings.TrimSpace(report.Insight))
		sb.WriteString("\n\n")
	}

	if len(report.Rendered) > 0 {
		sb.WriteString("## Source Tables\n")
		for _, c := range report.Rendered {
			fmt.Fprintf(&sb, "\n### %s\n\n", c.Category)
			if c.Content == "" {
				sb.WriteString("_No tables found._\n")
				continue
			}
			sb.WriteString(c.Content)
			sb.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
