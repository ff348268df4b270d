package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/coinsight/internal/export"
	"github.com/ppiankov/coinsight/internal/store"
)

var (
	reportJSON string
	reportMD   string
	exportXLSX string
	exportMD   string
)

// reportCmd groups the annual report commands
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Download, parse and analyze the annual report",
	Long: `Work with the latest annual report.

The steps run in order and each one saves its result under the data
directory, so a later step can be re-run without repeating the earlier ones:

  coinsight report fetch     download the newest published report
  coinsight report parse     extract page lines and tables
  coinsight report analyze   locate statements and write the insight
  coinsight report export    write the statement tables as XLSX or Markdown`,
}

var reportFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the latest annual report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.reports().Latest(ctx)
		if err != nil {
			return fmt.Errorf("fetch report failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Downloaded %d annual report (%d pages)\n", report.Year, report.Pages)
		fmt.Fprintf(os.Stderr, "  %s\n", report.Path)
		return nil
	},
}

var reportParseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Extract the layout of the downloaded report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if verbose {
			fmt.Fprintf(os.Stderr, "Layout provider: %s\n", a.cfg.Layout.Provider)
		}
		doc, err := a.analyzer.Parse(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Parsed %d pages, %d tables\n", len(doc.Pages), len(doc.Tables))
		return nil
	},
}

var reportAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Locate the financial statements and write the insight",
	Long: `Locate the primary financial statements in the parsed report, resolve
their tables, group them by category and ask the text-generation service
for a line-itemised analysis. The insight is printed to stdout.

The report is parsed first when no cached layout exists.

Example:
  coinsight report analyze
  coinsight report analyze --json analysis.json --md analysis.md`,
	RunE: runReportAnalyze,
}

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the located statement tables",
	Long: `Write the tables of the last analysis to an XLSX workbook (one sheet per
category) and/or a Markdown document.

Example:
  coinsight report export --xlsx statements.xlsx
  coinsight report export --md statements.md`,
	RunE: runReportExport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportFetchCmd, reportParseCmd, reportAnalyzeCmd, reportExportCmd)

	reportAnalyzeCmd.Flags().StringVar(&reportJSON, "json", "", "also write the analysis JSON to this path")
	reportAnalyzeCmd.Flags().StringVar(&reportMD, "md", "", "also write a Markdown report to this path")

	reportExportCmd.Flags().StringVar(&exportXLSX, "xlsx", "annual_report_statements.xlsx", "output XLSX path (empty to skip)")
	reportExportCmd.Flags().StringVar(&exportMD, "md", "", "output Markdown path (optional)")
}

func runReportAnalyze(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.analyzer.Analyze(ctx, printProgress)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Located %d statements\n", len(report.Entries))
		for _, g := range report.Categories {
			fmt.Fprintf(os.Stderr, "  %s: tables %v\n", g.Category, g.Tables)
		}
		fmt.Fprintf(os.Stderr, "✓ Generated insight using %s/%s (%d tokens)\n", report.LLM.Provider, report.LLM.Model, report.TokensUsed)
		fmt.Fprintln(os.Stderr)
	}

	if reportJSON != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode analysis: %w", err)
		}
		if err := store.WriteFileAtomic(reportJSON, bytes.NewReader(data)); err != nil {
			return err
		}
	}
	if reportMD != "" {
		var buf bytes.Buffer
		if err := export.WriteMarkdown(&buf, report); err != nil {
			return err
		}
		if err := store.WriteFileAtomic(reportMD, &buf); err != nil {
			return err
		}
	}

	fmt.Println(report.Insight)
	return nil
}

func runReportExport(cmd *cobra.Command, args []string) error {
	if exportXLSX == "" && exportMD == "" {
		return fmt.Errorf("nothing to export: set --xlsx or --md")
	}
	ctx := commandContext(cmd)
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.store.LoadAnalysis()
	if err != nil {
		return fmt.Errorf("load analysis (run 'coinsight report analyze' first): %w", err)
	}

	if exportXLSX != "" {
		doc, err := a.store.LoadAnalyzedDocument(report)
		if err != nil {
			return fmt.Errorf("load parsed report: %w", err)
		}
		var buf bytes.Buffer
		if err := export.WriteWorkbook(&buf, doc, report.Categories); err != nil {
			return err
		}
		if err := store.WriteFileAtomic(exportXLSX, &buf); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", exportXLSX)
	}
	if exportMD != "" {
		var buf bytes.Buffer
		if err := export.WriteMarkdown(&buf, report); err != nil {
			return err
		}
		if err := store.WriteFileAtomic(exportMD, &buf); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", exportMD)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
