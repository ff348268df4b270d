package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// overviewCmd represents the overview command
var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Summarise the company background",
	Long: `Combine the saved homepage and news snapshots into a company overview
written by the text-generation service. Run 'coinsight homepage' and
'coinsight news' first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.analyzer.Overview(ctx)
		if err != nil {
			return fmt.Errorf("overview failed: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Homepage %s, news %s\n", report.HomeDate, report.NewsDate)
			fmt.Fprintf(os.Stderr, "✓ Generated overview using %s/%s\n\n", report.LLM.Provider, report.LLM.Model)
		}
		fmt.Println(report.Overview)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(overviewCmd)
}
