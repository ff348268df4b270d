package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	historyKind  string
	historyLimit int
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded analysis runs",
	Long: `List the most recent annual report and background runs.

Example:
  coinsight history
  coinsight history --kind annual_report --limit 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.history.List(ctx, historyKind, historyLimit)
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tKIND\tSTATUS\tSTAGE\tMODEL\tID")
		for _, r := range runs {
			stage := r.Stage
			if stage == "" {
				stage = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04"), r.Kind, r.Status, stage,
				strings.TrimPrefix(r.Provider+"/"+r.Model, "/"), r.ID)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "only list runs of this kind (annual_report, background)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs")
}
