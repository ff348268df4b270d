package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// homepageCmd represents the homepage command
var homepageCmd = &cobra.Command{
	Use:   "homepage",
	Short: "Scrape the company homepage links",
	Long: `Fetch every configured homepage link in order, keep the visible text of
each page and save the snapshot as homepage_results.json.

A link that fails is reported and skipped; the snapshot holds the rest.

Example:
  coinsight homepage
  coinsight homepage --data-dir ./mtr`,
	RunE: runHomepage,
}

func init() {
	rootCmd.AddCommand(homepageCmd)
}

func runHomepage(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.homepage().Run(ctx, a.cfg.Company.HomepageLinks, printProgress)
	if err != nil {
		return fmt.Errorf("homepage scrape failed: %w", err)
	}
	if err := a.store.SaveHomepage(snap); err != nil {
		return fmt.Errorf("save homepage: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Saved %d of %d pages (%s)\n", len(snap.Results), len(a.cfg.Company.HomepageLinks), snap.Date)
	return nil
}
