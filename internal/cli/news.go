package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var newsQuery string

// newsCmd represents the news command
var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Search recent news about the company",
	Long: `Query the news API and save the articles as news_results.json.

Requires NEWS_API_KEY.

Example:
  coinsight news
  coinsight news --query "MTR Corporation"`,
	RunE: runNews,
}

func init() {
	rootCmd.AddCommand(newsCmd)
	newsCmd.Flags().StringVar(&newsQuery, "query", "", "search query (default: news.query)")
}

func runNews(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	query := newsQuery
	if query == "" {
		query = a.cfg.News.Query
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Searching news: %s\n", query)
	}

	snap, err := a.news().Search(ctx, query)
	if err != nil {
		return fmt.Errorf("news search failed: %w", err)
	}
	if err := a.store.SaveNews(snap); err != nil {
		return fmt.Errorf("save news: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Saved %d articles (%s)\n", len(snap.Results), snap.Date)
	return nil
}
