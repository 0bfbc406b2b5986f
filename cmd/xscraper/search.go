package main

import (
	"github.com/spf13/cobra"

	"xscraper/pkg/fetcher"
)

var (
	searchLimit   int
	searchWorkers int
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search for posts matching one or more queries",
	Long: `Search for recent posts matching each query.

Multiple queries run concurrently over the worker pool while the global
rate governor keeps the overall request pace steady. Each query's
results are saved as a separate JSON batch.`,
	Example: `  # Single query
  xscraper search "climate policy"

  # Several queries in parallel
  xscraper search "from:nasa" "mars rover" --workers 4 --limit 50`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		return runBatch(a, fetcher.KindSearch, args, searchLimit, searchWorkers)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum records per query")
	searchCmd.Flags().IntVar(&searchWorkers, "workers", 2, "concurrent queries")
}
