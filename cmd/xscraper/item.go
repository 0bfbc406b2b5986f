package main

import (
	"github.com/spf13/cobra"

	"xscraper/pkg/fetcher"
)

var itemWorkers int

// itemCmd represents the item command
var itemCmd = &cobra.Command{
	Use:   "item <id>...",
	Short: "Fetch individual posts by id",
	Long: `Fetch one or more posts by their numeric id.

Posts that the API no longer serves are recovered by searching their
conversation, and as a last resort by scraping the public status page.
Each record is tagged with the source that produced it.`,
	Example: `  xscraper item 1724519283740291072

  xscraper item 1724519283740291072 1724520000000000000`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		return runBatch(a, fetcher.KindItemDetail, args, 1, itemWorkers)
	},
}

func init() {
	rootCmd.AddCommand(itemCmd)
	itemCmd.Flags().IntVar(&itemWorkers, "workers", 2, "concurrent lookups")
}
