package main

import (
	"github.com/spf13/cobra"

	"xscraper/pkg/fetcher"
)

var (
	timelineLimit   int
	timelineWorkers int
)

// timelineCmd represents the timeline command
var timelineCmd = &cobra.Command{
	Use:   "timeline <user>...",
	Short: "Fetch recent posts from user timelines",
	Long: `Fetch recent posts from one or more user timelines.

Users may be given as handles or numeric ids. Handles are resolved
through the API when possible, falling back to scanning the public
profile page for the embedded user id.`,
	Example: `  # By handle
  xscraper timeline nasa

  # Several users, more posts each
  xscraper timeline nasa esa --limit 100`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		return runBatch(a, fetcher.KindTimeline, args, timelineLimit, timelineWorkers)
	},
}

func init() {
	rootCmd.AddCommand(timelineCmd)
	timelineCmd.Flags().IntVarP(&timelineLimit, "limit", "n", 20, "maximum records per user")
	timelineCmd.Flags().IntVar(&timelineWorkers, "workers", 2, "concurrent users")
}
