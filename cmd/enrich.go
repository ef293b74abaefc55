package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run one enrichment batch over indexed items",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		stats, err := p.queue.ProcessQueue(cmd.Context())
		if err != nil {
			return err
		}
		if stats.Skipped {
			fmt.Println("enrichment skipped (already running or cooling down)")
			return nil
		}
		fmt.Printf("processed %d items: %d enriched, %d failed\n", stats.Processed, stats.Enriched, stats.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
