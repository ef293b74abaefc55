package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline state: item counts, events, embeddings, last synthesis",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		counts, err := d.CountItemsByStatus()
		if err != nil {
			return err
		}
		statuses := make([]string, 0, len(counts))
		for s := range counts {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)

		fmt.Println("items:")
		total := 0
		for _, s := range statuses {
			fmt.Printf("  %-10s %d\n", s, counts[s])
			total += counts[s]
		}
		fmt.Printf("  %-10s %d\n", "total", total)

		events, err := d.CountEvents()
		if err != nil {
			return err
		}
		embeddings, err := d.CountEmbeddings()
		if err != nil {
			return err
		}
		fmt.Printf("events: %d\nembeddings: %d\n", events, embeddings)

		run, err := d.LatestSynthesisRun()
		if err != nil {
			return err
		}
		if run != nil {
			fmt.Printf("last synthesis: %s (%s, %d items)\n", run.ID, run.Status, run.ItemCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
