package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/katori-hub/Cortex/internal/graph"
)

var (
	searchSemantic bool
	searchLimit    int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search captured items by keyword or embedding similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		query := strings.Join(args, " ")

		if searchSemantic {
			vec, err := p.embed.Embed(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("embedding query: %w", err)
			}
			candidates, err := p.db.AllEmbeddings()
			if err != nil {
				return err
			}
			matches := graph.FindSimilar(graph.Normalize(vec), candidates, 0, searchLimit, 0.35)
			for _, m := range matches {
				item, err := p.db.GetItem(m.ItemID)
				if err != nil || item == nil {
					continue
				}
				title := item.URL
				if item.Title != nil && *item.Title != "" {
					title = *item.Title
				}
				fmt.Printf("%.3f  #%d %s\n", m.Similarity, item.ID, title)
			}
			return nil
		}

		items, err := p.db.SearchItems(query, searchLimit)
		if err != nil {
			return err
		}
		for _, item := range items {
			title := item.URL
			if item.Title != nil && *item.Title != "" {
				title = *item.Title
			}
			fmt.Printf("#%d [%s] %s\n", item.ID, item.Status, title)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchSemantic, "semantic", false, "Rank by embedding similarity instead of keywords")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum results")
	rootCmd.AddCommand(searchCmd)
}
