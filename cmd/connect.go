package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var connectDismiss int64

var connectCmd = &cobra.Command{
	Use:   "connect [item-id]",
	Short: "Run connection discovery for an item, or list its connections",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		if connectDismiss > 0 {
			if err := p.engine.Dismiss(connectDismiss); err != nil {
				return err
			}
			fmt.Printf("dismissed connection %d\n", connectDismiss)
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("item id required (or use --dismiss)")
		}
		itemID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id: %s", args[0])
		}

		created, err := p.engine.DiscoverConnections(itemID)
		if err != nil {
			return err
		}
		fmt.Printf("discovered %d new connections\n", created)

		conns, err := p.db.ConnectionsForItem(itemID)
		if err != nil {
			return err
		}
		for _, c := range conns {
			other := c.ItemA
			if other == itemID {
				other = c.ItemB
			}
			mark := " "
			if c.Dismissed {
				mark = "x"
			}
			fmt.Printf("  [%s] #%d item %d (%.3f)\n", mark, c.ID, other, c.Score)
		}
		return nil
	},
}

func init() {
	connectCmd.Flags().Int64Var(&connectDismiss, "dismiss", 0, "Dismiss the connection with this ID")
	rootCmd.AddCommand(connectCmd)
}
