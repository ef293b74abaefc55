package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/katori-hub/Cortex/internal/db"
)

var synthForce bool

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Run the daily synthesis pass over recently enriched items",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		if synthForce {
			r, err := p.sched.Run(cmd.Context())
			if err != nil {
				return err
			}
			printRun(r)
			return nil
		}

		r, err := p.sched.RunIfNeeded(cmd.Context())
		if err != nil {
			return err
		}
		if r == nil {
			fmt.Println("synthesis already completed today")
			return nil
		}
		printRun(r)
		return nil
	},
}

func printRun(r *db.SynthesisRun) {
	if r == nil {
		return
	}
	fmt.Printf("run %s: %s (%d items)\n", r.ID, r.Status, r.ItemCount)
	if r.Themes != nil {
		fmt.Printf("  themes: %s\n", *r.Themes)
	}
	if r.Insights != nil {
		fmt.Printf("  insights: %s\n", *r.Insights)
	}
	if r.ProposedTasks != nil {
		fmt.Printf("  proposed tasks: %s\n", *r.ProposedTasks)
	}
}

func init() {
	synthCmd.Flags().BoolVar(&synthForce, "force", false, "Run even if a synthesis completed today")
	rootCmd.AddCommand(synthCmd)
}
