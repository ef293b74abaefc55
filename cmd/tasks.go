package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	tasksStatus string
	tasksSet    string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks [task-id]",
	Short: "List proposed tasks or update a task's status",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		if tasksSet != "" {
			if len(args) == 0 {
				return fmt.Errorf("task id required with --set")
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id: %s", args[0])
			}
			if err := p.db.SetTaskStatus(id, tasksSet); err != nil {
				return err
			}
			fmt.Printf("task %d set to %s\n", id, tasksSet)
			return nil
		}

		tasks, err := p.db.ListTasks(tasksStatus, 100)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("#%d [%s] %s\n", t.ID, t.Status, t.Title)
		}
		return nil
	},
}

func init() {
	tasksCmd.Flags().StringVar(&tasksStatus, "status", "", "Filter by status (proposed, accepted, done, dropped)")
	tasksCmd.Flags().StringVar(&tasksSet, "set", "", "Set the task's status")
	rootCmd.AddCommand(tasksCmd)
}
