package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/katori-hub/Cortex/internal/capture"
)

var (
	captureTitle    string
	captureSource   string
	capturePlatform string
	captureProject  string
	captureNoEnrich bool
)

var captureCmd = &cobra.Command{
	Use:   "capture <url>",
	Short: "Capture a URL into the knowledge store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		payload := map[string]string{}
		if capturePlatform != "" {
			payload["platform"] = capturePlatform
		}
		if captureProject != "" {
			payload["project"] = captureProject
		}

		itemID, err := p.intake.Capture(cmd.Context(), capture.Request{
			URL:             args[0],
			Title:           captureTitle,
			Source:          captureSource,
			PlatformPayload: payload,
		})
		if err != nil {
			return err
		}
		fmt.Printf("captured item %d\n", itemID)

		if !captureNoEnrich {
			stats, err := p.queue.ProcessQueue(cmd.Context())
			if err != nil {
				return err
			}
			if !stats.Skipped {
				fmt.Printf("enriched %d/%d items (%d failed)\n", stats.Enriched, stats.Processed, stats.Failed)
			}
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().StringVar(&captureTitle, "title", "", "Title hint for the captured page")
	captureCmd.Flags().StringVar(&captureSource, "source", "user", "Capture source (user, extension, automation, scheduler)")
	captureCmd.Flags().StringVar(&capturePlatform, "platform", "", "Originating platform")
	captureCmd.Flags().StringVar(&captureProject, "project", "", "Project to file the item under")
	captureCmd.Flags().BoolVar(&captureNoEnrich, "no-enrich", false, "Skip the enrichment run after capture")
	rootCmd.AddCommand(captureCmd)
}
