package cmd

import (
	"github.com/spf13/cobra"

	"github.com/katori-hub/Cortex/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP query surface for extensions and UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		addr := serveAddr
		if addr == "" {
			addr = p.cfg.Server.Addr
		}
		srv := server.New(p.db, p.intake, p.queue, p.engine, p.embed, nil)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
