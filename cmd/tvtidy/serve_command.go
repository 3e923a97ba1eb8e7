package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pokerjest/tvtidy/internal/logui"
)

func newServeCommand(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the live log page without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := logui.NewServer(app.hub, app.cfg.Server)
			addr := fmt.Sprintf(":%d", app.cfg.Server.Port)
			cmd.Printf("listening on %s\n", addr)
			return srv.Run(addr)
		},
	}
}
