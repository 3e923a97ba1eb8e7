package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	app := newApp(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "tvtidy",
		Short:         "Organize TV show libraries on an alist mount",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newSearchCommand(app))
	rootCmd.AddCommand(newPlanCommand(app))
	rootCmd.AddCommand(newApplyCommand(app))
	rootCmd.AddCommand(newUndoCommand(app))
	rootCmd.AddCommand(newServeCommand(app))

	return rootCmd
}
