package main

import (
	"github.com/spf13/cobra"
)

func newUndoCommand(app *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "undo <run-id|journal-path>",
		Short: "Roll back a previous run from its journal",
		Long: `Replay a run's journal in reverse. Renames and moves are reverted;
deletes cannot be restored and are reported as skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := app.organizer(true)
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd, "roll back "+args[0]) {
				cmd.Println("aborted")
				return nil
			}
			report, err := o.Undo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("undo: %d/%d reverted, %d not undoable, %d failed\n",
				report.Reverted, report.Total, report.SkippedNA, report.Failed)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
