package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pokerjest/tvtidy/internal/logui"
	"github.com/pokerjest/tvtidy/internal/model"
)

func newApplyCommand(app *app) *cobra.Command {
	var dryRun bool
	var ui bool
	var yes bool

	cmd := &cobra.Command{
		Use:   "apply <root>...",
		Short: "Execute the rename plan against the alist mount",
		Long: `Plan and execute renames for one or more show roots.

Every change lands in a journal before the next one starts, so an
interrupted run can be resumed (already-done steps are skipped) or
rolled back with "tvtidy undo <run-id>".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := app.organizer(true)
			if err != nil {
				return err
			}

			if ui {
				app.hub.ResetStop()
				srv := logui.NewServer(app.hub, app.cfg.Server)
				go func() {
					addr := fmt.Sprintf(":%d", app.cfg.Server.Port)
					if err := srv.Run(addr); err != nil {
						cmd.PrintErrln("log ui:", err)
					}
				}()
				cmd.Printf("log ui listening on :%d\n", app.cfg.Server.Port)
			}

			var reports []model.ExecutionReport
			if dryRun {
				reports, err = o.DryRun(cmd.Context(), args)
			} else {
				if !yes {
					o.Confirm = func(plan model.Plan) bool {
						deletes := 0
						for _, op := range plan.Operations {
							if op.Kind == model.OpDelete {
								deletes++
							}
						}
						cmd.Printf("%s: %d mutations (%d deletes)\n",
							plan.Root, plan.Mutations(), deletes)
						return confirm(cmd, "apply this root")
					}
				}
				reports, err = o.Apply(cmd.Context(), args)
			}
			printReports(cmd, reports)
			return err
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print every step without touching the remote")
	cmd.Flags().BoolVar(&ui, "ui", false, "Serve the live log page while running")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the per-root confirmation prompt")
	return cmd
}

func printReports(cmd *cobra.Command, reports []model.ExecutionReport) {
	for _, r := range reports {
		applied, skipped := 0, 0
		for _, out := range r.Outcomes {
			if out.Applied {
				applied++
			}
			if out.Skipped {
				skipped++
			}
		}
		label := "run"
		if r.DryRun {
			label = "dry-run"
		}
		cmd.Printf("%s %s: %d applied, %d skipped, %d failed\n",
			label, r.RunID, applied, skipped, r.Failed)
		if r.Stopped {
			cmd.Println("stopped by request; resume by re-running apply")
		}
	}
}
