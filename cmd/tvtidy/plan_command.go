package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/pokerjest/tvtidy/internal/model"
)

func newPlanCommand(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <root>...",
		Short: "Show what would be renamed, moved and deleted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := app.organizer(true)
			if err != nil {
				return err
			}
			for _, root := range args {
				plan, err := o.PlanRoot(cmd.Context(), root)
				if err != nil {
					return err
				}
				printPlan(cmd, plan)
			}
			return nil
		},
	}
}

func printPlan(cmd *cobra.Command, plan model.Plan) {
	cmd.Printf("%s -> %s (%s)\n", plan.Root, plan.Identity.DirName(), plan.Identity.Source)
	for _, op := range plan.Operations {
		switch op.Kind {
		case model.OpDelete:
			cmd.Printf("  - delete  %s  [%s]\n", op.SourcePath, op.Reason)
		case model.OpSkip:
			cmd.Printf("  - skip    %s  [%s]\n", op.SourcePath, op.Reason)
		default:
			cmd.Printf("  - %-7s %s\n            -> %s\n", op.Kind, op.SourcePath, op.DestinationPath)
		}
	}
	dsts := make([]string, 0, len(plan.Conflicts))
	for dst := range plan.Conflicts {
		dsts = append(dsts, dst)
	}
	sort.Strings(dsts)
	for _, dst := range dsts {
		for _, src := range plan.Conflicts[dst] {
			cmd.Printf("  ! conflict: %s wanted by %s\n", dst, src)
		}
	}
	cmd.Printf("  %d mutations\n", plan.Mutations())
}
