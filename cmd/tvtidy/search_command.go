package main

import (
	"github.com/spf13/cobra"
)

func newSearchCommand(app *app) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Find show directories on the alist mount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := app.organizer(false)
			if err != nil {
				return err
			}
			hits, err := o.SearchShows(cmd.Context(), parent, args[0])
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				cmd.Println("no matches")
				return nil
			}
			for _, e := range hits {
				marker := " "
				if e.IsDir {
					marker = "d"
				}
				cmd.Printf("%s %s\n", marker, e.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "/", "Directory to search under")
	return cmd
}
