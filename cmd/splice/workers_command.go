package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWorkersCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "workers",
		Short: "List connected workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			list, err := client.workers(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			if len(list.Workers) == 0 {
				fmt.Fprintln(out, "No workers connected.")
				return nil
			}
			rows := make([][]string, 0, len(list.Workers))
			for _, worker := range list.Workers {
				rows = append(rows, []string{
					worker.DisplayName,
					worker.ID,
					worker.CurrentTask,
					worker.LastSeen,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "ID", "Current Task", "Last Seen"},
				rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the worker list as JSON")
	return cmd
}
