package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	var taskID string
	var restart bool

	cmd := &cobra.Command{
		Use:   "cancel [job-id]",
		Short: "Cancel a job, or a single task with --task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if taskID != "" {
				view, err := client.cancelTask(cmd.Context(), taskID, restart)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Task %s is now %s\n", view.ID, view.State)
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("a job id or --task is required")
			}
			if restart {
				return fmt.Errorf("--restart applies to --task only")
			}
			resp, err := client.cancelJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Cancelled %d task(s)\n", resp.Cancelled)
			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task", "", "Cancel this task instead of a whole job")
	cmd.Flags().BoolVar(&restart, "restart", false, "Return the task to the queue instead of cancelling it")
	return cmd
}

func newOutputCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "output <job-id>",
		Short: "Download the output of a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			dest := cmd.OutOrStdout()
			if outPath != "" {
				file, err := createOutputFile(outPath)
				if err != nil {
					return err
				}
				defer file.Close()
				dest = file
			}

			written, err := client.jobOutput(cmd.Context(), args[0], dest)
			if err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", written, outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination file (default stdout)")
	return cmd
}

func createOutputFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return file, nil
}
