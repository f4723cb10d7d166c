package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splice/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List submitted jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			list, err := client.listJobs(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			if len(list.Jobs) == 0 {
				fmt.Fprintln(out, "No jobs submitted.")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(list.Jobs))
			for _, job := range list.Jobs {
				rows = append(rows, []string{
					job.ID,
					colorizeStatus(job.Status, colorize),
					fmt.Sprintf("%d/%d", job.TasksCompleted, job.TasksTotal),
					job.Options.VideoCodec,
					job.CreatedAt,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Tasks", "Codec", "Created"},
				rows, 2))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the job list as JSON")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.jobStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderSectionHeader("Job "+status.Job.ID, colorize))
			fmt.Fprintf(out, "Status: %s\n", colorizeStatus(status.Job.Status, colorize))
			if status.Job.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:  %s\n", status.Job.ErrorMessage)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Task", "Kind", "State", "Attempts", "Worker", "Duration"},
				taskRows(status.Tasks, colorize), 3))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the job status as JSON")
	return cmd
}

func taskRows(tasks []api.TaskView, colorize bool) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		duration := ""
		if task.Duration != nil {
			duration = fmt.Sprintf("%.1fs", *task.Duration)
		}
		rows = append(rows, []string{
			task.ID,
			task.Kind,
			colorizeStatus(task.State, colorize),
			fmt.Sprintf("%d", task.Attempts),
			task.WorkerID,
			duration,
		})
	}
	return rows
}
