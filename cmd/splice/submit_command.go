package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"splice/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var opts api.SubmitOptions
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a source file for transcoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer source.Close()

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := client.submitJob(cmd.Context(), opts, source)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s\n", job.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.VideoCodec, "video-codec", "", "Video codec (required)")
	cmd.Flags().StringArrayVar(&opts.VideoParams, "video-param", nil, "Extra video encoder parameter (repeatable)")
	cmd.Flags().StringVar(&opts.AudioCodec, "audio-codec", "", "Audio codec (omit to keep audio untouched)")
	cmd.Flags().StringArrayVar(&opts.AudioParams, "audio-param", nil, "Extra audio encoder parameter (repeatable)")
	cmd.Flags().Float64Var(&opts.SegmentSeconds, "segment-seconds", 0, "Split the source into segments of this length (0 disables splitting)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the created job as JSON")
	_ = cmd.MarkFlagRequired("video-codec")

	return cmd
}
