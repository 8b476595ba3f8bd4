package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"feedbackposter/pkg/api"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	Samples int
}

func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the detected review column and the first formatted posts",
		Long: `Read the sheet, pick the review column the same way a run would, and print
the first few posts as they would be published. Nothing is posted and the
cursor is left alone, so no Bluesky credentials are needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := api.NewJob(cmd.Context(), opts.Config, opts.Logger, nil)
			if err != nil {
				return err
			}
			preview, err := job.Driver.Preview(cmd.Context(), opts.Samples)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if preview.Rows == 0 {
				fmt.Fprintln(out, "No data found in sheet")
				return nil
			}
			fmt.Fprintf(out, "Column: %s (%s)\n", preview.Column, preview.Method)
			fmt.Fprintf(out, "Rows: %d\n", preview.Rows)
			for i, sample := range preview.Samples {
				if sample == "" {
					sample = "(skipped: no review text)"
				}
				fmt.Fprintf(out, "\n[%d] %s\n", i, strings.ReplaceAll(sample, "\n", "\n    "))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Samples, "samples", 3, "number of rows to format")

	return cmd
}
