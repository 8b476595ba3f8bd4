package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"feedbackposter/pkg/api"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	JSON bool
}

func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the stored cursor and how many rows are waiting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := api.NewJob(cmd.Context(), opts.Config, opts.Logger, nil)
			if err != nil {
				return err
			}
			status, err := job.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.JSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			fmt.Fprintf(out, "State file: %s\n", status.StateFile)
			fmt.Fprintf(out, "Last index: %d\n", status.LastIndex)
			fmt.Fprintf(out, "Rows:       %d\n", status.Rows)
			fmt.Fprintf(out, "Remaining:  %d\n", status.Remaining)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print status as JSON")

	return cmd
}
