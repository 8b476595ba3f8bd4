package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"feedbackposter/pkg/api"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Reset bool
	Force int
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Post every row added since the last run",
		Long: `Log in to Bluesky and post each row after the stored cursor, saving the
cursor after every row. The run stops at the first failed post; the next run
picks up from that row.

Example:
  feedbackposter run
  feedbackposter run --reset
  feedbackposter run --force 3 --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("reset") {
				opts.Config.State.Reset = opts.Reset
			}
			if cmd.Flags().Changed("force") {
				if opts.Force < 0 {
					return fmt.Errorf("--force must not be negative")
				}
				opts.Config.State.ForcePostFirstN = opts.Force
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runPoster(ctx, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "discard the stored cursor before posting (RESET_STATE)")
	cmd.Flags().IntVar(&opts.Force, "force", 0, "re-post the first N rows regardless of the cursor (FORCE_POST_FIRST_N)")

	return cmd
}

func runPoster(ctx context.Context, opts *RunOptions) error {
	cfg := opts.Config
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	var reg *prometheus.Registry
	var registerer prometheus.Registerer
	if cfg.Server.MetricsTextfile != "" {
		reg = prometheus.NewRegistry()
		registerer = reg
	}

	job, err := api.NewJob(ctx, cfg, opts.Logger, registerer)
	if err != nil {
		return err
	}
	_, runErr := job.Driver.Run(ctx)

	if reg != nil {
		if err := prometheus.WriteToTextfile(cfg.Server.MetricsTextfile, reg); err != nil {
			opts.Logger.WithError(err).Warn("Could not write metrics textfile")
		}
	}
	return runErr
}
