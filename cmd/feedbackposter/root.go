package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"feedbackposter/pkg/config"
)

// RootOptions holds global flags and the settings loaded from them.
type RootOptions struct {
	Verbose    bool
	ConfigFile string

	Logger *logrus.Logger
	Config config.Config
}

func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	cmd := &cobra.Command{
		Use:   "feedbackposter",
		Short: "Post survey feedback to Bluesky",
		Long: `Reads feedback rows from an Excel workbook, CSV export or Google Sheet and
posts each new row to a Bluesky account, remembering the last posted row
in a small JSON state file.

Settings come from the environment (and a .env file), optionally layered
over a TOML file given with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a TOML config file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

func (o *RootOptions) load() error {
	config.LoadEnv(o.Logger)
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return err
	}
	if o.Verbose {
		cfg.LogLevel = logrus.DebugLevel
	}
	o.Logger.SetLevel(cfg.LogLevel)
	o.Config = cfg
	return nil
}
