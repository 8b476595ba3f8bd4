// Package config reads the poster's settings once at startup into an
// immutable Config.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"feedbackposter/pkg/bluesky"
	"feedbackposter/pkg/poster"
	"feedbackposter/pkg/sheets"
)

var (
	// ErrMissingCredentials means BSKY_HANDLE or BSKY_APP_PWD is unset.
	ErrMissingCredentials = errors.New("missing Bluesky credentials: BSKY_HANDLE and BSKY_APP_PWD are required")
	// ErrInvalid wraps a setting that could not be parsed.
	ErrInvalid = errors.New("invalid setting")
)

type BlueskyConfig struct {
	Handle      string
	AppPassword string
	Host        string
}

type SourceConfig struct {
	Path            string
	Sheet           string
	CredentialsFile string
}

type ColumnConfig struct {
	Message   string
	Name      string
	Timestamp string
	Keyword   string
}

type StateConfig struct {
	File            string
	Reset           bool
	ForcePostFirstN int
}

type PostingConfig struct {
	Delay    time.Duration
	Interval time.Duration
}

type ServerConfig struct {
	ListenAddress   string
	MetricsTextfile string
}

// Config is the complete set of named settings.
type Config struct {
	Bluesky  BlueskyConfig
	Source   SourceConfig
	Columns  ColumnConfig
	State    StateConfig
	Posting  PostingConfig
	Server   ServerConfig
	LogLevel logrus.Level
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Bluesky: BlueskyConfig{Host: bluesky.DefaultHost},
		Source:  SourceConfig{Path: "data/survey.xlsx"},
		Columns: ColumnConfig{
			Message:   "Message",
			Name:      "Name",
			Timestamp: "Timestamp",
			Keyword:   poster.DefaultKeyword,
		},
		State:    StateConfig{File: "last_row.json"},
		Posting:  PostingConfig{Delay: poster.DefaultPostDelay, Interval: time.Hour},
		Server:   ServerConfig{ListenAddress: ":8080"},
		LogLevel: logrus.InfoLevel,
	}
}

// Load builds a Config from defaults, then the TOML file at path (if path is
// non-empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.State.ForcePostFirstN < 0 {
		return Config{}, fmt.Errorf("%w: FORCE_POST_FIRST_N must not be negative", ErrInvalid)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Bluesky.Handle, "BSKY_HANDLE")
	setString(&cfg.Bluesky.AppPassword, "BSKY_APP_PWD")
	setString(&cfg.Bluesky.Host, "BSKY_HOST")

	setString(&cfg.Source.Path, "EXCEL_PATH")
	setString(&cfg.Source.Sheet, "SHEET_NAME")
	setString(&cfg.Source.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")

	setString(&cfg.Columns.Message, "MESSAGE_COL")
	setString(&cfg.Columns.Name, "NAME_COL")
	setString(&cfg.Columns.Timestamp, "TIMESTAMP_COL")
	setString(&cfg.Columns.Keyword, "REVIEW_KEYWORD")

	setString(&cfg.State.File, "STATE_FILE")
	setString(&cfg.Server.ListenAddress, "LISTEN_ADDRESS")
	setString(&cfg.Server.MetricsTextfile, "METRICS_TEXTFILE")

	setBool(&cfg.State.Reset, "RESET_STATE")
	if err := setInt(&cfg.State.ForcePostFirstN, "FORCE_POST_FIRST_N"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Posting.Delay, "POST_DELAY"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Posting.Interval, "POST_INTERVAL"); err != nil {
		return err
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("%w: LOG_LEVEL=%q", ErrInvalid, v)
		}
		cfg.LogLevel = level
	}
	return nil
}

// RequireCredentials fails when the Bluesky handle or app password is unset.
func (c Config) RequireCredentials() error {
	if c.Bluesky.Handle == "" || c.Bluesky.AppPassword == "" {
		return ErrMissingCredentials
	}
	return nil
}

// PosterOptions is the driver configuration derived from c.
func (c Config) PosterOptions() poster.Options {
	return poster.Options{
		Handle:          c.Bluesky.Handle,
		Secret:          c.Bluesky.AppPassword,
		MessageColumn:   c.Columns.Message,
		NameColumn:      c.Columns.Name,
		TimestampColumn: c.Columns.Timestamp,
		Keyword:         c.Columns.Keyword,
		ForceFirstN:     c.State.ForcePostFirstN,
		PostDelay:       c.Posting.Delay,
	}
}

// SheetSource names the tabular source.
func (c Config) SheetSource() sheets.Source {
	return sheets.Source{
		Location:        c.Source.Path,
		Sheet:           c.Source.Sheet,
		CredentialsFile: c.Source.CredentialsFile,
	}
}
