package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// fileSettings is the TOML layout. Unset keys keep their defaults; pointers
// tell "false"/"0" apart from absent.
type fileSettings struct {
	Bluesky struct {
		Handle      string `toml:"handle"`
		AppPassword string `toml:"app_password"`
		Host        string `toml:"host"`
	} `toml:"bluesky"`
	Source struct {
		Path            string `toml:"path"`
		Sheet           string `toml:"sheet"`
		CredentialsFile string `toml:"credentials_file"`
	} `toml:"source"`
	Columns struct {
		Message   string `toml:"message"`
		Name      string `toml:"name"`
		Timestamp string `toml:"timestamp"`
		Keyword   string `toml:"keyword"`
	} `toml:"columns"`
	State struct {
		File            string `toml:"file"`
		Reset           *bool  `toml:"reset"`
		ForcePostFirstN *int   `toml:"force_post_first_n"`
	} `toml:"state"`
	Posting struct {
		Delay    string `toml:"delay"`
		Interval string `toml:"interval"`
	} `toml:"posting"`
	Server struct {
		ListenAddress   string `toml:"listen_address"`
		MetricsTextfile string `toml:"metrics_textfile"`
	} `toml:"server"`
	LogLevel string `toml:"log_level"`
}

func applyFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fs fileSettings
	if err := toml.Unmarshal(b, &fs); err != nil {
		return fmt.Errorf("%w: config %s: %v", ErrInvalid, path, err)
	}

	override(&cfg.Bluesky.Handle, fs.Bluesky.Handle)
	override(&cfg.Bluesky.AppPassword, fs.Bluesky.AppPassword)
	override(&cfg.Bluesky.Host, fs.Bluesky.Host)
	override(&cfg.Source.Path, fs.Source.Path)
	override(&cfg.Source.Sheet, fs.Source.Sheet)
	override(&cfg.Source.CredentialsFile, fs.Source.CredentialsFile)
	override(&cfg.Columns.Message, fs.Columns.Message)
	override(&cfg.Columns.Name, fs.Columns.Name)
	override(&cfg.Columns.Timestamp, fs.Columns.Timestamp)
	override(&cfg.Columns.Keyword, fs.Columns.Keyword)
	override(&cfg.State.File, fs.State.File)
	override(&cfg.Server.ListenAddress, fs.Server.ListenAddress)
	override(&cfg.Server.MetricsTextfile, fs.Server.MetricsTextfile)

	if fs.State.Reset != nil {
		cfg.State.Reset = *fs.State.Reset
	}
	if fs.State.ForcePostFirstN != nil {
		cfg.State.ForcePostFirstN = *fs.State.ForcePostFirstN
	}
	for _, d := range []struct {
		dst *time.Duration
		raw string
		key string
	}{
		{&cfg.Posting.Delay, fs.Posting.Delay, "posting.delay"},
		{&cfg.Posting.Interval, fs.Posting.Interval, "posting.interval"},
	} {
		if d.raw == "" {
			continue
		}
		v, err := parseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, d.key, d.raw, err)
		}
		*d.dst = v
	}
	if fs.LogLevel != "" {
		level, err := logrus.ParseLevel(fs.LogLevel)
		if err != nil {
			return fmt.Errorf("%w: log_level=%q", ErrInvalid, fs.LogLevel)
		}
		cfg.LogLevel = level
	}
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
