package api

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"feedbackposter/pkg/bluesky"
	"feedbackposter/pkg/config"
	"feedbackposter/pkg/cursor"
	"feedbackposter/pkg/poster"
	"feedbackposter/pkg/sheets"
)

// Job is a fully wired poster: sheet reader, cursor file, Bluesky client
// and metrics.
type Job struct {
	Driver  *poster.Driver
	Store   *cursor.FileStore
	Source  sheets.Reader
	Metrics *poster.Metrics
}

// Status is the stored cursor measured against the current sheet.
type Status struct {
	StateFile string `json:"state_file"`
	LastIndex int    `json:"last_index"`
	NextRow   int    `json:"next_row"`
	Rows      int    `json:"rows"`
	Remaining int    `json:"remaining"`
}

// NewJob builds a Job from cfg. reg may be nil when metrics are not
// exported.
func NewJob(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, reg prometheus.Registerer, opts ...poster.DriverOption) (*Job, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	source, err := sheets.Open(ctx, cfg.SheetSource())
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	store := cursor.NewFileStore(cfg.State.File, cfg.State.Reset, logger.WithField("component", "cursor"))
	client := bluesky.NewClient(cfg.Bluesky.Host, bluesky.WithLanguages("en"))
	metrics := poster.NewMetrics(reg)

	driverOpts := append([]poster.DriverOption{
		poster.WithLogger(logger.WithField("component", "poster")),
		poster.WithMetrics(metrics),
	}, opts...)

	return &Job{
		Driver:  poster.New(cfg.PosterOptions(), source, store, client, driverOpts...),
		Store:   store,
		Source:  source,
		Metrics: metrics,
	}, nil
}

// Status reads the sheet and the cursor without changing either.
func (j *Job) Status(ctx context.Context) (Status, error) {
	c, err := j.Store.Peek()
	if err != nil {
		return Status{}, err
	}
	rs, err := j.Source.ReadRows(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read rows: %w", err)
	}
	return Status{
		StateFile: j.Store.Path(),
		LastIndex: c.LastIndex,
		NextRow:   c.Next(),
		Rows:      rs.Len(),
		Remaining: max(rs.Len()-c.Next(), 0),
	}, nil
}
