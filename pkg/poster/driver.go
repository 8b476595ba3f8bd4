// Package poster turns spreadsheet rows into Bluesky posts, one row at a
// time, remembering how far it got between runs.
package poster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"feedbackposter/pkg/cursor"
	"feedbackposter/pkg/sheets"
)

var (
	// ErrAuth wraps a failed login. No row is touched.
	ErrAuth = errors.New("authentication failed")
	// ErrPublish wraps a failed post. The failing row stays unprocessed.
	ErrPublish = errors.New("publish failed")
)

// DefaultPostDelay spaces successive posts to stay inside rate limits.
const DefaultPostDelay = 2 * time.Second

const (
	sampleCount  = 3
	sampleLength = 120
)

// Source yields the rows for a run.
type Source interface {
	ReadRows(ctx context.Context) (*sheets.RowSet, error)
}

// CursorStore persists the cursor between runs.
type CursorStore interface {
	Load() (cursor.Cursor, error)
	Save(cursor.Cursor) error
}

// Publisher is the social network account posts go to.
type Publisher interface {
	Login(ctx context.Context, handle, secret string) error
	Post(ctx context.Context, text string) error
}

// Sleeper waits between posts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Options is the fixed configuration of a Driver.
type Options struct {
	Handle string
	Secret string

	MessageColumn   string
	NameColumn      string
	TimestampColumn string
	Keyword         string

	// ForceFirstN, when > 0, re-attempts rows [0, N) whatever the cursor says.
	ForceFirstN int
	PostDelay   time.Duration
}

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeNoData     Outcome = "no_data"
	OutcomeNothingNew Outcome = "nothing_new"
	OutcomeCompleted  Outcome = "completed"
	OutcomeFailed     Outcome = "failed"
)

// Report summarises one run.
type Report struct {
	Outcome   Outcome
	Column    string
	Method    Method
	Rows      int
	Start     int
	End       int
	Published int
	Skipped   int
	LastIndex int
}

// Preview is the resolved column and the first formatted posts of a sheet.
type Preview struct {
	Resolution
	Rows    int
	Samples []string
}

// Driver runs the posting loop.
type Driver struct {
	opts      Options
	source    Source
	store     CursorStore
	publisher Publisher
	sleeper   Sleeper
	log       logrus.FieldLogger
	metrics   *Metrics

	// forced is set once a run has started posting the ForceFirstN prefix.
	forced bool
}

type DriverOption func(*Driver)

func WithLogger(logger logrus.FieldLogger) DriverOption {
	return func(d *Driver) {
		if logger != nil {
			d.log = logger
		}
	}
}

func WithMetrics(m *Metrics) DriverOption {
	return func(d *Driver) {
		d.metrics = m
	}
}

func WithSleeper(s Sleeper) DriverOption {
	return func(d *Driver) {
		if s != nil {
			d.sleeper = s
		}
	}
}

func New(opts Options, source Source, store CursorStore, publisher Publisher, extra ...DriverOption) *Driver {
	if opts.PostDelay < 0 {
		opts.PostDelay = 0
	}
	d := &Driver{
		opts:      opts,
		source:    source,
		store:     store,
		publisher: publisher,
		sleeper:   timerSleeper{},
		log:       logrus.StandardLogger(),
	}
	for _, o := range extra {
		o(d)
	}
	return d
}

// Run posts every row after the stored cursor (or the forced prefix) and
// persists the cursor after each one. It stops at the first failed post.
// The forced prefix is posted by the first run that gets past login only;
// later runs on the same Driver continue from the cursor. Run must not be
// called concurrently.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	report, err := d.run(ctx)
	if err != nil {
		report.Outcome = OutcomeFailed
	}
	d.metrics.observeRun(report)
	return report, err
}

func (d *Driver) run(ctx context.Context) (Report, error) {
	state, err := d.store.Load()
	if err != nil {
		return Report{}, fmt.Errorf("load cursor: %w", err)
	}
	report := Report{LastIndex: state.LastIndex}
	d.metrics.setCursor(state.LastIndex)

	rs, err := d.source.ReadRows(ctx)
	if err != nil {
		return report, fmt.Errorf("read rows: %w", err)
	}
	report.Rows = rs.Len()
	d.log.WithFields(logrus.Fields{"columns": rs.Columns, "rows": rs.Len()}).Debug("Read sheet")
	if rs.Empty() {
		d.log.Info("No data found in sheet")
		report.Outcome = OutcomeNoData
		return report, nil
	}

	res := d.resolve(rs)
	report.Column, report.Method = res.Column, res.Method
	d.log.WithField("samples", samples(rs, res.Column, d.opts, sampleCount)).Debug("First formatted samples")

	force := d.opts.ForceFirstN
	if d.forced {
		force = 0
	}
	start, end := state.Next(), rs.Len()
	if force > 0 {
		d.log.WithField("n", force).Debug("Force-posting first rows regardless of state")
		start, end = 0, min(force, rs.Len())
	}
	report.Start, report.End = start, end
	d.log.Debugf("Last index was %d, starting at %d of %d rows", state.LastIndex, start, rs.Len())

	if start >= rs.Len() && force == 0 {
		d.log.Info("No new rows to post")
		report.Outcome = OutcomeNothingNew
		return report, nil
	}

	d.log.WithField("handle", d.opts.Handle).Debug("Logging in")
	if err := d.publisher.Login(ctx, d.opts.Handle, d.opts.Secret); err != nil {
		return report, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	if force > 0 {
		d.forced = true
	}

	for idx := start; idx < end; idx++ {
		rowLog := d.log.WithField("row", idx)
		text := FormatPost(rs.Rows[idx], res.Column, d.opts.NameColumn, d.opts.TimestampColumn)

		posted := false
		if text == "" {
			rowLog.Info("Skipping row: empty or no review text")
			report.Skipped++
			d.metrics.skipped()
		} else {
			if err := d.publisher.Post(ctx, text); err != nil {
				return report, fmt.Errorf("%w: row %d: %w", ErrPublish, idx, err)
			}
			posted = true
			report.Published++
			d.metrics.published()
			rowLog.WithField("column", res.Column).Infof("Posted: %s...", truncate(text, sampleLength))
		}

		state.LastIndex = max(state.LastIndex, idx)
		if err := d.store.Save(state); err != nil {
			return report, fmt.Errorf("save cursor after row %d: %w", idx, err)
		}
		report.LastIndex = state.LastIndex
		d.metrics.setCursor(state.LastIndex)

		if posted && d.opts.PostDelay > 0 {
			if err := d.sleeper.Sleep(ctx, d.opts.PostDelay); err != nil {
				return report, err
			}
		}
	}

	report.Outcome = OutcomeCompleted
	d.log.WithFields(logrus.Fields{
		"published":  report.Published,
		"skipped":    report.Skipped,
		"last_index": report.LastIndex,
	}).Infof("Done. Posted %d item(s)", report.Published)
	return report, nil
}

// Preview reads the sheet and returns the resolved column plus the first n
// formatted posts, without touching the cursor or the publisher.
func (d *Driver) Preview(ctx context.Context, n int) (Preview, error) {
	rs, err := d.source.ReadRows(ctx)
	if err != nil {
		return Preview{}, fmt.Errorf("read rows: %w", err)
	}
	if rs.Empty() {
		return Preview{}, nil
	}
	res := d.resolve(rs)
	return Preview{Resolution: res, Rows: rs.Len(), Samples: samples(rs, res.Column, d.opts, n)}, nil
}

func (d *Driver) resolve(rs *sheets.RowSet) Resolution {
	res := ResolveColumn(rs.Columns, rs.Rows, d.opts.MessageColumn, d.opts.Keyword)
	entry := d.log.WithFields(logrus.Fields{"column": res.Column, "method": res.Method})
	switch res.Method {
	case MethodOverride:
		entry.Info("Using message column override")
	case MethodPattern:
		entry.Info("Auto-detected review column")
	default:
		entry.Warn("Falling back to textiest column")
	}
	return res
}

func samples(rs *sheets.RowSet, column string, opts Options, n int) []string {
	n = min(n, rs.Len())
	out := make([]string, 0, n)
	for _, row := range rs.Rows[:max(n, 0)] {
		out = append(out, truncate(FormatPost(row, column, opts.NameColumn, opts.TimestampColumn), sampleLength))
	}
	return out
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
