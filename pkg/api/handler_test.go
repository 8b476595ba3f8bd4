package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedbackposter/pkg/config"
	"feedbackposter/pkg/cursor"
	"feedbackposter/pkg/poster"
	"feedbackposter/pkg/sheets"
)

type fakeCursor struct {
	Cursor cursor.Cursor
	Err    error
}

func (f fakeCursor) Peek() (cursor.Cursor, error) {
	return f.Cursor, f.Err
}

type fakeRuns struct {
	Last *poster.LastRun
}

func (f fakeRuns) LastRun() (poster.LastRun, bool) {
	if f.Last == nil {
		return poster.LastRun{}, false
	}
	return *f.Last, true
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndexWithoutRuns(t *testing.T) {
	logger, _ := test.NewNullLogger()
	router := GetRouter(NewHandler(fakeCursor{Cursor: cursor.Initial}, nil, logger), nil)

	rec := get(t, router, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"last_index":-1,"next_row":0,"last_run":null}`, rec.Body.String())
}

func TestIndexWithLastRun(t *testing.T) {
	started := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	last := &poster.LastRun{
		Report: poster.Report{
			Outcome:   poster.OutcomeFailed,
			Column:    "Message",
			Method:    poster.MethodOverride,
			Rows:      5,
			Published: 2,
			LastIndex: 4,
		},
		Err:      errors.New("publish failed: row 5: boom"),
		Started:  started,
		Finished: started.Add(3 * time.Second),
	}
	logger, _ := test.NewNullLogger()
	router := GetRouter(NewHandler(fakeCursor{Cursor: cursor.Cursor{LastIndex: 4}}, fakeRuns{Last: last}, logger), nil)

	rec := get(t, router, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body indexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.LastIndex)
	assert.Equal(t, 5, body.NextRow)
	require.NotNil(t, body.LastRun)
	assert.Equal(t, poster.OutcomeFailed, body.LastRun.Outcome)
	assert.Equal(t, poster.MethodOverride, body.LastRun.Method)
	assert.Equal(t, 2, body.LastRun.Published)
	assert.Equal(t, "publish failed: row 5: boom", body.LastRun.Error)
	assert.True(t, body.LastRun.Finished.Equal(started.Add(3*time.Second)))
}

func TestIndexCursorError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	router := GetRouter(NewHandler(fakeCursor{Err: cursor.ErrCorrupt}, nil, logger), nil)

	rec := get(t, router, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "corrupt cursor state")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Could not read cursor", hook.LastEntry().Message)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	poster.NewMetrics(reg)
	router := GetRouter(NewHandler(fakeCursor{Cursor: cursor.Initial}, nil, nil), reg)

	rec := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(t, router, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feedbackposter_rows_published_total")

	assert.Equal(t, http.StatusNotFound, get(t, GetRouter(NewHandler(fakeCursor{}, nil, nil), nil), "/metrics").Code)
}

// blueskyServer accepts any login and records post texts.
type blueskyServer struct {
	mu    sync.Mutex
	posts []string
}

func (b *blueskyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/xrpc/com.atproto.server.createSession":
		_, _ = io.WriteString(w, `{"accessJwt":"jwt","did":"did:plc:test"}`)
	case "/xrpc/com.atproto.repo.createRecord":
		var req struct {
			Record struct {
				Text string `json:"text"`
			} `json:"record"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.posts = append(b.posts, req.Record.Text)
		b.mu.Unlock()
		_, _ = io.WriteString(w, `{"uri":"at://did:plc:test/app.bsky.feed.post/1","cid":"c"}`)
	default:
		http.NotFound(w, r)
	}
}

func (b *blueskyServer) Posts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.posts...)
}

func TestJobRunsEndToEnd(t *testing.T) {
	bsky := &blueskyServer{}
	srv := httptest.NewServer(bsky)
	defer srv.Close()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "survey.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(strings.Join([]string{
		"Timestamp,Name,Message",
		"2024-01-01,Alex,Great job",
		"2024-01-02,Sam,",
		"2024-01-03,,Loved the workshop",
	}, "\n")+"\n"), 0644))

	cfg := config.Default()
	cfg.Bluesky = config.BlueskyConfig{Handle: "feedback.test", AppPassword: "pwd", Host: srv.URL}
	cfg.Source.Path = csvPath
	cfg.State.File = filepath.Join(dir, "last_row.json")
	cfg.Posting.Delay = 0

	logger, _ := test.NewNullLogger()
	reg := prometheus.NewRegistry()
	ctx := context.Background()

	job, err := NewJob(ctx, cfg, logger, reg)
	require.NoError(t, err)

	status, err := job.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{StateFile: cfg.State.File, LastIndex: -1, NextRow: 0, Rows: 3, Remaining: 3}, status)

	report, err := job.Driver.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, poster.OutcomeCompleted, report.Outcome)
	assert.Equal(t, 2, report.Published)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{
		"Great job\n— Alex • 2024-01-01",
		"Loved the workshop\n— Anonymous • 2024-01-03",
	}, bsky.Posts())

	saved, err := os.ReadFile(cfg.State.File)
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_index":2}`, string(saved))
	assert.Equal(t, float64(2), testutil.ToFloat64(job.Metrics.Published))
	assert.Equal(t, float64(1), testutil.ToFloat64(job.Metrics.Runs.WithLabelValues(string(poster.OutcomeCompleted))))

	status, err = job.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Remaining)

	report, err = job.Driver.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, poster.OutcomeNothingNew, report.Outcome)
	assert.Len(t, bsky.Posts(), 2)
}

func TestNewJobUnsupportedSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Path = "survey.ods"
	_, err := NewJob(context.Background(), cfg, nil, nil)
	assert.ErrorIs(t, err, sheets.ErrUnsupported)
}
