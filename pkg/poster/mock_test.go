package poster

import (
	"context"
	"fmt"
	"time"

	"feedbackposter/pkg/cursor"
	"feedbackposter/pkg/sheets"
)

type fakeSource struct {
	RowSet *sheets.RowSet
	Err    error
	Calls  int
}

func (f *fakeSource) ReadRows(ctx context.Context) (*sheets.RowSet, error) {
	f.Calls++
	return f.RowSet, f.Err
}

type memStore struct {
	Cursor  cursor.Cursor
	Saves   []int
	LoadErr error
	SaveErr error
}

func newMemStore(last int) *memStore {
	return &memStore{Cursor: cursor.Cursor{LastIndex: last}}
}

func (m *memStore) Load() (cursor.Cursor, error) {
	return m.Cursor, m.LoadErr
}

func (m *memStore) Save(c cursor.Cursor) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Cursor = c
	m.Saves = append(m.Saves, c.LastIndex)
	return nil
}

type mockPublisher struct {
	LoginFunc  func(handle, secret string) error
	PostFunc   func(text string) error
	LoginCalls int
	Posts      []string
}

func (m *mockPublisher) Login(ctx context.Context, handle, secret string) error {
	m.LoginCalls++
	if m.LoginFunc != nil {
		return m.LoginFunc(handle, secret)
	}
	return nil
}

func (m *mockPublisher) Post(ctx context.Context, text string) error {
	if m.PostFunc != nil {
		if err := m.PostFunc(text); err != nil {
			return err
		}
	}
	m.Posts = append(m.Posts, text)
	return nil
}

type recordingSleeper struct {
	Sleeps []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.Sleeps = append(r.Sleeps, d)
	return nil
}

// feedbackRows builds a sheet with Timestamp/Name/Message columns, one row per
// message; row i is named "user<i>".
func feedbackRows(messages ...string) *sheets.RowSet {
	rs := &sheets.RowSet{Columns: []string{"Timestamp", "Name", "Message"}}
	for i, m := range messages {
		rs.Rows = append(rs.Rows, sheets.Row{
			"Timestamp": fmt.Sprintf("2024-01-%02d", i+1),
			"Name":      fmt.Sprintf("user%d", i),
			"Message":   m,
		})
	}
	return rs
}

func testOptions() Options {
	return Options{
		Handle:          "feedback.bsky.social",
		Secret:          "app-password",
		MessageColumn:   "Message",
		NameColumn:      "Name",
		TimestampColumn: "Timestamp",
		PostDelay:       DefaultPostDelay,
	}
}
