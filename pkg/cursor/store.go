// Package cursor persists how far through the sheet posting has got.
package cursor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrCorrupt marks a cursor file that exists but cannot be trusted.
var ErrCorrupt = errors.New("corrupt cursor state")

// Initial is the cursor before any row has been processed.
var Initial = Cursor{LastIndex: -1}

// Cursor records that every row at a position <= LastIndex has been handled.
type Cursor struct {
	LastIndex int `json:"last_index"`
}

// Next is the first row position not yet handled.
func (c Cursor) Next() int {
	return c.LastIndex + 1
}

type record struct {
	LastIndex *int `json:"last_index"`
}

// FileStore keeps the cursor as a small JSON file.
type FileStore struct {
	path string
	log  logrus.FieldLogger

	mu    sync.Mutex
	reset bool
}

// NewFileStore returns a store at path. When reset is set the first Load
// discards whatever is on disk.
func NewFileStore(path string, reset bool, logger logrus.FieldLogger) *FileStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FileStore{path: path, reset: reset, log: logger}
}

// Path is the location of the cursor file.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the persisted cursor, or Initial when there is none.
func (s *FileStore) Load() (Cursor, error) {
	s.mu.Lock()
	reset := s.reset
	s.reset = false
	s.mu.Unlock()

	if reset {
		s.log.Debug("Reset requested, starting from -1 and deleting state file if present")
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			s.log.WithError(err).Warn("Could not delete state file")
		}
		return Initial, nil
	}

	c, err := s.Peek()
	if err != nil {
		return Cursor{}, err
	}
	s.log.WithField("last_index", c.LastIndex).Debug("Loaded state")
	return c, nil
}

// Peek reads the cursor without consuming a pending reset.
func (s *FileStore) Peek() (Cursor, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Initial, nil
		}
		return Cursor{}, fmt.Errorf("%w: read %s: %v", ErrCorrupt, s.path, err)
	}

	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Cursor{}, fmt.Errorf("%w: decode %s: %v", ErrCorrupt, s.path, err)
	}
	if rec.LastIndex == nil {
		return Cursor{}, fmt.Errorf("%w: %s has no last_index", ErrCorrupt, s.path)
	}
	if *rec.LastIndex < -1 {
		return Cursor{}, fmt.Errorf("%w: %s has last_index %d", ErrCorrupt, s.path, *rec.LastIndex)
	}
	return Cursor{LastIndex: *rec.LastIndex}, nil
}

// Save replaces the cursor file. The new content is written beside the
// target and renamed over it.
func (s *FileStore) Save(c Cursor) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("save cursor: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save cursor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	s.log.WithField("last_index", c.LastIndex).Debug("Saved state")
	return nil
}
