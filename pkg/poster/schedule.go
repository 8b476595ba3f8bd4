package poster

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LastRun is what the scheduler remembers about the most recent run.
type LastRun struct {
	Report   Report
	Err      error
	Started  time.Time
	Finished time.Time
}

// Scheduler reruns a Driver on a fixed interval from a single goroutine, so
// runs never overlap. A failed run is retried by the next tick.
type Scheduler struct {
	driver   *Driver
	interval time.Duration
	log      logrus.FieldLogger
	now      func() time.Time

	mu   sync.RWMutex
	last *LastRun
}

func NewScheduler(driver *Driver, interval time.Duration, logger logrus.FieldLogger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{driver: driver, interval: interval, log: logger, now: time.Now}
}

// Run executes one run immediately and then one per interval until ctx is
// done.
func (s *Scheduler) Run(ctx context.Context) {
	s.RunOnce(ctx)
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs the driver and records the result.
func (s *Scheduler) RunOnce(ctx context.Context) LastRun {
	run := LastRun{Started: s.now()}
	run.Report, run.Err = s.driver.Run(ctx)
	run.Finished = s.now()
	if run.Err != nil {
		s.log.WithError(run.Err).Error("Posting run failed")
	}

	s.mu.Lock()
	s.last = &run
	s.mu.Unlock()
	return run
}

// LastRun returns the most recent run, if any.
func (s *Scheduler) LastRun() (LastRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return LastRun{}, false
	}
	return *s.last, true
}
