// ABOUTME: Cron-driven scheduler that writes a backup and prunes old ones on each tick
// ABOUTME: Overlapping runs are skipped; failures are logged and retried on the next tick

package backup

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/harper/xvault/internal/storage"
)

const runTimeout = 10 * time.Minute

// Scheduler runs backups on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	entry  cron.EntryID
	store  *storage.Store
	dir    string
	keep   int
	logger *log.Logger
}

// NewScheduler validates schedule and prepares a scheduler. Call Start to begin.
func NewScheduler(store *storage.Store, schedule, dir string, keep int, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		store:  store,
		dir:    dir,
		keep:   keep,
		logger: logger,
	}
	entry, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Warn("scheduled backup failed", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	s.entry = entry
	return s, nil
}

// RunOnce writes today's backup and prunes old ones.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	start := time.Now()
	path, err := Write(ctx, s.store, s.dir, start)
	if err != nil {
		return "", err
	}
	removed, err := Prune(s.dir, s.keep)
	if err != nil {
		s.logger.Warn("backup written but pruning failed", "path", path, "err", err)
	}
	s.logger.Info("backup written", "path", path, "pruned", len(removed), "duration", time.Since(start))
	return path, nil
}

// Start begins running backups in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("backup scheduler started", "dir", s.dir, "keep", s.keep)
}

// Stop halts the scheduler; the returned context is done when a running backup finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next returns the next scheduled run. It is zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}
