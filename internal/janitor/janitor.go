// Package janitor removes expired job workspaces and their status rows.
package janitor

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eniileme/nuclinotion/internal/jobstore"
	"github.com/eniileme/nuclinotion/internal/spool"
)

// Janitor reconciles the on-disk spool with the job store. It sweeps
// expired jobs on a timer and reacts to job directories removed out of
// band (operator cleanup, disk pressure scripts) by dropping the
// corresponding status rows.
type Janitor struct {
	spool    *spool.Spool
	store    jobstore.Store
	logger   *slog.Logger
	interval time.Duration
}

// New creates a janitor sweeping at the given interval.
func New(sp *spool.Spool, store jobstore.Store, logger *slog.Logger, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Janitor{spool: sp, store: store, logger: logger, interval: interval}
}

// Run watches the spool jobs root and sweeps on a timer until ctx is
// cancelled. An initial sweep runs immediately so a restart does not have
// to wait a full interval to reclaim space.
func (j *Janitor) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(j.spool.JobsRoot()); err != nil {
		return err
	}

	j.logger.Info("janitor: started",
		slog.String("root", j.spool.JobsRoot()),
		slog.Duration("interval", j.interval))

	j.Sweep(time.Now())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor: stopped")
			return nil

		case now := <-ticker.C:
			j.Sweep(now)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			jobID := filepath.Base(ev.Name)
			if err := j.store.DeleteJob(jobID); err != nil {
				j.logger.Warn("janitor: drop status for removed dir failed",
					slog.String("job", jobID),
					slog.String("error", err.Error()))
				continue
			}
			j.logger.Debug("janitor: reconciled removed dir", slog.String("job", jobID))

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			j.logger.Error("janitor: watch error", slog.String("error", watchErr.Error()))
		}
	}
}

// Sweep removes every job whose TTL has passed, from both the store and
// the spool. It returns the number of jobs reclaimed.
func (j *Janitor) Sweep(now time.Time) int {
	removed := 0

	ids, err := j.store.ExpiredJobIDs(now)
	if err != nil {
		j.logger.Error("janitor: expired query failed", slog.String("error", err.Error()))
	}
	for _, id := range ids {
		if err := j.spool.RemoveJob(id); err != nil {
			j.logger.Warn("janitor: remove workspace failed",
				slog.String("job", id),
				slog.String("error", err.Error()))
			continue
		}
		if err := j.store.DeleteJob(id); err != nil {
			j.logger.Warn("janitor: delete status failed",
				slog.String("job", id),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	// Orphaned workspaces with no status row still carry their own
	// expiry in meta.json.
	swept, err := j.spool.SweepExpired(now)
	if err != nil {
		j.logger.Warn("janitor: spool sweep failed", slog.String("error", err.Error()))
	}
	removed += swept

	if removed > 0 {
		j.logger.Info("janitor: swept", slog.Int("removed", removed))
	}
	return removed
}
