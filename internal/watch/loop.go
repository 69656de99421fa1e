package watch

import (
	"context"
	"time"

	"biji-go/internal/biji"
)

// Syncer resolves new and outdated sidecars.
type Syncer interface {
	Sync() (*biji.Report, *biji.Resolution, error)
}

// Loop runs Syncer.Sync once at start and again after every burst of
// sidecar events. All syncs happen on the goroutine calling Run, so the
// index keeps a single writer.
type Loop struct {
	syncer   Syncer
	debounce time.Duration
	logger   biji.Logger
}

func NewLoop(syncer Syncer, debounce time.Duration, logger biji.Logger) *Loop {
	return &Loop{
		syncer:   syncer,
		debounce: debounce,
		logger:   logger,
	}
}

// Run blocks until ctx is done or events is closed.
// Sync failures are logged and do not stop the loop.
func (l *Loop) Run(ctx context.Context, events <-chan Event, errs <-chan error) error {
	l.sync("startup")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	pending := 0

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.logger.Debug("sidecar changed", "path", ev.Path, "op", ev.Op.String())
			pending++
			timer.Reset(l.debounce)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			l.logger.Warn("watch error", "error", err)

		case <-timer.C:
			if pending > 0 {
				l.logger.Debug("debounce elapsed", "events", pending)
				pending = 0
				l.sync("change")
			}
		}
	}
}

func (l *Loop) sync(reason string) {
	report, res, err := l.syncer.Sync()
	if err != nil {
		l.logger.Error("sync failed", "reason", reason, "error", err)
		return
	}
	l.logger.Info("synced",
		"reason", reason,
		"added", res.Added,
		"updated", res.Updated,
		"ghost_sidecars", len(report.FileMissing),
		"orphan_rows", len(report.NoSidecar))
}
