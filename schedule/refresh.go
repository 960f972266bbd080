package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Refresher periodically re-syncs boundless generators so their rolling
// horizon keeps advancing: a weekly generator with no repeat-until saved a
// month ago still gets occurrences a full DefaultHorizon into the future.
type Refresher struct {
	scheduler *Scheduler
	cron      *cron.Cron
	logger    *slog.Logger
}

// NewRefresher schedules RefreshBoundless on the scheduler's configured
// cron expression. Call Start to begin.
func NewRefresher(s *Scheduler) (*Refresher, error) {
	r := &Refresher{
		scheduler: s,
		cron:      cron.New(),
		logger:    s.logger,
	}
	if _, err := r.cron.AddFunc(s.cfg.RefreshCron, r.refresh); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", s.cfg.RefreshCron, err)
	}
	return r, nil
}

// Start begins running refreshes on schedule in its own goroutine.
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop stops the schedule. A refresh already in flight runs to completion.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Refresher) refresh() {
	if err := r.scheduler.RefreshBoundless(context.Background()); err != nil {
		r.logger.Error("failed to refresh boundless generators", "error", err)
	}
}
