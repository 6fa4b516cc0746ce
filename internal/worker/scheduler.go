// Package worker runs the weekly report pipeline on a schedule.
package worker

import (
	"context"
	"time"

	"packetboat/internal/reporter"
	"packetboat/pkg/logging"
)

type runner interface {
	Run(ctx context.Context, opts reporter.RunOptions) (*reporter.RunResult, error)
}

// Scheduler fires one pipeline run per calendar day on the configured UTC
// weekday. Failed runs are logged and retried on the next matching day, not
// within the same day.
type Scheduler struct {
	runner   runner
	weekday  time.Weekday
	logger   logging.Logger
	interval time.Duration

	now     func() time.Time
	lastRun string // date-partition layout, UTC day of the last fired run
}

func NewScheduler(r runner, weekday time.Weekday, logger logging.Logger) *Scheduler {
	return &Scheduler{
		runner:   r,
		weekday:  weekday,
		logger:   logger,
		interval: time.Hour,
		now:      time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.WithField("weekday", s.weekday.String()).Info("Starting report scheduler")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping report scheduler")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().UTC()
	if now.Weekday() != s.weekday {
		return
	}
	day := now.Format("2006-01-02")
	if day == s.lastRun {
		return
	}
	s.lastRun = day

	res, err := s.runner.Run(ctx, reporter.RunOptions{})
	if err != nil {
		s.logger.WithError(err).Error("Scheduled report run failed")
		return
	}
	s.logger.WithFields(logging.Fields{
		"run_id":         res.RunID,
		"date_partition": res.DatePartition,
		"system_state":   res.SystemState,
		"reports_sent":   res.ReportsSent,
	}).Info("Scheduled report run finished")
}
