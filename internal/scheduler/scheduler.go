// Package scheduler runs the periodic log retention job off the request path.
package scheduler

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/crut0i/weatherapp/internal/logarchive"
	"github.com/crut0i/weatherapp/internal/logger"
)

// Scheduler periodically prunes log and exception files past the retention
// window and invalidates the corresponding list cache entry.
type Scheduler struct {
	scheduler     *gocron.Scheduler
	archive       *logarchive.Archive
	log           *logger.Logger
	interval      time.Duration
	retentionDays int
	invalidate    func(kind logarchive.Kind)
}

// New creates a Scheduler. invalidate is called after files of a kind were
// removed, so the stale list cache entry can be dropped.
func New(
	archive *logarchive.Archive,
	log *logger.Logger,
	interval time.Duration,
	retentionDays int,
	invalidate func(kind logarchive.Kind),
) *Scheduler {
	return &Scheduler{
		scheduler:     gocron.NewScheduler(time.UTC),
		archive:       archive,
		log:           log,
		interval:      interval,
		retentionDays: retentionDays,
		invalidate:    invalidate,
	}
}

// Start schedules the cleanup job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 5
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.cleanup); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) cleanup() {
	for _, kind := range []logarchive.Kind{logarchive.KindLog, logarchive.KindException} {
		removed := s.prune(kind)
		if removed > 0 {
			s.invalidate(kind)
			s.log.Info("pruned expired log files",
				zap.String("type", "job"),
				zap.String("kind", string(kind)),
				zap.Int("removed", removed),
			)
		}
	}
}

func (s *Scheduler) prune(kind logarchive.Kind) int {
	dates, err := s.archive.ListDates(kind)
	if err != nil {
		s.log.Error("cleanup: listing log files failed",
			zap.String("type", "job"),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return 0
	}

	today := time.Now().Format("2006-01-02")
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	removed := 0
	for _, date := range dates {
		if date == today {
			continue
		}
		t, err := time.Parse("2006-01-02", date)
		if err != nil || !t.Before(cutoff) {
			continue
		}
		if err := s.archive.Delete(date, kind); err != nil && !errors.Is(err, logarchive.ErrNotFound) {
			s.log.Error("cleanup: deleting log file failed",
				zap.String("type", "job"),
				zap.String("kind", string(kind)),
				zap.String("date", date),
				zap.Error(err),
			)
			continue
		}
		removed++
	}
	return removed
}
