package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/metdata-explorer/internal/weather"
)

// Submitter is the part of weather.Service the scheduler drives.
type Submitter interface {
	Submit(ctx context.Context) (weather.ResultView, error)
}

// Scheduler periodically re-submits the current query.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Submitter
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. An interval <= 0 disables it.
func New(interval time.Duration, service Submitter, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		service:   service,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: auto refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.refresh)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: auto refresh enabled", "interval", s.interval.String())
	return nil
}

// refresh runs one submission. A submission already in flight is not an error.
func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, err := s.service.Submit(ctx)
	switch {
	case err == nil:
		s.logger.Debug("scheduler: refresh completed")
	case errors.Is(err, weather.ErrBusy):
		s.logger.Debug("scheduler: query in flight, skipping refresh")
	case weather.IsValidationError(err):
		s.logger.Info("scheduler: current query is incomplete, skipping refresh", "reason", err.Error())
	default:
		s.logger.Warn("scheduler: refresh failed", "error", err)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
