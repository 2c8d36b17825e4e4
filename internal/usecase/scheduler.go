package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	request  RunRequest
	logger   *slog.Logger
	onResult func(RunResult)
}

// NewScheduler returns a helper to start/stop recurring runs of req.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, req RunRequest, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, request: req, logger: logger}
}

// OnResult registers a callback invoked after every successful run.
func (s *Scheduler) OnResult(fn func(RunResult)) {
	s.onResult = fn
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		res, err := s.pipeline.Run(ctx, s.request)
		if err != nil {
			s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
			return
		}
		s.logger.Info("scheduled run completed", "trigger", trigger, "insights", len(res.Insights))
		if s.onResult != nil {
			s.onResult(res)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
