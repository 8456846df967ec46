package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/airport-weather-fusion/internal/observability"
)

// Refresher refreshes every configured airport once.
type Refresher interface {
	RefreshAll(ctx context.Context)
}

// Scheduler periodically runs a fusion cycle for all airports.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	metrics   *observability.Metrics
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(refresher Refresher, interval, timeout time.Duration, metrics *observability.Metrics) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		metrics:   metrics,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first cycle runs immediately.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := s.timeout
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		log.Println("scheduler: running fusion cycle")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.refresher.RefreshAll(ctx)
		log.Println("scheduler: completed fusion cycle")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.metrics.SchedulerRunning.Set(1)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.metrics.SchedulerRunning.Set(0)
}
