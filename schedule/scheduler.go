package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultPollInterval = time.Second

// Job produces and runs one walk. Each activation gets a fresh job
// invocation; a job that builds a stepper, runs it to the end, and
// collects the stash is typical.
type Job func(ctx context.Context) error

// Config configures a walk scheduler.
type Config struct {
	// Expr is the five-field UTC cron expression.
	Expr string

	// Job runs on each activation.
	Job Job

	// PollInterval bounds how often due-ness is checked. Defaults to
	// one second.
	PollInterval time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time

	// Logger receives activation and failure logs. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Scheduler triggers a job on a cron schedule. Activations never overlap:
// if the previous run is still in flight when the next activation is due,
// the activation is skipped and logged.
type Scheduler struct {
	schedule     cron.Schedule
	job          Job
	pollInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger

	mu      sync.Mutex
	nextRun time.Time
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler from the config. The cron expression is parsed
// eagerly so misconfiguration fails before Start.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Job == nil {
		return nil, errors.New("scheduler job is nil")
	}
	schedule, err := ParseUTC(cfg.Expr)
	if err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Scheduler{
		schedule:     schedule,
		job:          cfg.Job,
		pollInterval: cfg.PollInterval,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
	s.nextRun = schedule.Next(s.now().UTC())
	return s, nil
}

// NextRun returns the next pending activation time.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

// Start begins background polling. Calling Start on a started scheduler
// is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.RunOnce(loopCtx)
			}
		}
	}()
}

// Stop stops background polling and waits for shutdown, bounded by the
// context. An in-flight job keeps running; only the polling stops.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single due-ness check, firing the job if the
// schedule has come due. Exposed for tests and manual driving.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.now().UTC()

	s.mu.Lock()
	if now.Before(s.nextRun) {
		s.mu.Unlock()
		return
	}
	scheduledAt := s.nextRun
	s.nextRun = s.schedule.Next(now)

	if s.running {
		s.mu.Unlock()
		s.logger.Warn("skipping walk activation: previous run still active",
			"scheduled_at", scheduledAt)
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.runJob(ctx, scheduledAt)
}

func (s *Scheduler) runJob(ctx context.Context, scheduledAt time.Time) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("walk activation", "scheduled_at", scheduledAt)
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled walk failed", "scheduled_at", scheduledAt, "error", err)
	}
}
