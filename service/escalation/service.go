// Package escalation runs the periodic sweep that applies timeout actions to
// overdue approval tasks.
package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/viant/signoff/internal/clock"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/engine"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Escalator is the part of the engine the scheduler drives.
type Escalator interface {
	Overdue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error)
	Escalate(ctx context.Context, taskID string, now time.Time) (*engine.EscalationResult, error)
}

// Config represents scheduler configuration
type Config struct {
	// Interval is how often the scheduler sweeps for overdue tasks
	Interval time.Duration
	// BatchSize caps the tasks handled per sweep
	BatchSize int
	// Concurrency caps the escalations in flight
	Concurrency int
	// FailureBackoff is how long a task whose escalation failed is left out of sweeps
	FailureBackoff time.Duration
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Interval:       time.Minute,
		BatchSize:      500,
		Concurrency:    8,
		FailureBackoff: 5 * time.Minute,
	}
}

// Report summarises one sweep.
type Report struct {
	Scanned   int
	Escalated int
	Flagged   int
	TimedOut  int
	Skipped   int
	Failed    int
	// Deferred counts overdue tasks left out while backing off an earlier failure.
	Deferred int
}

// Service sweeps overdue tasks
type Service struct {
	config    Config
	escalator Escalator
	logger    *zap.Logger
	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	failedMu  sync.Mutex
	retryAt   map[string]time.Time
}

// Sweep escalates the current batch of overdue tasks. A failing task is
// logged and counted; it never stops the others.
func (s *Service) Sweep(ctx context.Context) (*Report, error) {
	now := clock.Now()
	deferred := s.deferred(now)
	tasks, err := s.escalator.Overdue(ctx, now, s.config.BatchSize+len(deferred))
	if err != nil {
		return nil, err
	}
	report := &Report{}
	var batch []string
	for _, task := range tasks {
		if deferred[task.ID] {
			report.Deferred++
			continue
		}
		if len(batch) < s.config.BatchSize {
			batch = append(batch, task.ID)
		}
	}
	report.Scanned = len(batch)
	var mu sync.Mutex
	group := errgroup.Group{}
	group.SetLimit(s.config.Concurrency)
	for _, taskID := range batch {
		taskID := taskID
		group.Go(func() error {
			result, err := s.escalate(ctx, taskID, now)
			s.recordOutcome(taskID, now, err)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				s.logger.Warn("escalation failed", zap.String("taskId", taskID), zap.Error(err))
				return nil
			}
			switch result.Outcome {
			case engine.OutcomeEscalated:
				report.Escalated++
			case engine.OutcomeFlagged:
				report.Flagged++
			case engine.OutcomeTimedOut:
				report.TimedOut++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = group.Wait()
	if report.Scanned > 0 || report.Deferred > 0 {
		s.logger.Info("escalation sweep",
			zap.Int("scanned", report.Scanned),
			zap.Int("escalated", report.Escalated),
			zap.Int("flagged", report.Flagged),
			zap.Int("timedOut", report.TimedOut),
			zap.Int("failed", report.Failed),
			zap.Int("deferred", report.Deferred))
	}
	return report, nil
}

func (s *Service) escalate(ctx context.Context, taskID string, now time.Time) (result *engine.EscalationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = model.NewError(model.CodeInvalidState, "escalation of %s panicked: %v", taskID, r)
		}
	}()
	return s.escalator.Escalate(ctx, taskID, now)
}

// deferred returns the tasks still backing off at now, dropping expired entries.
func (s *Service) deferred(now time.Time) map[string]bool {
	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	ret := make(map[string]bool, len(s.retryAt))
	for taskID, at := range s.retryAt {
		if !now.Before(at) {
			delete(s.retryAt, taskID)
			continue
		}
		ret[taskID] = true
	}
	return ret
}

func (s *Service) recordOutcome(taskID string, now time.Time, err error) {
	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	if err == nil {
		delete(s.retryAt, taskID)
		return
	}
	s.retryAt[taskID] = now.Add(s.config.FailureBackoff)
}

// Start runs sweeps every Interval until ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	stop, done, ok := s.register()
	if !ok {
		return nil
	}
	return s.run(ctx, stop, done)
}

// Go runs the sweep loop in a new goroutine. The loop is registered before Go
// returns, so a later Stop always ends it. The channel yields the loop's
// error, if any, and is then closed.
func (s *Service) Go(ctx context.Context) <-chan error {
	errs := make(chan error, 1)
	stop, done, ok := s.register()
	if !ok {
		close(errs)
		return errs
	}
	go func() {
		defer close(errs)
		if err := s.run(ctx, stop, done); err != nil {
			errs <- err
		}
	}()
	return errs
}

// register claims the loop; ok is false when one is already running.
func (s *Service) register() (stop, done chan struct{}, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil, nil, false
	}
	s.stop, s.done = make(chan struct{}), make(chan struct{})
	return s.stop, s.done, true
}

func (s *Service) run(ctx context.Context, stop, done chan struct{}) error {
	defer close(done)
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("escalation sweep failed", zap.Error(err))
			}
		}
	}
}

// Stop ends a running loop and waits for it to return.
func (s *Service) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// New creates a scheduler.
func New(escalator Escalator, config Config, logger *zap.Logger) *Service {
	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.FailureBackoff <= 0 {
		config.FailureBackoff = defaults.FailureBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{config: config, escalator: escalator, logger: logger.Named("escalation"), retryAt: map[string]time.Time{}}
}
