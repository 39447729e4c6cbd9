package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/itsdone-dev/itsdone/internal/services"
	"go.uber.org/zap"
)

// Checker runs threshold checks for one user or for everybody.
type Checker interface {
	CheckUser(ctx context.Context, userID uint, now time.Time) ([]services.ThresholdAlert, error)
	CheckAll(ctx context.Context, now time.Time) (int, error)
}

type Scheduler struct {
	checker  Checker
	interval time.Duration
	log      *zap.Logger

	jobs map[uint]*userJob // user ID -> queued or running check
	mu   sync.Mutex
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

type userJob struct {
	rerun bool
}

// NewScheduler builds a scheduler that sweeps every interval. A zero interval
// disables the periodic sweep but still serves triggered checks.
func NewScheduler(checker Checker, interval time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.L()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		checker:  checker,
		interval: interval,
		log:      log,
		jobs:     make(map[uint]*userJob),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the periodic sweep.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		s.log.Info("threshold sweep disabled")
		return
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.run()
	}()

	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(s.ctx); err != nil && s.ctx.Err() == nil {
				s.log.Error("threshold sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep checks every user once.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	start := time.Now()

	raised, err := s.checker.CheckAll(ctx, start)
	if err != nil {
		return raised, err
	}

	s.log.Info("threshold sweep finished", zap.Int("alerts", raised), zap.Duration("took", time.Since(start)))
	return raised, nil
}

// Trigger queues a check for userID without blocking the caller. Triggers that
// arrive while a check for the same user runs are folded into one more run.
// Triggers after Stop are dropped.
func (s *Scheduler) Trigger(userID uint) {
	s.mu.Lock()
	// Stop cancels under mu, so no Add can race its Wait
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if job, exists := s.jobs[userID]; exists {
		job.rerun = true
		s.mu.Unlock()
		return
	}
	job := &userJob{}
	s.jobs[userID] = job
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		for {
			s.check(userID)

			s.mu.Lock()
			if !job.rerun || s.ctx.Err() != nil {
				delete(s.jobs, userID)
				s.mu.Unlock()
				return
			}
			job.rerun = false
			s.mu.Unlock()
		}
	}()
}

func (s *Scheduler) check(userID uint) {
	alerts, err := s.checker.CheckUser(s.ctx, userID, time.Now())
	if err != nil {
		if s.ctx.Err() == nil {
			s.log.Warn("threshold check failed", zap.Uint("user_id", userID), zap.Error(err))
		}
		return
	}

	if len(alerts) > 0 {
		s.log.Info("threshold alerts raised", zap.Uint("user_id", userID), zap.Int("alerts", len(alerts)))
	}
}

// Stop cancels the sweep and waits for running checks.
func (s *Scheduler) Stop() {
	s.log.Info("stopping scheduler")

	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// GetStatus returns current scheduler status
func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"pending_checks": len(s.jobs),
		"running":        s.ctx.Err() == nil,
		"interval":       s.interval.String(),
	}
}

// Global scheduler instance
var globalScheduler *Scheduler

// Initialize creates and starts the global scheduler
func Initialize(checker Checker, interval time.Duration, log *zap.Logger) *Scheduler {
	globalScheduler = NewScheduler(checker, interval, log)
	globalScheduler.Start()
	return globalScheduler
}

// Shutdown stops the global scheduler
func Shutdown() {
	if globalScheduler != nil {
		globalScheduler.Stop()
		globalScheduler = nil
	}
}

// Trigger queues a threshold check on the global scheduler
func Trigger(userID uint) {
	if globalScheduler != nil {
		globalScheduler.Trigger(userID)
	}
}

// Status reports the global scheduler, or nil when it is not running
func Status() map[string]interface{} {
	if globalScheduler == nil {
		return nil
	}
	return globalScheduler.GetStatus()
}
