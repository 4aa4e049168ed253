package pulse

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

var errNotRunning = errors.New("scheduler not running")

// Scheduler runs one probe loop per target. Loops are independent: a slow
// or failing target never delays another, and each loop runs its probes
// strictly one after another.
type Scheduler struct {
	targets  []Target
	registry *Registry
	store    *StatusStore
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. Target i reports into slot i of store.
func NewScheduler(targets []Target, registry *Registry, store *StatusStore, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		targets:  targets,
		registry: registry,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the probe loops. It fails without starting anything when
// a target has no registered checker.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %v", s.interval)
	}
	if s.store.Len() != len(s.targets) {
		return fmt.Errorf("scheduler: store has %d slots for %d targets", s.store.Len(), len(s.targets))
	}
	checkers := make([]Checker, len(s.targets))
	var errs []error
	for i, t := range s.targets {
		c, ok := s.registry.Lookup(t.Kind())
		if !ok {
			errs = append(errs, fmt.Errorf("target %q: no checker for kind %q", t.Alias, t.Kind()))
			continue
		}
		checkers[i] = c
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil && s.ctx.Err() == nil {
		return errors.New("scheduler: already running")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	for slot, t := range s.targets {
		s.wg.Add(1)
		go s.loop(s.ctx, slot, t, checkers[slot])
	}
	s.logger.Info("scheduler started",
		zap.Int("targets", len(s.targets)),
		zap.Duration("interval", s.interval),
	)
	return nil
}

// Stop cancels every loop and waits for in-flight probes to be abandoned.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Running reports whether the probe loops are active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx != nil && s.ctx.Err() == nil
}

func (s *Scheduler) loop(ctx context.Context, slot int, t Target, c Checker) {
	defer s.wg.Done()

	for {
		s.probe(ctx, slot, t, c)

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// probe runs one check and records it. A panic anywhere in the iteration is
// logged and the loop carries on.
func (s *Scheduler) probe(ctx context.Context, slot int, t Target, c Checker) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("probe iteration panicked",
				zap.String("target", t.Alias),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	out := Run(ctx, c, t, s.logger)
	if ctx.Err() != nil {
		// Shutting down: a cancelled probe says nothing about the target.
		return
	}
	if err := s.store.Apply(slot, out); err != nil {
		s.logger.Error("failed to record outcome", zap.String("target", t.Alias), zap.Error(err))
	}
}
