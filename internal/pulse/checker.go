package pulse

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// Checker runs one probe against a target. Implementations report every
// failure through the returned Outcome and never panic on purpose.
type Checker interface {
	Check(ctx context.Context, t Target) Outcome
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, t Target) Outcome

func (f CheckerFunc) Check(ctx context.Context, t Target) Outcome { return f(ctx, t) }

// Registry maps each kind to its checker.
type Registry struct {
	checkers map[Kind]Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checkers: make(map[Kind]Checker)}
}

// Register sets the checker for kind, replacing any previous one.
func (r *Registry) Register(kind Kind, c Checker) {
	r.checkers[kind] = c
}

// Lookup returns the checker for kind.
func (r *Registry) Lookup(kind Kind) (Checker, bool) {
	c, ok := r.checkers[kind]
	return c, ok
}

// Run executes c against t under the target's timeout. If the timeout fires
// first the probe is abandoned and the outcome is Unhealthy("timeout"). A
// panic inside the checker is recovered and reported as Unhealthy.
func Run(ctx context.Context, c Checker, t Target, logger *zap.Logger) Outcome {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("checker panicked",
					zap.String("target", t.Alias),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				done <- failedOutcome(t.Kind(), Unhealthy("checker panic: %v", r))
			}
		}()
		done <- c.Check(ctx, t)
	}()

	select {
	case out := <-done:
		if out == nil {
			return failedOutcome(t.Kind(), Unhealthy("checker returned no outcome"))
		}
		return out
	case <-ctx.Done():
		select {
		case out := <-done:
			if out != nil {
				return out
			}
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return failedOutcome(t.Kind(), Unhealthy(ReasonTimeout))
		}
		return failedOutcome(t.Kind(), Unhealthy("cancelled"))
	}
}

// errorReason renders err as an unhealthy reason, mapping deadline errors
// to the canonical timeout reason.
func errorReason(prefix string, err error) Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return Unhealthy(ReasonTimeout)
	}
	if prefix == "" {
		return Unhealthy("%v", err)
	}
	return Unhealthy("%s: %v", prefix, err)
}

// specOf extracts the concrete spec a checker expects.
func specOf[S Spec](t Target) (S, error) {
	s, ok := t.Spec.(S)
	if !ok {
		var zero S
		return zero, fmt.Errorf("target %q: spec %T is not %T", t.Alias, t.Spec, zero)
	}
	return s, nil
}
