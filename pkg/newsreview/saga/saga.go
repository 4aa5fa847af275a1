// Package saga runs an ordered list of forward steps and, when one of them
// fails, undoes the completed ones in reverse order.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultStepTimeout         = 5 * time.Second
	DefaultCompensationTimeout = 10 * time.Second
)

// Step is one forward action and its compensation. Compensate may be nil
// for steps with nothing to undo. Compensations must tolerate being called
// for a forward action whose outcome is unknown (for example after a
// timeout), so they should treat "already absent" as success.
type Step struct {
	Name       string
	Do         func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Error reports the step that failed and any compensation failures.
type Error struct {
	RunID           string
	Step            string
	Err             error
	CompensationErr error
}

func (e *Error) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("saga step %s failed: %v (rollback incomplete: %v)", e.Step, e.Err, e.CompensationErr)
	}
	return fmt.Sprintf("saga step %s failed: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RolledBack reports whether every compensation succeeded.
func (e *Error) RolledBack() bool {
	return e.CompensationErr == nil
}

// Runner executes sagas.
type Runner struct {
	stepTimeout         time.Duration
	compensationTimeout time.Duration
	logger              *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithStepTimeout bounds each forward action.
func WithStepTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.stepTimeout = d
	}
}

// WithCompensationTimeout bounds each compensation.
func WithCompensationTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.compensationTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		stepTimeout:         DefaultStepTimeout,
		compensationTimeout: DefaultCompensationTimeout,
		logger:              slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "saga")
	return r
}

// Run executes steps in order. On the first failure it compensates every
// completed step in reverse order and returns an *Error. A step that timed
// out or was cancelled is compensated as well because the remote side may
// have applied it. Compensations run even if ctx has been cancelled.
func (r *Runner) Run(ctx context.Context, steps ...Step) error {
	runID := uuid.NewString()
	done := make([]Step, 0, len(steps))

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return r.abort(ctx, runID, step.Name, err, done)
		}

		err := r.do(ctx, step)
		if err == nil {
			done = append(done, step)
			continue
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			done = append(done, step)
		}
		return r.abort(ctx, runID, step.Name, err, done)
	}

	return nil
}

func (r *Runner) do(ctx context.Context, step Step) error {
	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()

	err := step.Do(stepCtx)
	if err == nil && stepCtx.Err() != nil {
		// The call returned success after its deadline; its outcome is
		// unreliable.
		err = stepCtx.Err()
	}
	return err
}

func (r *Runner) abort(ctx context.Context, runID, failed string, cause error, done []Step) error {
	r.logger.Error("saga step failed, compensating",
		"run_id", runID, "step", failed, "err", cause, "completed", len(done))

	base := context.WithoutCancel(ctx)
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		cctx, cancel := context.WithTimeout(base, r.compensationTimeout)
		err := step.Compensate(cctx)
		cancel()
		if err != nil {
			r.logger.Error("compensation failed", "run_id", runID, "step", step.Name, "err", err)
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.Name, err))
			continue
		}
		r.logger.Info("compensation applied", "run_id", runID, "step", step.Name)
	}

	return &Error{
		RunID:           runID,
		Step:            failed,
		Err:             cause,
		CompensationErr: errors.Join(errs...),
	}
}
