package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
)

// RecursiveRunner drives a Runner across successive states, so a multi-phase
// flow resumes wherever a previous invocation stopped.
type RecursiveRunner[T any] struct {
	runner  *Runner[T]
	measure MeasureFunc
	logger  *slog.Logger
}

// NewRecursive creates a RecursiveRunner for f.
func NewRecursive[T any](f *flow.Flow[T], opts ...Option) *RecursiveRunner[T] {
	s := settings{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	r := &RecursiveRunner[T]{
		runner:  New(f, opts...),
		measure: s.measure,
		logger:  s.logger,
	}
	if r.measure == nil {
		r.measure = r.timed
	}
	return r
}

// Flow returns the flow the runner executes.
func (r *RecursiveRunner[T]) Flow() *flow.Flow[T] {
	return r.runner.flow
}

// Run executes from and every state declared after it.
func (r *RecursiveRunner[T]) Run(ctx context.Context, from domain.State) error {
	states, err := r.runner.flow.StatesFrom(from)
	if err != nil {
		return err
	}
	return r.measure(ctx, func(ctx context.Context) error {
		for _, state := range states {
			if err := r.runner.Run(ctx, state); err != nil {
				return fmt.Errorf("state %q: %w", state, err)
			}
		}
		return nil
	})
}

// Resume continues from the state stored by the StateManager, or from the first state.
func (r *RecursiveRunner[T]) Resume(ctx context.Context) error {
	f := r.runner.flow
	state, err := f.StateManager().State(ctx, f.Metadata())
	if err != nil {
		return fmt.Errorf("failed to read checkpoint state: %w", err)
	}
	if state == "" {
		state = f.FirstState()
	}
	return r.Run(ctx, state)
}

func (r *RecursiveRunner[T]) timed(ctx context.Context, run func(context.Context) error) error {
	started := time.Now()
	err := run(ctx)
	if err != nil {
		r.logger.Error("Flow stopped", "flow", r.runner.flow.Name(), "duration", time.Since(started), "err", err)
		return err
	}
	r.logger.Info("Flow finished", "flow", r.runner.flow.Name(), "duration", time.Since(started))
	return nil
}
