package tessera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
	"github.com/aretw0/tessera/pkg/runlock"
	"github.com/aretw0/tessera/pkg/runner"
)

// Version is the tessera release. Overridden at link time.
var Version = "0.1.0-dev"

// ErrNotResettable is returned by Reset when the flow's state manager cannot forget runs.
var ErrNotResettable = errors.New("state manager does not support reset")

// Engine is the high-level entry point for running a flow.
// It picks the recursive or batch runner and serializes runs sharing a run key.
type Engine[T any] struct {
	flow      *flow.Flow[T]
	chunkSize int
	locks     *runlock.Manager
	hooks     domain.LifecycleHooks
	measure   runner.MeasureFunc
	logger    *slog.Logger
}

type settings struct {
	chunkSize int
	locks     *runlock.Manager
	hooks     domain.LifecycleHooks
	measure   runner.MeasureFunc
	logger    *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*settings)

// WithChunkSize runs the flow in chunks of n items, remembering completed chunks.
// Zero runs the whole source at once.
func WithChunkSize(n int) Option {
	return func(s *settings) {
		s.chunkSize = n
	}
}

// WithRunLock serializes runs through m.
func WithRunLock(m *runlock.Manager) Option {
	return func(s *settings) {
		s.locks = m
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithMeasure wraps every run, e.g. for timing.
func WithMeasure(fn runner.MeasureFunc) Option {
	return func(s *settings) {
		s.measure = fn
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// New creates an Engine for f.
func New[T any](f *flow.Flow[T], opts ...Option) (*Engine[T], error) {
	if f == nil {
		return nil, errors.New("flow is required")
	}
	s := settings{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.chunkSize < 0 {
		return nil, fmt.Errorf("invalid chunk size %d", s.chunkSize)
	}

	logger := s.logger
	if name := f.Name(); name != "" {
		logger = logger.With("flow", name)
	}
	return &Engine[T]{
		flow:      f,
		chunkSize: s.chunkSize,
		locks:     s.locks,
		hooks:     s.hooks,
		measure:   s.measure,
		logger:    logger,
	}, nil
}

func (e *Engine[T]) Flow() *flow.Flow[T] {
	return e.flow
}

// RunKey is the key the engine's checkpoints and locks are stored under.
func (e *Engine[T]) RunKey() (string, error) {
	return domain.RunKey(e.flow.Metadata())
}

func (e *Engine[T]) runnerOptions() []runner.Option {
	opts := []runner.Option{
		runner.WithLogger(e.logger),
		runner.WithLifecycleHooks(e.hooks),
	}
	if e.measure != nil {
		opts = append(opts, runner.WithMeasure(e.measure))
	}
	return opts
}

// Run resumes the flow from its checkpoint, or starts it.
func (e *Engine[T]) Run(ctx context.Context) error {
	return e.locked(ctx, func(ctx context.Context) error {
		if e.chunkSize > 0 {
			return runner.NewBatch(e.flow, e.chunkSize, e.runnerOptions()...).Run(ctx)
		}
		return runner.NewRecursive(e.flow, e.runnerOptions()...).Resume(ctx)
	})
}

// RunFrom runs state and every state after it, ignoring the stored state.
// Item and pipe positions stored for state are still honored.
func (e *Engine[T]) RunFrom(ctx context.Context, state domain.State) error {
	return e.locked(ctx, func(ctx context.Context) error {
		return runner.NewRecursive(e.flow, e.runnerOptions()...).Run(ctx, state)
	})
}

func (e *Engine[T]) locked(ctx context.Context, run func(context.Context) error) error {
	key, err := e.RunKey()
	if err != nil {
		return err
	}
	logger := e.logger.With("run", key)
	logger.Info("Run started", "items", len(e.flow.Source()), "chunk_size", e.chunkSize)
	started := time.Now()

	if e.locks != nil {
		err = e.locks.WithLock(ctx, key, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return err
	}
	logger.Info("Run finished", "duration", time.Since(started))
	return nil
}

type resetter interface {
	Reset(ctx context.Context, metadata map[string]any) error
}

type inspector interface {
	Checkpoint(ctx context.Context, metadata map[string]any) (*domain.Checkpoint, error)
}

// Reset forgets the run's checkpoint and processed chunks.
func (e *Engine[T]) Reset(ctx context.Context) error {
	sm, ok := e.flow.StateManager().(resetter)
	if !ok {
		return ErrNotResettable
	}
	return sm.Reset(ctx, e.flow.Metadata())
}

// Checkpoint returns the stored position of the run.
// Returns domain.ErrCheckpointNotFound for a run that never saved one.
func (e *Engine[T]) Checkpoint(ctx context.Context) (*domain.Checkpoint, error) {
	sm, ok := e.flow.StateManager().(inspector)
	if !ok {
		return nil, fmt.Errorf("%w: state manager does not expose checkpoints", domain.ErrCheckpointNotFound)
	}
	return sm.Checkpoint(ctx, e.flow.Metadata())
}
