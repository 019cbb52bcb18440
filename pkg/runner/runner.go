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

// Runner executes one state of a flow over all items, checkpointing after every pipe.
// Runs sharing a StateManager and run key must be serialized by the caller.
type Runner[T any] struct {
	flow   *flow.Flow[T]
	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// New creates a Runner for f.
func New[T any](f *flow.Flow[T], opts ...Option) *Runner[T] {
	s := settings{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Runner[T]{
		flow:   f,
		logger: s.logger,
		hooks:  s.hooks,
	}
}

// Flow returns the flow the runner executes.
func (r *Runner[T]) Flow() *flow.Flow[T] {
	return r.flow
}

// stateRun is the mutable bookkeeping of one Run call.
type stateRun[T any] struct {
	state    domain.State
	steps    []flow.Step[T]
	metadata map[string]any
	buffers  map[int]*flow.WindowBuffer[T]
	current  flow.Context[T]
	items    int
}

func (sr *stateRun[T]) buffer(j int) *flow.WindowBuffer[T] {
	buf, ok := sr.buffers[j]
	if !ok {
		buf = flow.NewWindowBuffer[T](*sr.steps[j].Window)
		sr.buffers[j] = buf
	}
	return buf
}

// windowsPending reports whether a window holds contexts not yet aggregated.
// Checkpoints are held back meanwhile, so a crash replays the whole partial window.
func (sr *stateRun[T]) windowsPending() bool {
	for _, buf := range sr.buffers {
		if buf.Pending() {
			return true
		}
	}
	return false
}

// Run processes state from the stored checkpoint to the end of the source.
func (r *Runner[T]) Run(ctx context.Context, state domain.State) (err error) {
	steps, ok := r.flow.Steps(state)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownState, state)
	}
	if len(steps) == 0 {
		return fmt.Errorf("state %q: %w", state, domain.ErrNoPipes)
	}

	metadata := r.flow.Metadata()
	startItem, startPipe, err := r.position(ctx, metadata, state, len(steps))
	if err != nil {
		return err
	}

	var zero T
	sr := &stateRun[T]{
		state:    state,
		steps:    steps,
		metadata: metadata,
		buffers:  make(map[int]*flow.WindowBuffer[T]),
		current:  flow.NewContext(state, zero, metadata),
	}

	logger := r.logger.With("state", state)
	logger.Info("State started", "item", startItem, "pipe", startPipe, "items", len(r.flow.Source()))

	started := time.Now()
	r.emitState(ctx, r.hooks.OnStateEnter, domain.EventStateEnter, sr, 0, nil)

	hooks := r.flow.Hooks()
	if hooks.BeforeAll != nil {
		hooks.BeforeAll(ctx, sr.current)
	}
	defer func() {
		if hooks.AfterAll != nil {
			hooks.AfterAll(ctx, sr.current)
		}
		r.emitState(ctx, r.hooks.OnStateLeave, domain.EventStateLeave, sr, time.Since(started), err)
		if err != nil {
			logger.Error("State failed", "items", sr.items, "err", err)
			return
		}
		logger.Info("State finished", "items", sr.items, "duration", time.Since(started))
	}()

	process := func(ctx context.Context) error {
		return r.processItems(ctx, sr, startItem, startPipe)
	}
	if hooks.AroundAll != nil {
		return hooks.AroundAll(ctx, sr.current, process)
	}
	return process(ctx)
}

// position reads where state should resume. A checkpoint recorded for another
// state does not apply and the state starts from the beginning.
func (r *Runner[T]) position(ctx context.Context, metadata map[string]any, state domain.State, steps int) (int, int, error) {
	sm := r.flow.StateManager()

	stored, err := sm.State(ctx, metadata)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read checkpoint state: %w", err)
	}
	if stored != "" && stored != state {
		return 0, 0, nil
	}

	item, err := sm.LastProcessedItem(ctx, metadata)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read checkpoint item: %w", err)
	}
	pipe, err := sm.LastProcessorIndex(ctx, metadata)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read checkpoint pipe: %w", err)
	}
	return max(item, 0), min(max(pipe, 0), steps), nil
}

func (r *Runner[T]) processItems(ctx context.Context, sr *stateRun[T], startItem, startPipe int) error {
	source := r.flow.Source()
	for i := startItem; i < len(source); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		from := 0
		if i == startItem {
			from = startPipe
		}
		if err := r.processItem(ctx, sr, i, from); err != nil {
			return err
		}
	}

	if err := r.flushWindows(ctx, sr); err != nil {
		return err
	}

	if next, ok := r.flow.NextState(sr.state); ok {
		return r.save(ctx, sr, 0, 0, next)
	}
	return r.save(ctx, sr, len(source), 0, sr.state)
}

func (r *Runner[T]) processItem(ctx context.Context, sr *stateRun[T], i, from int) error {
	hooks := r.flow.Hooks()
	item := r.flow.Source()[i]

	fc := sr.current.WithoutEphemeralArgs().EnableChanges().Copy(func(b *flow.ContextBuilder[T]) {
		b.State = sr.state
		b.Item = item
		b.PipeIndex = from
	})

	fc, err := r.prepare(ctx, fc, i)
	if err != nil {
		sr.current = fc
		return r.fail(ctx, sr, fc, i, err)
	}

	completed := false
	chain := func(ctx context.Context) error {
		out, ok, err := r.processPipes(ctx, sr, fc, i, from)
		fc, completed = out, ok
		return err
	}
	if hooks.AroundEachState != nil {
		err = hooks.AroundEachState(ctx, fc, chain)
	} else {
		err = chain(ctx)
	}

	sr.current = fc
	if err != nil {
		return err
	}
	sr.items++
	r.emitItem(ctx, sr, i, !completed, nil)
	return nil
}

// prepare refreshes the item, records the iteration and bootstraps the context.
func (r *Runner[T]) prepare(ctx context.Context, fc flow.Context[T], i int) (flow.Context[T], error) {
	hooks := r.flow.Hooks()
	if hooks.Refresh != nil {
		item, err := hooks.Refresh(ctx, fc)
		if err != nil {
			return fc, fmt.Errorf("refresh item %d: %w", i, err)
		}
		fc = fc.WithItem(item)
	}
	fc = flow.Set(fc, domain.Iteration, i+1)
	if hooks.Bootstrap != nil {
		out, err := hooks.Bootstrap(ctx, fc)
		if err != nil {
			return fc, fmt.Errorf("bootstrap item %d: %w", i, err)
		}
		fc = out
	}
	return fc, nil
}

// processPipes runs the steps of one item from pipe index from, then the sink.
// It reports whether the item completed; a failure swallowed by the error strategy
// returns ok=false and a nil error.
func (r *Runner[T]) processPipes(ctx context.Context, sr *stateRun[T], fc flow.Context[T], i, from int) (flow.Context[T], bool, error) {
	hooks := r.flow.Hooks()
	// Any step preventing the sink prevents it for the whole item. The item
	// checkpoint follows the last executed step only: earlier steps already
	// advanced the pipe checkpoint past themselves.
	sinkPrevented, updatePrevented := false, false

	for j := from; j < len(sr.steps); j++ {
		step := sr.steps[j]
		in := fc.WithPipeIndex(j)

		if hooks.EachCondition != nil && !hooks.EachCondition(ctx, in) {
			r.logger.Debug("Pipe skipped by condition", "state", sr.state, "item", i, "pipe", step.Name)
			fc = in
			continue
		}

		out, err := r.invoke(ctx, sr, in, i, j)
		if err != nil {
			return in, false, r.handle(ctx, in, err)
		}

		sinkPrevented = sinkPrevented || out.SinkPrevented()
		updatePrevented = out.StateUpdatePrevented()
		fc = out.EnableChanges()

		if !updatePrevented && !sr.windowsPending() {
			if err := r.save(ctx, sr, i, j+1, sr.state); err != nil {
				return fc, false, err
			}
		}
	}

	if !sinkPrevented && hooks.Sink != nil {
		if err := hooks.Sink(ctx, fc.WithoutEphemeralArgs()); err != nil {
			return fc, false, r.handle(ctx, fc, fmt.Errorf("sink item %d: %w", i, err))
		}
	}

	if !updatePrevented && !sr.windowsPending() {
		if err := r.save(ctx, sr, i+1, 0, sr.state); err != nil {
			return fc, false, err
		}
	}
	return fc, true, nil
}

// invoke runs step j, either a plain pipe or a window that may aggregate.
func (r *Runner[T]) invoke(ctx context.Context, sr *stateRun[T], in flow.Context[T], i, j int) (flow.Context[T], error) {
	step := sr.steps[j]
	started := time.Now()

	var (
		out flow.Context[T]
		err error
	)
	if step.Windowed() {
		batch, ready := sr.buffer(j).Add(in)
		if ready {
			out, err = r.call(ctx, in, aggregate(step.Aggregate, batch))
		} else {
			out = in
		}
	} else {
		out, err = r.call(ctx, in, step.Pipe)
	}

	if r.hooks.OnPipe != nil {
		r.hooks.OnPipe(ctx, &domain.PipeEvent{
			EventBase: r.base(domain.EventPipe, sr.state),
			Item:      i,
			Pipe:      j,
			Duration:  time.Since(started),
			Err:       err,
		})
	}
	r.logger.Debug("Pipe done", "state", sr.state, "item", i, "pipe", step.Name, "duration", time.Since(started), "err", err)
	return out, err
}

func aggregate[T any](agg flow.Aggregator[T], batch []flow.Context[T]) flow.Pipe[T] {
	return func(ctx context.Context, _ flow.Context[T]) (flow.Context[T], error) {
		return agg(ctx, batch)
	}
}

// call invokes p through the AroundEach hook, turning panics into errors.
func (r *Runner[T]) call(ctx context.Context, fc flow.Context[T], p flow.Pipe[T]) (out flow.Context[T], err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = fc, fmt.Errorf("pipe panicked: %v", rec)
		}
	}()

	if around := r.flow.Hooks().AroundEach; around != nil {
		return around(ctx, fc, p)
	}
	return p(ctx, fc)
}

// flushWindows aggregates trailing partial windows and sinks their output.
func (r *Runner[T]) flushWindows(ctx context.Context, sr *stateRun[T]) error {
	hooks := r.flow.Hooks()
	for j := range sr.steps {
		buf, ok := sr.buffers[j]
		if !ok {
			continue
		}
		batch, ok := buf.Flush()
		if !ok {
			continue
		}

		in := sr.current.WithPipeIndex(j)
		out, err := r.call(ctx, in, aggregate(sr.steps[j].Aggregate, batch))
		if err != nil {
			if herr := r.handle(ctx, in, err); herr != nil {
				return herr
			}
			continue
		}

		sinkPrevented := out.SinkPrevented()
		sr.current = out.EnableChanges()
		if !sinkPrevented && hooks.Sink != nil {
			if err := hooks.Sink(ctx, sr.current.WithoutEphemeralArgs()); err != nil {
				if herr := r.handle(ctx, sr.current, fmt.Errorf("sink window: %w", err)); herr != nil {
					return herr
				}
			}
		}
	}
	return nil
}

// fail routes a failure outside the pipe chain through the error strategy.
func (r *Runner[T]) fail(ctx context.Context, sr *stateRun[T], fc flow.Context[T], i int, err error) error {
	herr := r.handle(ctx, fc, err)
	r.emitItem(ctx, sr, i, true, err)
	return herr
}

// handle calls the exception action, then lets the error strategy decide.
func (r *Runner[T]) handle(ctx context.Context, fc flow.Context[T], err error) error {
	if action := r.flow.Hooks().ExceptionAction; action != nil {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Warn("Exception action panicked", "panic", rec)
				}
			}()
			action(ctx, fc, err)
		}()
	}
	return r.flow.ErrorStrategy().HandleError(ctx, fc, err)
}

func (r *Runner[T]) save(ctx context.Context, sr *stateRun[T], item, pipe int, state domain.State) error {
	if err := r.flow.StateManager().SaveState(ctx, sr.metadata, item, pipe, state); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	if r.hooks.OnCheckpoint != nil {
		r.hooks.OnCheckpoint(ctx, &domain.CheckpointEvent{
			EventBase: r.base(domain.EventCheckpoint, state),
			Item:      item,
			Pipe:      pipe,
		})
	}
	return nil
}

func (r *Runner[T]) base(t domain.EventType, state domain.State) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, State: state}
}

func (r *Runner[T]) emitState(ctx context.Context, fn func(context.Context, *domain.StateEvent), t domain.EventType, sr *stateRun[T], d time.Duration, err error) {
	if fn == nil {
		return
	}
	fn(ctx, &domain.StateEvent{
		EventBase: r.base(t, sr.state),
		Items:     sr.items,
		Duration:  d,
		Err:       err,
	})
}

func (r *Runner[T]) emitItem(ctx context.Context, sr *stateRun[T], i int, skipped bool, err error) {
	if r.hooks.OnItem == nil {
		return
	}
	r.hooks.OnItem(ctx, &domain.ItemEvent{
		EventBase: r.base(domain.EventItem, sr.state),
		Item:      i,
		Skipped:   skipped,
		Err:       err,
	})
}
