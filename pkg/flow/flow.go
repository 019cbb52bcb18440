package flow

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/checkpoint"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// Step is one entry in a state's pipe list.
// A windowed step buffers contexts and only runs Aggregate when its window is full.
type Step[T any] struct {
	Name      string
	Pipe      Pipe[T]
	Window    *Window
	Aggregate Aggregator[T]
}

// Windowed reports whether the step aggregates a window.
func (s Step[T]) Windowed() bool {
	return s.Window != nil
}

// Flow is an immutable definition: the source, the declared states with their steps,
// hooks, the error strategy and the state manager holding checkpoints.
type Flow[T any] struct {
	name         string
	source       []T
	order        []domain.State
	steps        map[domain.State][]Step[T]
	hooks        Hooks[T]
	strategy     ErrorStrategy[T]
	stateManager ports.StateManager
	metadata     map[string]any
}

func (f *Flow[T]) Name() string                     { return f.name }
func (f *Flow[T]) Source() []T                      { return f.source }
func (f *Flow[T]) States() []domain.State           { return slices.Clone(f.order) }
func (f *Flow[T]) Hooks() Hooks[T]                  { return f.hooks }
func (f *Flow[T]) ErrorStrategy() ErrorStrategy[T]  { return f.strategy }
func (f *Flow[T]) StateManager() ports.StateManager { return f.stateManager }
func (f *Flow[T]) Metadata() map[string]any         { return maps.Clone(f.metadata) }

// Steps returns the steps of state and whether the state is declared.
func (f *Flow[T]) Steps(state domain.State) ([]Step[T], bool) {
	steps, ok := f.steps[state]
	return steps, ok
}

// FirstState returns the first declared state.
func (f *Flow[T]) FirstState() domain.State {
	if len(f.order) == 0 {
		return ""
	}
	return f.order[0]
}

// NextState returns the state declared after state, if any.
func (f *Flow[T]) NextState(state domain.State) (domain.State, bool) {
	i := slices.Index(f.order, state)
	if i < 0 || i+1 >= len(f.order) {
		return "", false
	}
	return f.order[i+1], true
}

// StatesFrom returns state and every state declared after it.
func (f *Flow[T]) StatesFrom(state domain.State) ([]domain.State, error) {
	i := slices.Index(f.order, state)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownState, state)
	}
	return slices.Clone(f.order[i:]), nil
}

// With returns a derived flow with a different source and extra metadata.
// Batch runs use it to execute the same states over one chunk at a time.
func (f *Flow[T]) With(source []T, metadata map[string]any) *Flow[T] {
	derived := *f
	derived.source = source
	derived.metadata = maps.Clone(f.metadata)
	maps.Copy(derived.metadata, metadata)
	return &derived
}

// Builder assembles a Flow.
type Builder[T any] struct {
	flow   Flow[T]
	states map[domain.State]*StateBuilder[T]
	around []AroundEachFunc[T]
	errs   []error
}

// New starts a flow over source.
func New[T any](source []T) *Builder[T] {
	return &Builder[T]{
		flow: Flow[T]{
			source:   source,
			steps:    make(map[domain.State][]Step[T]),
			metadata: make(map[string]any),
		},
		states: make(map[domain.State]*StateBuilder[T]),
	}
}

// Name sets the flow name; it namespaces checkpoints of the flow's runs.
func (b *Builder[T]) Name(name string) *Builder[T] {
	b.flow.name = name
	b.flow.metadata[domain.MetaFlow] = name
	return b
}

// RunID sets the run identity used to key checkpoints.
func (b *Builder[T]) RunID(id string) *Builder[T] {
	b.flow.metadata[domain.MetaRunID] = id
	return b
}

// Metadata adds a metadata entry visible to every context.
func (b *Builder[T]) Metadata(key string, value any) *Builder[T] {
	b.flow.metadata[key] = value
	return b
}

// StateManager sets the checkpoint store. Defaults to an in-memory manager.
func (b *Builder[T]) StateManager(sm ports.StateManager) *Builder[T] {
	b.flow.stateManager = sm
	return b
}

// ErrorStrategy sets the failure policy. Defaults to FailFast.
func (b *Builder[T]) ErrorStrategy(s ErrorStrategy[T]) *Builder[T] {
	b.flow.strategy = s
	return b
}

// Hooks replaces the hook set. AroundEach wrappers added with AroundEach are kept.
func (b *Builder[T]) Hooks(h Hooks[T]) *Builder[T] {
	b.flow.hooks = h
	return b
}

func (b *Builder[T]) AroundAll(fn AroundFunc[T]) *Builder[T] {
	b.flow.hooks.AroundAll = fn
	return b
}

func (b *Builder[T]) BeforeAll(fn func(context.Context, Context[T])) *Builder[T] {
	b.flow.hooks.BeforeAll = fn
	return b
}

func (b *Builder[T]) AfterAll(fn func(context.Context, Context[T])) *Builder[T] {
	b.flow.hooks.AfterAll = fn
	return b
}

func (b *Builder[T]) AroundEachState(fn AroundFunc[T]) *Builder[T] {
	b.flow.hooks.AroundEachState = fn
	return b
}

// AroundEach adds a pipe wrapper. Wrappers compose in registration order, the first outermost.
func (b *Builder[T]) AroundEach(fn AroundEachFunc[T]) *Builder[T] {
	b.around = append(b.around, fn)
	return b
}

func (b *Builder[T]) EachCondition(fn func(context.Context, Context[T]) bool) *Builder[T] {
	b.flow.hooks.EachCondition = fn
	return b
}

func (b *Builder[T]) Refresh(fn func(context.Context, Context[T]) (T, error)) *Builder[T] {
	b.flow.hooks.Refresh = fn
	return b
}

func (b *Builder[T]) Bootstrap(fn func(context.Context, Context[T]) (Context[T], error)) *Builder[T] {
	b.flow.hooks.Bootstrap = fn
	return b
}

func (b *Builder[T]) Sink(fn func(context.Context, Context[T]) error) *Builder[T] {
	b.flow.hooks.Sink = fn
	return b
}

func (b *Builder[T]) ExceptionAction(fn func(context.Context, Context[T], error)) *Builder[T] {
	b.flow.hooks.ExceptionAction = fn
	return b
}

// State declares a state, in order, and returns its builder.
// Declaring the same state again returns the existing builder.
func (b *Builder[T]) State(state domain.State) *StateBuilder[T] {
	if sb, ok := b.states[state]; ok {
		return sb
	}
	sb := &StateBuilder[T]{state: state, builder: b}
	b.states[state] = sb
	b.flow.order = append(b.flow.order, state)
	return sb
}

// Build validates and freezes the flow.
func (b *Builder[T]) Build() (*Flow[T], error) {
	if len(b.flow.order) == 0 {
		b.errs = append(b.errs, errors.New("flow has no states"))
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, fmt.Errorf("invalid flow: %w", err)
	}

	f := b.flow
	f.order = slices.Clone(b.flow.order)
	f.metadata = maps.Clone(b.flow.metadata)
	f.steps = make(map[domain.State][]Step[T], len(b.states))
	for state, sb := range b.states {
		f.steps[state] = slices.Clone(sb.steps)
	}
	if len(b.around) > 0 {
		wrappers := slices.Clone(b.around)
		if f.hooks.AroundEach != nil {
			wrappers = append([]AroundEachFunc[T]{f.hooks.AroundEach}, wrappers...)
		}
		f.hooks.AroundEach = ChainAroundEach(wrappers...)
	}
	if f.stateManager == nil {
		f.stateManager = checkpoint.NewManager(memory.New())
	}
	if f.strategy == nil {
		f.strategy = NewFailFast[T](nil)
	}
	return &f, nil
}

// StateBuilder declares the steps of one state.
type StateBuilder[T any] struct {
	state   domain.State
	steps   []Step[T]
	builder *Builder[T]
}

func (sb *StateBuilder[T]) nextName() string {
	return fmt.Sprintf("%s-%d", sb.state, len(sb.steps))
}

// Pipe appends p.
func (sb *StateBuilder[T]) Pipe(p Pipe[T]) *StateBuilder[T] {
	return sb.NamedPipe(sb.nextName(), p)
}

// NamedPipe appends p under name, which labels logs and metrics.
func (sb *StateBuilder[T]) NamedPipe(name string, p Pipe[T]) *StateBuilder[T] {
	sb.steps = append(sb.steps, Step[T]{Name: name, Pipe: p})
	return sb
}

// PipeStateless appends a probe: its output never reaches the sink nor the checkpoint.
func (sb *StateBuilder[T]) PipeStateless(p Pipe[T]) *StateBuilder[T] {
	return sb.NamedPipe(sb.nextName(), func(ctx context.Context, fc Context[T]) (Context[T], error) {
		out, err := p(ctx, fc)
		if err != nil {
			return out, err
		}
		return out.PreventChanges(), nil
	})
}

// Nothing appends a pass-through step.
func (sb *StateBuilder[T]) Nothing() *StateBuilder[T] {
	return sb.NamedPipe(sb.nextName(), func(_ context.Context, fc Context[T]) (Context[T], error) {
		return fc, nil
	})
}

// WaitFor appends a step that blocks for d, to pace calls to rate-limited backends.
func (sb *StateBuilder[T]) WaitFor(d time.Duration) *StateBuilder[T] {
	return sb.NamedPipe(sb.nextName(), func(ctx context.Context, fc Context[T]) (Context[T], error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fc, ctx.Err()
		case <-timer.C:
			return fc, nil
		}
	})
}

// Window appends a step that groups item contexts by w and folds each full group with agg.
func (sb *StateBuilder[T]) Window(w Window, agg Aggregator[T]) *StateBuilder[T] {
	if err := w.validate(); err != nil {
		sb.builder.errs = append(sb.builder.errs, fmt.Errorf("state %q: %w", sb.state, err))
	}
	sb.steps = append(sb.steps, Step[T]{Name: sb.nextName(), Window: &w, Aggregate: agg})
	return sb
}

// State declares the next state; shorthand for going back to the flow builder.
func (sb *StateBuilder[T]) State(state domain.State) *StateBuilder[T] {
	return sb.builder.State(state)
}

// Build builds the whole flow.
func (sb *StateBuilder[T]) Build() (*Flow[T], error) {
	return sb.builder.Build()
}
