package flow

import "context"

// Pipe is one transformation step of a state.
type Pipe[T any] func(ctx context.Context, fc Context[T]) (Context[T], error)

// AroundEachFunc wraps a single pipe invocation.
type AroundEachFunc[T any] func(ctx context.Context, fc Context[T], next Pipe[T]) (Context[T], error)

// AroundFunc wraps a block of work: a whole state run or one item's pipe chain.
type AroundFunc[T any] func(ctx context.Context, fc Context[T], run func(context.Context) error) error

// Hooks are the extension points of a flow, from the widest scope to the narrowest.
// Every field is optional.
type Hooks[T any] struct {
	// AroundAll wraps the run of one state over all items.
	AroundAll AroundFunc[T]
	// BeforeAll and AfterAll fire once per state run.
	BeforeAll func(ctx context.Context, fc Context[T])
	AfterAll  func(ctx context.Context, fc Context[T])
	// AroundEachState wraps the pipe chain of one item.
	AroundEachState AroundFunc[T]
	// AroundEach wraps a single pipe.
	AroundEach AroundEachFunc[T]
	// EachCondition may veto a pipe for the current context; vetoed pipes pass the context through.
	EachCondition func(ctx context.Context, fc Context[T]) bool
	// Refresh re-derives the working item before Bootstrap.
	Refresh func(ctx context.Context, fc Context[T]) (T, error)
	// Bootstrap prepares the item context for pipe execution.
	Bootstrap func(ctx context.Context, fc Context[T]) (Context[T], error)
	// Sink consumes the context after the last pipe of an item.
	Sink func(ctx context.Context, fc Context[T]) error
	// ExceptionAction observes every failure before the error strategy decides.
	ExceptionAction func(ctx context.Context, fc Context[T], err error)
}

// ChainAroundEach composes wrappers; the first one is the outermost.
func ChainAroundEach[T any](wrappers ...AroundEachFunc[T]) AroundEachFunc[T] {
	return func(ctx context.Context, fc Context[T], next Pipe[T]) (Context[T], error) {
		call := next
		for i := len(wrappers) - 1; i >= 0; i-- {
			w, inner := wrappers[i], call
			if w == nil {
				continue
			}
			call = func(ctx context.Context, fc Context[T]) (Context[T], error) {
				return w(ctx, fc, inner)
			}
		}
		return call(ctx, fc)
	}
}

// ChainAround composes around wrappers; the first one is the outermost.
func ChainAround[T any](wrappers ...AroundFunc[T]) AroundFunc[T] {
	return func(ctx context.Context, fc Context[T], run func(context.Context) error) error {
		call := run
		for i := len(wrappers) - 1; i >= 0; i-- {
			w, inner := wrappers[i], call
			if w == nil {
				continue
			}
			call = func(ctx context.Context) error {
				return w(ctx, fc, inner)
			}
		}
		return call(ctx)
	}
}
