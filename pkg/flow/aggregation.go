package flow

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
)

func lastOf[T any](contexts []Context[T]) Context[T] {
	return contexts[len(contexts)-1]
}

func emit[T any](contexts []Context[T], value any) (Context[T], error) {
	return lastOf(contexts).Set(domain.Aggregate.Of(value)), nil
}

// Count writes the number of contexts in the window.
func Count[T any]() Aggregator[T] {
	return func(_ context.Context, contexts []Context[T]) (Context[T], error) {
		return emit(contexts, len(contexts))
	}
}

// Sum writes the sum of value over the window.
func Sum[T any](value func(Context[T]) float64) Aggregator[T] {
	return func(_ context.Context, contexts []Context[T]) (Context[T], error) {
		var total float64
		for _, c := range contexts {
			total += value(c)
		}
		return emit(contexts, total)
	}
}

// Avg writes the mean of value over the window.
func Avg[T any](value func(Context[T]) float64) Aggregator[T] {
	return func(_ context.Context, contexts []Context[T]) (Context[T], error) {
		var total float64
		for _, c := range contexts {
			total += value(c)
		}
		return emit(contexts, total/float64(len(contexts)))
	}
}

// Collect writes the slice of value over the window.
func Collect[T, V any](value func(Context[T]) V) Aggregator[T] {
	return func(_ context.Context, contexts []Context[T]) (Context[T], error) {
		out := make([]V, len(contexts))
		for i, c := range contexts {
			out[i] = value(c)
		}
		return emit(contexts, out)
	}
}

// Items writes the window's items.
func Items[T any]() Aggregator[T] {
	return Collect(func(c Context[T]) T { return c.Item() })
}

// AndThen runs next on the aggregated context.
func AndThen[T any](agg Aggregator[T], next Pipe[T]) Aggregator[T] {
	return func(ctx context.Context, contexts []Context[T]) (Context[T], error) {
		fc, err := agg(ctx, contexts)
		if err != nil {
			return fc, err
		}
		return next(ctx, fc)
	}
}
