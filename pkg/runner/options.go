package runner

import (
	"context"
	"log/slog"

	"github.com/aretw0/tessera/pkg/domain"
)

// MeasureFunc wraps a whole multi-state run, e.g. for timing or a transaction.
type MeasureFunc func(ctx context.Context, run func(context.Context) error) error

type settings struct {
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	measure MeasureFunc
}

// Option defines a functional option for configuring runners.
type Option func(*settings)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithMeasure sets the outer boundary of RecursiveRunner and BatchRunner runs.
func WithMeasure(fn MeasureFunc) Option {
	return func(s *settings) {
		s.measure = fn
	}
}
