package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tessera/pkg/domain"
)

// LoggingHooks logs every lifecycle event. Pipe and checkpoint events are logged at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.InfoContext(ctx, "state_enter", "state", e.State)
		},
		OnStateLeave: func(ctx context.Context, e *domain.StateEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "state_leave", "state", e.State, "items", e.Items, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "state_leave", "state", e.State, "items", e.Items, "duration", e.Duration)
		},
		OnPipe: func(ctx context.Context, e *domain.PipeEvent) {
			logger.DebugContext(ctx, "pipe",
				"state", e.State,
				"item", e.Item,
				"pipe", e.Pipe,
				"duration", e.Duration,
				"err", e.Err,
			)
		},
		OnItem: func(ctx context.Context, e *domain.ItemEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "item", "state", e.State, "item", e.Item, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "item", "state", e.State, "item", e.Item, "skipped", e.Skipped)
		},
		OnCheckpoint: func(ctx context.Context, e *domain.CheckpointEvent) {
			logger.DebugContext(ctx, "checkpoint", "state", e.State, "item", e.Item, "pipe", e.Pipe)
		},
	}
}
