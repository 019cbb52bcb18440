package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.CheckpointStore
	logger *slog.Logger
}

// NewLoggingMiddleware logs every store operation at debug level and failures at error level.
// A missing checkpoint is not a failure.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) log(ctx context.Context, op, runKey string, started time.Time, err error) {
	if err != nil && !errors.Is(err, domain.ErrCheckpointNotFound) {
		m.logger.ErrorContext(ctx, "Checkpoint store failed", "op", op, "run", runKey, "err", err)
		return
	}
	m.logger.DebugContext(ctx, "Checkpoint store", "op", op, "run", runKey, "duration", time.Since(started))
}

func (m *loggingMiddleware) Save(ctx context.Context, cp *domain.Checkpoint) error {
	started := time.Now()
	err := m.next.Save(ctx, cp)
	m.log(ctx, "save", cp.RunKey, started, err)
	return err
}

func (m *loggingMiddleware) Load(ctx context.Context, runKey string) (*domain.Checkpoint, error) {
	started := time.Now()
	cp, err := m.next.Load(ctx, runKey)
	m.log(ctx, "load", runKey, started, err)
	return cp, err
}

func (m *loggingMiddleware) Delete(ctx context.Context, runKey string) error {
	started := time.Now()
	err := m.next.Delete(ctx, runKey)
	m.log(ctx, "delete", runKey, started, err)
	return err
}

func (m *loggingMiddleware) List(ctx context.Context) ([]string, error) {
	started := time.Now()
	keys, err := m.next.List(ctx)
	m.log(ctx, "list", "", started, err)
	return keys, err
}
