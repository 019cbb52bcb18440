package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// StoreObserver receives the outcome of every store operation.
// observability.Metrics implements it.
type StoreObserver interface {
	ObserveStore(op string, d time.Duration, err error)
}

type metricsMiddleware struct {
	next     ports.CheckpointStore
	observer StoreObserver
}

// NewMetricsMiddleware reports the duration and outcome of store operations to observer.
func NewMetricsMiddleware(observer StoreObserver) Middleware {
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		return &metricsMiddleware{next: next, observer: observer}
	}
}

func (m *metricsMiddleware) observe(op string, started time.Time, err error) {
	if errors.Is(err, domain.ErrCheckpointNotFound) {
		err = nil
	}
	m.observer.ObserveStore(op, time.Since(started), err)
}

func (m *metricsMiddleware) Save(ctx context.Context, cp *domain.Checkpoint) error {
	started := time.Now()
	err := m.next.Save(ctx, cp)
	m.observe("save", started, err)
	return err
}

func (m *metricsMiddleware) Load(ctx context.Context, runKey string) (*domain.Checkpoint, error) {
	started := time.Now()
	cp, err := m.next.Load(ctx, runKey)
	m.observe("load", started, err)
	return cp, err
}

func (m *metricsMiddleware) Delete(ctx context.Context, runKey string) error {
	started := time.Now()
	err := m.next.Delete(ctx, runKey)
	m.observe("delete", started, err)
	return err
}

func (m *metricsMiddleware) List(ctx context.Context) ([]string, error) {
	started := time.Now()
	keys, err := m.next.List(ctx)
	m.observe("list", started, err)
	return keys, err
}
