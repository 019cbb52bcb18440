// Package checkpoint implements ports.StateManager on top of any ports.CheckpointStore.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// Manager maps run metadata to checkpoints kept in a CheckpointStore.
// It assumes a single writer per run key; see runlock for cross-process serialization.
type Manager struct {
	store  ports.CheckpointStore
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager backed by store.
func NewManager(store ports.CheckpointStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying checkpoint store.
func (m *Manager) Store() ports.CheckpointStore {
	return m.store
}

func (m *Manager) load(ctx context.Context, metadata map[string]any) (string, *domain.Checkpoint, error) {
	key, err := domain.RunKey(metadata)
	if err != nil {
		return "", nil, err
	}
	cp, err := m.store.Load(ctx, key)
	if errors.Is(err, domain.ErrCheckpointNotFound) {
		return key, nil, nil
	}
	if err != nil {
		return key, nil, fmt.Errorf("failed to load checkpoint %q: %w", key, err)
	}
	return key, cp, nil
}

// SaveState records the next position of the run. Processed chunks are preserved.
func (m *Manager) SaveState(ctx context.Context, metadata map[string]any, item, pipe int, state domain.State) error {
	key, cp, err := m.load(ctx, metadata)
	if err != nil {
		return err
	}
	if cp == nil {
		cp = domain.NewCheckpoint(key, item, pipe, state)
	}
	cp.Item, cp.Pipe, cp.State = item, pipe, state
	cp.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(ctx, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint %q: %w", key, err)
	}
	m.logger.Debug("Checkpoint saved", "run", key, "state", state, "item", item, "pipe", pipe)
	return nil
}

func (m *Manager) LastProcessedItem(ctx context.Context, metadata map[string]any) (int, error) {
	_, cp, err := m.load(ctx, metadata)
	if err != nil || cp == nil {
		return 0, err
	}
	return cp.Item, nil
}

func (m *Manager) LastProcessorIndex(ctx context.Context, metadata map[string]any) (int, error) {
	_, cp, err := m.load(ctx, metadata)
	if err != nil || cp == nil {
		return 0, err
	}
	return cp.Pipe, nil
}

func (m *Manager) State(ctx context.Context, metadata map[string]any) (domain.State, error) {
	_, cp, err := m.load(ctx, metadata)
	if err != nil || cp == nil {
		return "", err
	}
	return cp.State, nil
}

func (m *Manager) IsChunkProcessed(ctx context.Context, metadata map[string]any, hash string) (bool, error) {
	_, cp, err := m.load(ctx, metadata)
	if err != nil || cp == nil {
		return false, err
	}
	return cp.HasChunk(hash), nil
}

func (m *Manager) SetChunkIsProcessed(ctx context.Context, metadata map[string]any, hash string) error {
	key, cp, err := m.load(ctx, metadata)
	if err != nil {
		return err
	}
	if cp == nil {
		cp = domain.NewCheckpoint(key, 0, 0, "")
	}
	if cp.HasChunk(hash) {
		return nil
	}
	cp.Chunks = append(cp.Chunks, hash)
	cp.UpdatedAt = time.Now().UTC()

	if err := m.store.Save(ctx, cp); err != nil {
		return fmt.Errorf("failed to mark chunk %s of %q: %w", hash, key, err)
	}
	m.logger.Debug("Chunk marked as processed", "run", key, "chunk", hash)
	return nil
}

// Checkpoint returns the raw checkpoint of the run described by metadata.
func (m *Manager) Checkpoint(ctx context.Context, metadata map[string]any) (*domain.Checkpoint, error) {
	key, cp, err := m.load(ctx, metadata)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrCheckpointNotFound, key)
	}
	return cp, nil
}

// Reset forgets the run described by metadata, including processed chunks.
func (m *Manager) Reset(ctx context.Context, metadata map[string]any) error {
	key, err := domain.RunKey(metadata)
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, key)
}
