package ports

import (
	"context"

	"github.com/aretw0/tessera/pkg/domain"
)

// StateManager is the only durable-state interface the runner depends on.
// Positions are keyed by the run identity carried in metadata (see domain.RunKey).
type StateManager interface {
	// SaveState records that the run of state will continue at (item, pipe).
	SaveState(ctx context.Context, metadata map[string]any, item, pipe int, state domain.State) error

	// LastProcessedItem returns the item index to resume from, 0 for a new run.
	LastProcessedItem(ctx context.Context, metadata map[string]any) (int, error)

	// LastProcessorIndex returns the pipe index to resume from, 0 for a new run.
	LastProcessorIndex(ctx context.Context, metadata map[string]any) (int, error)

	// State returns the state to resume, or "" for a new run.
	State(ctx context.Context, metadata map[string]any) (domain.State, error)

	// IsChunkProcessed reports whether the chunk with the given content hash was completed.
	IsChunkProcessed(ctx context.Context, metadata map[string]any, hash string) (bool, error)

	// SetChunkIsProcessed marks the chunk with the given content hash as completed.
	SetChunkIsProcessed(ctx context.Context, metadata map[string]any, hash string) error
}

// CheckpointStore persists checkpoints by run key.
// Adapters implement it; checkpoint.Manager turns any store into a StateManager.
type CheckpointStore interface {
	// Save persists the checkpoint under cp.RunKey.
	Save(ctx context.Context, cp *domain.Checkpoint) error

	// Load retrieves the checkpoint of a run.
	// Returns domain.ErrCheckpointNotFound if the run has none.
	Load(ctx context.Context, runKey string) (*domain.Checkpoint, error)

	// Delete removes the checkpoint of a run.
	Delete(ctx context.Context, runKey string) error

	// List returns the run keys holding a checkpoint.
	List(ctx context.Context) ([]string, error)
}
