package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a CheckpointStore
// implementation adheres to the defined interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()
	runKey := "contract-run-" + time.Now().Format("20060102150405.000000000")

	t.Run("Save and Load", func(t *testing.T) {
		cp := domain.NewCheckpoint(runKey, 3, 1, "translate")
		cp.Chunks = []string{"0badf00d"}

		require.NoError(t, store.Save(ctx, cp))

		loaded, err := store.Load(ctx, runKey)
		require.NoError(t, err)
		assert.Equal(t, runKey, loaded.RunKey)
		assert.Equal(t, 3, loaded.Item)
		assert.Equal(t, 1, loaded.Pipe)
		assert.Equal(t, domain.State("translate"), loaded.State)
		assert.Equal(t, []string{"0badf00d"}, loaded.Chunks)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewCheckpoint(runKey, 4, 0, "proofread")))

		loaded, err := store.Load(ctx, runKey)
		require.NoError(t, err)
		assert.Equal(t, 4, loaded.Item)
		assert.Equal(t, domain.State("proofread"), loaded.State)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, runKey)
		require.NoError(t, err)
		loaded.Item = 99

		again, err := store.Load(ctx, runKey)
		require.NoError(t, err)
		assert.Equal(t, 4, again.Item)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runKey)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := runKey + "-1"
		id2 := runKey + "-2"
		require.NoError(t, store.Save(ctx, domain.NewCheckpoint(id1, 0, 0, "a")))
		require.NoError(t, store.Save(ctx, domain.NewCheckpoint(id2, 0, 0, "a")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, runKey))

		_, err := store.Load(ctx, runKey)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound, "Load after Delete should return ErrCheckpointNotFound")
	})
}

// RunStateManagerContract verifies the StateManager semantics the runner relies on.
func RunStateManagerContract(t *testing.T, sm StateManager) {
	ctx := context.Background()
	md := map[string]any{domain.MetaRunID: fmt.Sprintf("contract-%d", time.Now().UnixNano())}

	t.Run("New run starts at zero", func(t *testing.T) {
		item, err := sm.LastProcessedItem(ctx, md)
		require.NoError(t, err)
		pipe, err := sm.LastProcessorIndex(ctx, md)
		require.NoError(t, err)
		state, err := sm.State(ctx, md)
		require.NoError(t, err)

		assert.Equal(t, 0, item)
		assert.Equal(t, 0, pipe)
		assert.Equal(t, domain.State(""), state)
	})

	t.Run("SaveState round trip", func(t *testing.T) {
		require.NoError(t, sm.SaveState(ctx, md, 2, 1, "clean"))

		item, err := sm.LastProcessedItem(ctx, md)
		require.NoError(t, err)
		pipe, err := sm.LastProcessorIndex(ctx, md)
		require.NoError(t, err)
		state, err := sm.State(ctx, md)
		require.NoError(t, err)

		assert.Equal(t, 2, item)
		assert.Equal(t, 1, pipe)
		assert.Equal(t, domain.State("clean"), state)
	})

	t.Run("Runs are isolated", func(t *testing.T) {
		other := map[string]any{domain.MetaRunID: fmt.Sprint(md[domain.MetaRunID], "-other")}
		item, err := sm.LastProcessedItem(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, 0, item)
	})

	t.Run("Chunk guard", func(t *testing.T) {
		done, err := sm.IsChunkProcessed(ctx, md, "cafebabe")
		require.NoError(t, err)
		assert.False(t, done)

		require.NoError(t, sm.SetChunkIsProcessed(ctx, md, "cafebabe"))
		require.NoError(t, sm.SetChunkIsProcessed(ctx, md, "cafebabe"))

		done, err = sm.IsChunkProcessed(ctx, md, "cafebabe")
		require.NoError(t, err)
		assert.True(t, done)

		require.NoError(t, sm.SaveState(ctx, md, 0, 0, "clean"))
		done, err = sm.IsChunkProcessed(ctx, md, "cafebabe")
		require.NoError(t, err)
		assert.True(t, done, "saving a position keeps processed chunks")
	})
}
