package checkpoint_test

import (
	"context"
	"testing"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/checkpoint"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Contract(t *testing.T) {
	ports.RunStateManagerContract(t, checkpoint.NewManager(memory.New()))
}

func TestManager_CheckpointAndReset(t *testing.T) {
	ctx := context.Background()
	m := checkpoint.NewManager(memory.New())
	md := map[string]any{domain.MetaRunID: "book", domain.MetaFlow: "translate"}

	_, err := m.Checkpoint(ctx, md)
	assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)

	require.NoError(t, m.SaveState(ctx, md, 5, 2, "glossary"))
	require.NoError(t, m.SetChunkIsProcessed(ctx, md, "abc"))

	cp, err := m.Checkpoint(ctx, md)
	require.NoError(t, err)
	assert.Equal(t, "translate.book", cp.RunKey)
	assert.Equal(t, 5, cp.Item)
	assert.Equal(t, []string{"abc"}, cp.Chunks)

	require.NoError(t, m.Reset(ctx, md))
	item, err := m.LastProcessedItem(ctx, md)
	require.NoError(t, err)
	assert.Equal(t, 0, item)
}
