package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/tessera/pkg/adapters/sqlite"
	"github.com/aretw0/tessera/pkg/checkpoint"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "tessera.db")
	store, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, _ := openStore(t)
	ports.RunCheckpointStoreContract(t, store)
}

func TestSQLiteStore_StateManagerContract(t *testing.T) {
	store, _ := openStore(t)
	ports.RunStateManagerContract(t, checkpoint.NewManager(store))
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	store, path := openStore(t)

	cp := domain.NewCheckpoint("book", 7, 2, "translate")
	cp.Chunks = []string{"b", "a"}
	require.NoError(t, store.Save(ctx, cp))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(ctx, path)
	require.NoError(t, err, "migrations are idempotent")
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "book")
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Item)
	assert.Equal(t, 2, loaded.Pipe)
	assert.Equal(t, []string{"b", "a"}, loaded.Chunks, "chunk order is preserved")
}
