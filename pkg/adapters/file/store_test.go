package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/tessera/pkg/adapters/file"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunCheckpointStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_KeysWithSeparators(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := file.New(dir)

	require.NoError(t, store.Save(ctx, domain.NewCheckpoint("novels/book 1", 1, 0, "clean")))

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"novels/book 1"}, keys)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files are left behind")
	assert.Equal(t, "novels%2Fbook%201.json", entries[0].Name())
}

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	_, err := file.New(dir).Load(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCheckpointNotFound)
}

func TestFileLocker_Contention(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l1 := file.NewLocker(dir)
	l2 := file.NewLocker(dir)

	unlock, err := l1.Lock(ctx, "book", time.Minute)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = l2.Lock(waitCtx, "book", time.Minute)
	assert.Error(t, err, "second holder must wait while the first holds the lock")

	require.NoError(t, unlock(ctx))

	unlock2, err := l2.Lock(ctx, "book", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}
