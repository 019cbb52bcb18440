package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tessera/internal/config"
	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	op  string
	err error
}

type recordingObserver struct {
	seen []observation
}

func (o *recordingObserver) ObserveStore(op string, _ time.Duration, err error) {
	o.seen = append(o.seen, observation{op: op, err: err})
}

func roundTrip(t *testing.T, b *Backend) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, b.Store.Save(ctx, domain.NewCheckpoint("chapters.r1", 2, 1, "CLEAN")))

	cp, err := b.Store.Load(ctx, "chapters.r1")
	require.NoError(t, err)
	assert.Equal(t, 2, cp.Item)

	keys, err := b.Store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"chapters.r1"}, keys)
}

func TestOpenBackend_Drivers(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		name       string
		cfg        config.Store
		wantLocker bool
	}{
		{"memory", config.Store{Driver: config.DriverMemory}, false},
		{"file", config.Store{Driver: config.DriverFile, Path: filepath.Join(dir, "file")}, true},
		{"sqlite", config.Store{Driver: config.DriverSQLite, Path: filepath.Join(dir, "sqlite")}, true},
		{"redis", config.Store{Driver: config.DriverRedis, Redis: config.Redis{Addr: mr.Addr(), Prefix: "test:"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := OpenBackend(context.Background(), tt.cfg, BackendOptions{})
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, b.Close()) })

			assert.Equal(t, tt.wantLocker, b.Locker != nil)
			roundTrip(t, b)

			if tt.wantLocker {
				unlock, err := b.Locker.Lock(context.Background(), "chapters.r1", time.Second)
				require.NoError(t, err)
				require.NoError(t, unlock(context.Background()))
			}
		})
	}

	_, err := os.Stat(filepath.Join(dir, "sqlite", "checkpoints.db"))
	assert.NoError(t, err, "directory-like sqlite paths get a database file")
}

func TestOpenBackend_Decorates(t *testing.T) {
	obs := &recordingObserver{}
	b, err := OpenBackend(context.Background(), config.Store{Driver: config.DriverMemory}, BackendOptions{
		Logger:   logging.NewNop(),
		Observer: obs,
	})
	require.NoError(t, err)

	_, err = b.Store.Load(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrCheckpointNotFound)
	require.Len(t, obs.seen, 1)
	assert.Equal(t, "load", obs.seen[0].op)
	assert.NoError(t, obs.seen[0].err, "a missing checkpoint is not a store failure")
}

func TestOpenBackend_Errors(t *testing.T) {
	_, err := OpenBackend(context.Background(), config.Store{Driver: "etcd"}, BackendOptions{})
	assert.ErrorContains(t, err, `unsupported store driver "etcd"`)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = OpenBackend(context.Background(), config.Store{Driver: config.DriverRedis, Redis: config.Redis{Addr: addr}}, BackendOptions{})
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestSQLitePath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "checkpoints.db"), sqlitePath("data"))
	assert.Equal(t, "runs.sqlite", sqlitePath("runs.sqlite"))
}
