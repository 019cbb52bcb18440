package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/tessera/internal/config"
	"github.com/aretw0/tessera/pkg/adapters/file"
	"github.com/aretw0/tessera/pkg/adapters/memory"
	redisstore "github.com/aretw0/tessera/pkg/adapters/redis"
	"github.com/aretw0/tessera/pkg/adapters/sqlite"
	"github.com/aretw0/tessera/pkg/persistence/middleware"
	"github.com/aretw0/tessera/pkg/ports"
)

// Backend is an opened checkpoint store and the locker guarding its runs.
// Locker is nil for the memory driver.
type Backend struct {
	Store  ports.CheckpointStore
	Locker ports.Locker

	closers []func() error
}

// BackendOptions decorates the opened store.
type BackendOptions struct {
	Logger   *slog.Logger
	Observer middleware.StoreObserver
	RedisTTL time.Duration
}

// OpenBackend opens the store selected by cfg.Driver.
func OpenBackend(ctx context.Context, cfg config.Store, opts BackendOptions) (*Backend, error) {
	b := &Backend{}
	var store ports.CheckpointStore

	switch cfg.Driver {
	case config.DriverMemory:
		store = memory.New()
	case config.DriverFile:
		store = file.New(cfg.Path)
		b.Locker = file.NewLocker(filepath.Join(cfg.Path, "locks"))
	case config.DriverSQLite:
		path := sqlitePath(cfg.Path)
		s, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		store = s
		b.Locker = file.NewLocker(filepath.Join(filepath.Dir(path), "locks"))
		b.closers = append(b.closers, s.Close)
	case config.DriverRedis:
		s := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithTTL(opts.RedisTTL),
		)
		if err := s.Client().Ping(ctx).Err(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		store = s
		b.Locker = redisstore.NewLocker(s.Client(), cfg.Redis.Prefix)
		b.closers = append(b.closers, s.Close)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	var mws []middleware.Middleware
	if opts.Logger != nil {
		mws = append(mws, middleware.NewLoggingMiddleware(opts.Logger))
	}
	if opts.Observer != nil {
		mws = append(mws, middleware.NewMetricsMiddleware(opts.Observer))
	}
	b.Store = middleware.Chain(store, mws...)
	return b, nil
}

// sqlitePath turns a directory-like path into a database file inside it.
func sqlitePath(path string) string {
	if filepath.Ext(path) == "" {
		return filepath.Join(path, "checkpoints.db")
	}
	return path
}

// Close releases the backend connections.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
