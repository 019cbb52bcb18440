package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/chapters"
	"github.com/aretw0/tessera/internal/config"
	httpadapter "github.com/aretw0/tessera/pkg/adapters/http"
	"github.com/aretw0/tessera/pkg/adapters/process"
	"github.com/aretw0/tessera/pkg/checkpoint"
	"github.com/aretw0/tessera/pkg/flow"
	"github.com/aretw0/tessera/pkg/history"
	"github.com/aretw0/tessera/pkg/observability"
	"github.com/aretw0/tessera/pkg/runlock"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Dir    string
	Config *config.Config
	Logger *slog.Logger
	Out    io.Writer
}

// Run processes the chapters of opts.Dir once, or on cfg.Run.Schedule until ctx is done.
// With cfg.Metrics.Addr set, the inspection API is served for the duration of the run.
func Run(ctx context.Context, opts RunOptions) error {
	cfg, logger := opts.Config, opts.Logger

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return err
	}

	backend, err := OpenBackend(ctx, cfg.Store, BackendOptions{
		Logger:   logger,
		Observer: metrics,
		RedisTTL: cfg.RedisTTL(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("Failed to close store", "err", err)
		}
	}()

	lockOpts := []runlock.Option{runlock.WithTTL(cfg.LockTTL()), runlock.WithLogger(logger)}
	if backend.Locker != nil {
		lockOpts = append(lockOpts, runlock.WithLocker(backend.Locker))
	}
	r := &chapterRun{
		dir:     opts.Dir,
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		locks:   runlock.NewManager(lockOpts...),
		metrics: metrics,
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	if cfg.Metrics.Addr != "" {
		handler := httpadapter.NewHandler(backend.Store,
			httpadapter.WithGatherer(reg),
			httpadapter.WithLogger(logger),
		)
		g.Go(func() error {
			return Serve(serveCtx, cfg.Metrics.Addr, handler, logger)
		})
	}
	g.Go(func() error {
		defer stopServing()
		if cfg.Run.Schedule == "" {
			return r.once(gctx)
		}
		return Schedule(gctx, cfg.Run.Schedule, r.once, logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if opts.Out != nil {
		return PrintStatus(ctx, opts.Out, backend.Store)
	}
	return nil
}

type chapterRun struct {
	dir     string
	cfg     *config.Config
	logger  *slog.Logger
	backend *Backend
	locks   *runlock.Manager
	metrics *observability.Metrics
}

// once loads the chapters and runs the flow, waiting out scheduled retries.
func (r *chapterRun) once(ctx context.Context) error {
	list, err := chapters.LoadDir(r.dir)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no chapters (*.txt) found in %s", r.dir)
	}

	sources, err := history.ParseSources(r.cfg.History.Sources)
	if err != nil {
		return err
	}
	opts := chapters.Options{
		Records:   chapters.NewRecords(r.cfg.Run.Output),
		Assembler: history.NewAssembler(r.counter(), history.WithLogger(r.logger)),
		MaxTokens: r.cfg.History.MaxTokens,
		Sources:   sources,
		Wait:      r.cfg.Wait(),
	}
	if name := r.cfg.Tools.Summarize; name != "" {
		tools, err := r.tools()
		if err != nil {
			return err
		}
		opts.Summarizer, opts.SummaryTool = tools, name
	}
	builder := chapters.NewFlow(list, opts)

	var engine *tessera.Engine[chapters.Chapter]
	var retry *flow.RetryAfterDelay[chapters.Chapter]
	var strategy flow.ErrorStrategy[chapters.Chapter]
	switch r.cfg.Run.Strategy {
	case config.StrategyIgnore:
		strategy = flow.NewIgnoreErrors[chapters.Chapter](r.logger)
	case config.StrategyRetry:
		retry = flow.NewRetryAfterDelay[chapters.Chapter](r.cfg.RetryDelay(), func(ctx context.Context) error {
			return engine.Run(ctx)
		}, r.logger)
		strategy = retry
	default:
		strategy = flow.NewFailFast[chapters.Chapter](r.logger)
	}

	f, err := builder.
		RunID(r.cfg.Run.ID).
		StateManager(checkpoint.NewManager(r.backend.Store, checkpoint.WithLogger(r.logger))).
		ErrorStrategy(strategy).
		Build()
	if err != nil {
		return err
	}

	engine, err = tessera.New(f,
		tessera.WithChunkSize(r.cfg.Run.ChunkSize),
		tessera.WithRunLock(r.locks),
		tessera.WithLogger(r.logger),
		tessera.WithLifecycleHooks(r.metrics.Hooks()),
		tessera.WithLifecycleHooks(observability.LoggingHooks(r.logger)),
	)
	if err != nil {
		return err
	}

	err = engine.Run(ctx)
	if retry == nil {
		return err
	}
	defer retry.Close()
	// A failed retry schedules the next one; follow the chain until it settles.
	for err != nil && len(retry.Pending()) > 0 {
		r.logger.Info("Waiting for scheduled retry", "delay", r.cfg.RetryDelay())
		err = retry.Wait(ctx)
		if errors.Is(err, context.Canceled) {
			return err
		}
	}
	return err
}

// tools loads the allow-listed commands; tools run from the directory of the tools file.
func (r *chapterRun) tools() (*process.Runner, error) {
	file := r.cfg.Tools.File
	defs, err := process.LoadTools(file)
	if err != nil {
		return nil, err
	}
	runner := process.NewRunner(
		process.WithTools(defs),
		process.WithBaseDir(filepath.Dir(file)),
		process.WithLogger(r.logger),
	)
	if !runner.Has(r.cfg.Tools.Summarize) {
		return nil, fmt.Errorf("tool %q is not defined in %s", r.cfg.Tools.Summarize, file)
	}
	return runner, nil
}

// counter returns the tokenizer for the configured encoding, or the naive estimate.
func (r *chapterRun) counter() history.Counter {
	c, err := history.NewTiktokenCounter(r.cfg.History.Encoding)
	if err != nil {
		r.logger.Warn("Tokenizer unavailable, estimating tokens", "encoding", r.cfg.History.Encoding, "err", err)
		return history.NaiveCounter{}
	}
	return c
}
