package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}

// Schedule runs job on a standard cron spec until ctx is done.
// A run still in progress when the next one is due causes that one to be skipped.
func Schedule(ctx context.Context, spec string, job func(context.Context) error, logger *slog.Logger) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(sched, cron.FuncJob(func() {
		if err := job(ctx); err != nil {
			logger.Error("Scheduled run failed", "err", err)
			return
		}
		logger.Info("Scheduled run finished", "next", sched.Next(time.Now()))
	}))

	c.Start()
	logger.Info("Schedule started", "spec", spec, "next", sched.Next(time.Now()))
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Schedule stopped")
	return nil
}
