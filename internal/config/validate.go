package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aretw0/tessera/pkg/history"
	"github.com/robfig/cron/v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Error strategies.
const (
	StrategyFailFast = "fail_fast"
	StrategyIgnore   = "ignore"
	StrategyRetry    = "retry"
)

var (
	drivers    = []string{DriverMemory, DriverFile, DriverRedis, DriverSQLite}
	strategies = []string{StrategyFailFast, StrategyIgnore, StrategyRetry}
	levels     = []string{"debug", "info", "warn", "error"}
	formats    = []string{"text", "json"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	check(oneOf("store.driver", c.Store.Driver, drivers))
	if (c.Store.Driver == DriverFile || c.Store.Driver == DriverSQLite) && c.Store.Path == "" {
		check(fmt.Errorf("store.path must be set for the %s driver", c.Store.Driver))
	}
	if c.Store.Driver == DriverRedis && c.Store.Redis.Addr == "" {
		check(errors.New("store.redis.addr must be set for the redis driver"))
	}
	check(duration("store.redis.ttl", c.Store.Redis.TTL))

	if c.Run.ChunkSize < 0 {
		check(errors.New("run.chunk_size must not be negative"))
	}
	check(oneOf("run.strategy", c.Run.Strategy, strategies))
	check(duration("run.retry_delay", c.Run.RetryDelay))
	check(duration("run.wait", c.Run.Wait))
	check(duration("run.lock_ttl", c.Run.LockTTL))
	if c.Run.Strategy == StrategyRetry && c.RetryDelay() <= 0 {
		check(errors.New("run.retry_delay must be positive for the retry strategy"))
	}
	if c.Run.Schedule != "" {
		if _, err := cron.ParseStandard(c.Run.Schedule); err != nil {
			check(fmt.Errorf("run.schedule: %w", err))
		}
	}

	if c.History.MaxTokens < 0 {
		check(errors.New("history.max_tokens must not be negative"))
	}
	if _, err := history.ParseSources(c.History.Sources); err != nil {
		check(fmt.Errorf("history.sources: %w", err))
	}

	if c.Tools.Summarize != "" && c.Tools.File == "" {
		check(errors.New("tools.file must be set when tools.summarize is"))
	}

	check(oneOf("log.level", c.Log.Level, levels))
	check(oneOf("log.format", c.Log.Format, formats))

	return errors.Join(errs...)
}

func oneOf(field, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of %v, got %q", field, allowed, value)
}

func duration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative", field)
	}
	return nil
}
