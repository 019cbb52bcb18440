package config

import "github.com/aretw0/tessera/pkg/history"

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: Store{
			Driver: DriverFile,
			Path:   ".tessera/checkpoints",
			Redis: Redis{
				Addr:   "localhost:6379",
				Prefix: "tessera:checkpoint:",
			},
		},
		Run: Run{
			ID:         "default",
			ChunkSize:  10,
			Strategy:   StrategyFailFast,
			RetryDelay: "1m",
			LockTTL:    "30s",
			Output:     ".tessera/output",
		},
		History: History{
			MaxTokens: history.DefaultBudget,
			Encoding:  history.DefaultEncoding,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}
