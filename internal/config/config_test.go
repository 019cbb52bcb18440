package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/tessera/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "fail_fast", cfg.Run.Strategy)
	assert.Equal(t, time.Minute, cfg.RetryDelay())
	assert.Equal(t, 10_000, cfg.History.MaxTokens)
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "tessera.yaml", `
store:
  driver: Redis
  redis:
    addr: "127.0.0.1:6380"
    ttl: 24h
run:
  id: novel-42
  strategy: retry
  retry_delay: 30s
  wait: 2s
history:
  max_tokens: 4000
  sources: [context, glossary]
log:
  level: debug
  format: json
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "127.0.0.1:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.RedisTTL())
	assert.Equal(t, "tessera:checkpoint:", cfg.Store.Redis.Prefix, "unset fields keep their defaults")
	assert.Equal(t, "novel-42", cfg.Run.ID)
	assert.Equal(t, 30*time.Second, cfg.RetryDelay())
	assert.Equal(t, 2*time.Second, cfg.Wait())
	assert.Equal(t, []string{"context", "glossary"}, cfg.History.Sources)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_TOML(t *testing.T) {
	path := write(t, "tessera.toml", `
[store]
driver = "sqlite"
path = "checkpoints.db"

[run]
chunk_size = 5
schedule = "*/5 * * * *"
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Run.ChunkSize)
	assert.Equal(t, "*/5 * * * *", cfg.Run.Schedule)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown extension", "tessera.json", `{}`, "unsupported config format"},
		{"bad driver", "c.yaml", "store:\n  driver: mongo\n", "store.driver must be one of"},
		{"bad duration", "c.yaml", "run:\n  retry_delay: soon\n", "run.retry_delay"},
		{"bad cron", "c.toml", "[run]\nschedule = \"every day\"\n", "run.schedule"},
		{"bad source", "c.yaml", "history:\n  sources: [audio]\n", "unknown history source"},
		{"retry without delay", "c.yaml", "run:\n  strategy: retry\n  retry_delay: 0s\n", "must be positive"},
		{"summary tool without file", "c.yaml", "tools:\n  summarize: llm\n", "tools.file"},
		{"malformed", "c.toml", "[run\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(write(t, tt.file, tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tessera.toml")
	require.NoError(t, config.CreateSample(path))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 168*time.Hour, cfg.RedisTTL())
	assert.Len(t, cfg.History.Sources, 4)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, config.Discover(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tessera.yaml"), []byte("log:\n  level: debug\n"), 0o644))
	assert.Equal(t, filepath.Join(dir, "tessera.yaml"), config.Discover(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tessera.toml"), []byte(""), 0o644))
	assert.Equal(t, filepath.Join(dir, "tessera.toml"), config.Discover(dir), "toml wins")
}
