package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Store selects and configures the checkpoint store.
type Store struct {
	// Driver is one of memory, file, redis or sqlite.
	Driver string `yaml:"driver" toml:"driver"`
	// Path is the checkpoint directory (file) or database file (sqlite).
	Path  string `yaml:"path" toml:"path"`
	Redis Redis  `yaml:"redis" toml:"redis"`
}

// Redis configures the redis store and lock.
type Redis struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
	TTL      string `yaml:"ttl" toml:"ttl"`
}

// Run configures how a flow is executed.
type Run struct {
	ID        string `yaml:"id" toml:"id"`
	ChunkSize int    `yaml:"chunk_size" toml:"chunk_size"`
	// Strategy is one of fail_fast, ignore or retry.
	Strategy   string `yaml:"strategy" toml:"strategy"`
	RetryDelay string `yaml:"retry_delay" toml:"retry_delay"`
	// Wait paces consecutive LLM-bound pipes.
	Wait    string `yaml:"wait" toml:"wait"`
	LockTTL string `yaml:"lock_ttl" toml:"lock_ttl"`
	// Schedule is a cron expression; when set the run is resumed periodically.
	Schedule string `yaml:"schedule" toml:"schedule"`
	Output   string `yaml:"output" toml:"output"`
}

// History configures prompt assembly.
type History struct {
	MaxTokens int      `yaml:"max_tokens" toml:"max_tokens"`
	Encoding  string   `yaml:"encoding" toml:"encoding"`
	Sources   []string `yaml:"sources" toml:"sources"`
}

// Tools configures external commands.
type Tools struct {
	// File is a YAML or JSON tools file.
	File string `yaml:"file" toml:"file"`
	// Summarize names the tool that replaces the built-in summary.
	Summarize string `yaml:"summarize" toml:"summarize"`
}

// Log configures log output.
type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Metrics configures the metrics endpoint.
type Metrics struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `yaml:"addr" toml:"addr"`
}

// Config is the CLI configuration.
type Config struct {
	Store   Store   `yaml:"store" toml:"store"`
	Run     Run     `yaml:"run" toml:"run"`
	History History `yaml:"history" toml:"history"`
	Tools   Tools   `yaml:"tools" toml:"tools"`
	Log     Log     `yaml:"log" toml:"log"`
	Metrics Metrics `yaml:"metrics" toml:"metrics"`
}

// Load reads path over the defaults and validates the result.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		return toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", ext)
	}
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Run.Strategy = strings.ToLower(strings.TrimSpace(c.Run.Strategy))
	c.Run.ID = strings.TrimSpace(c.Run.ID)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// RetryDelay returns the parsed run.retry_delay.
func (c *Config) RetryDelay() time.Duration {
	return mustDuration(c.Run.RetryDelay)
}

// Wait returns the parsed run.wait.
func (c *Config) Wait() time.Duration {
	return mustDuration(c.Run.Wait)
}

// LockTTL returns the parsed run.lock_ttl.
func (c *Config) LockTTL() time.Duration {
	return mustDuration(c.Run.LockTTL)
}

// RedisTTL returns the parsed store.redis.ttl.
func (c *Config) RedisTTL() time.Duration {
	return mustDuration(c.Store.Redis.TTL)
}

// mustDuration parses a duration already checked by Validate; invalid values read as zero.
func mustDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// Candidates are the file names Discover looks for, in order.
var Candidates = []string{"tessera.toml", "tessera.yaml", "tessera.yml"}

// Discover returns the first candidate config file present in dir, or "".
func Discover(dir string) string {
	for _, name := range Candidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
