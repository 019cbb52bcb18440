package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tessera version ")
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tessera.toml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	_, err = execute(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestRunAndResetCommands(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.txt"), []byte("Dawn\nAna met Bruno. Ana left Bruno."), 0o644))
	output := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "run", dir, "--store", "memory", "--output", output, "--run-id", "cli", "--chunk-size", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "chapters.cli")
	assert.FileExists(t, filepath.Join(output, "0001.json"))

	out, err = execute(t, "reset", "cli", "--store", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "Run chapters.cli reset")
}

func TestInvalidOverride(t *testing.T) {
	_, err := execute(t, "status", "--store", "etcd")
	assert.ErrorContains(t, err, "store.driver")
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "GLOSSARY --> PROMPT")
	assert.NotContains(t, out, "classDef")

	out, err = execute(t, "graph", "unknown", "--store", "memory")
	require.NoError(t, err)
	assert.NotContains(t, out, "classDef")
}
