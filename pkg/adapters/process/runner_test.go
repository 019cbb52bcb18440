package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func TestRunner_Run(t *testing.T) {
	requireShell(t)

	r := NewRunner()
	r.Register("upper", "tr", "a-z", "A-Z")
	r.Register("echo_env", "sh", "-c", `printf '%s|%s' "$TESSERA_ARG_CHAPTER" "$TESSERA_ARG_TAGS"`)
	r.Register("crashy", "sh", "-c", "echo boom >&2; exit 3")

	t.Run("Pipes Input Through Stdin", func(t *testing.T) {
		out, err := r.Run(context.Background(), "upper", "hello world\n", nil)
		require.NoError(t, err)
		assert.Equal(t, "HELLO WORLD", out)
	})

	t.Run("Passes Arguments via Env Vars", func(t *testing.T) {
		out, err := r.Run(context.Background(), "echo_env", "", map[string]any{
			"chapter": 3,
			"tags":    []string{"a", "b"},
		})
		require.NoError(t, err)
		assert.Equal(t, `3|["a","b"]`, out)
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := r.Run(context.Background(), "hacker_script", "", nil)
		assert.ErrorIs(t, err, ErrNotRegistered)
	})

	t.Run("Reports Exit Status And Stderr", func(t *testing.T) {
		_, err := r.Run(context.Background(), "crashy", "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exit status 3")
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestRunner_CancelInterruptsCommand(t *testing.T) {
	requireShell(t)

	r := NewRunner(WithGracePeriod(time.Second))
	r.Register("sleepy", "sleep", "30")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, "sleepy", "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunner_BaseDir(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("here"), 0o644))

	r := NewRunner(WithBaseDir(dir), WithTools(map[string]Tool{
		"cat": {Command: "cat", Args: []string{"marker.txt"}},
	}))
	assert.True(t, r.Has("cat"))

	out, err := r.Run(context.Background(), "cat", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "here", out)
}

func TestLoadTools(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing File", func(t *testing.T) {
		tools, err := LoadTools(filepath.Join(dir, "none.yaml"))
		require.NoError(t, err)
		assert.Empty(t, tools)
	})

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(dir, "tools.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
tools:
  - name: summarize
    command: python3
    args: ["summarize.py"]
    env:
      MODEL: small
  - name: ""
    command: ignored
`), 0o644))

		tools, err := LoadTools(path)
		require.NoError(t, err)
		require.Len(t, tools, 1)
		assert.Equal(t, []string{"summarize.py"}, tools["summarize"].Args)
		assert.Equal(t, "small", tools["summarize"].Env["MODEL"])
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "tools.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"tools":[{"name":"wc","command":"wc"}]}`), 0o644))

		tools, err := LoadTools(path)
		require.NoError(t, err)
		assert.Contains(t, tools, "wc")
	})

	t.Run("Invalid", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tools: [\n"), 0o644))

		_, err := LoadTools(path)
		assert.ErrorContains(t, err, "bad.yaml")
	})
}
