package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aretw0/tessera/internal/chapters"
	"github.com/aretw0/tessera/internal/config"
	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/internal/testutils"
	"github.com/aretw0/tessera/pkg/adapters/file"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chapterDir(t *testing.T) string {
	t.Helper()
	return testutils.WriteFiles(t, map[string]string{
		"01.txt": "Arrival\nAna met Bruno at the gate. Later Ana saw Bruno again.",
		"02.txt": "Storm\nBruno packed. Then Ana and Bruno left. Ana waved.",
		"03.txt": "Return\nAna came back alone. Bruno wrote to Ana.",
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(root, "checkpoints")
	cfg.Run.Output = filepath.Join(root, "output")
	cfg.Run.ChunkSize = 2
	// Offline: no BPE download in tests.
	cfg.History.Encoding = "missing-encoding"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRun_ProcessesEveryChapter(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	err := Run(context.Background(), RunOptions{
		Dir:    chapterDir(t),
		Config: cfg,
		Logger: logging.NewNop(),
		Out:    &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "chapters.default")

	records := chapters.NewRecords(cfg.Run.Output)
	for n := 1; n <= 3; n++ {
		rec, err := records.Load(n)
		require.NoError(t, err)
		assert.NotEmpty(t, rec.Text, "chapter %d", n)
		assert.NotEmpty(t, rec.Summary, "chapter %d", n)
		assert.NotEmpty(t, rec.Prompt, "chapter %d", n)
	}

	cp, err := file.New(cfg.Store.Path).Load(context.Background(), "chapters.default")
	require.NoError(t, err)
	assert.Len(t, cp.Chunks, 2)
	assert.Equal(t, domain.State(chapters.StateClean), cp.State)
}

func TestRun_RerunSkipsCompletedChunks(t *testing.T) {
	cfg := testConfig(t)
	dir := chapterDir(t)
	opts := RunOptions{Dir: dir, Config: cfg, Logger: logging.NewNop()}
	require.NoError(t, Run(context.Background(), opts))

	// Records are rewritten only by processed chunks.
	path := filepath.Join(cfg.Run.Output, "0001.json")
	require.NoError(t, os.Remove(path))
	require.NoError(t, Run(context.Background(), opts))
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_EmptyDirectory(t *testing.T) {
	err := Run(context.Background(), RunOptions{Dir: t.TempDir(), Config: testConfig(t), Logger: logging.NewNop()})
	assert.ErrorContains(t, err, "no chapters")
}

func TestRun_FailFastKeepsPosition(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.ChunkSize = 0
	dir := chapterDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02.txt"), []byte("  \n\n "), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "04.txt"), []byte("Epilogue\nThe end came."), 0o644))

	// A blank chapter is a non-fatal flow error: fail fast continues past it.
	require.NoError(t, Run(context.Background(), RunOptions{Dir: dir, Config: cfg, Logger: logging.NewNop()}))

	cp, err := file.New(cfg.Store.Path).Load(context.Background(), "chapters.default")
	require.NoError(t, err)
	assert.Equal(t, domain.State(chapters.StatePrompt), cp.State)
	assert.Equal(t, 4, cp.Item)
}

func TestRun_ExternalSummarizer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	cfg := testConfig(t)
	tools := filepath.Join(t.TempDir(), "tools.yaml")
	require.NoError(t, os.WriteFile(tools, []byte(`
tools:
  - name: shout
    command: sh
    args: ["-c", "printf 'chapter %s' \"$TESSERA_ARG_CHAPTER\""]
`), 0o644))
	cfg.Tools = config.Tools{File: tools, Summarize: "shout"}

	require.NoError(t, Run(context.Background(), RunOptions{Dir: chapterDir(t), Config: cfg, Logger: logging.NewNop()}))

	rec, err := chapters.NewRecords(cfg.Run.Output).Load(2)
	require.NoError(t, err)
	assert.Equal(t, "chapter 2", rec.Summary)
}

func TestRun_UnknownSummaryTool(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools = config.Tools{File: filepath.Join(t.TempDir(), "tools.yaml"), Summarize: "missing"}

	err := Run(context.Background(), RunOptions{Dir: chapterDir(t), Config: cfg, Logger: logging.NewNop()})
	assert.ErrorContains(t, err, `tool "missing" is not defined`)
}
