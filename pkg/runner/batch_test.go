package runner_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/checkpoint"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
	"github.com/aretw0/tessera/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chapter struct {
	Number int
	Title  string
}

func (c chapter) HashValues() []string {
	return []string{c.Title}
}

func TestChunks(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, runner.Chunks([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1}, {2}}, runner.Chunks([]int{1, 2}, 0))
	assert.Empty(t, runner.Chunks([]int{}, 3))
}

func TestHashChunk(t *testing.T) {
	h1, err := runner.HashChunk([]string{"a", "b"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), h1)

	h2, err := runner.HashChunk([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "hash depends on content only")

	h3, err := runner.HashChunk([]string{"b", "a"})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	// HashValues decides what is hashed.
	a, err := runner.HashChunk([]chapter{{Number: 1, Title: "Prologue"}})
	require.NoError(t, err)
	b, err := runner.HashChunk([]chapter{{Number: 7, Title: "Prologue"}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func batchFlow(t *testing.T, source []string, rec *recorder, sm *checkpoint.Manager, failing *string) *flow.Flow[string] {
	t.Helper()
	f, err := flow.New(source).
		RunID("batch").
		StateManager(sm).
		Sink(func(_ context.Context, fc flow.Context[string]) error {
			hash, _ := fc.Meta(domain.MetaChunkHash)
			assert.NotEmpty(t, hash)
			return nil
		}).
		State("STEP1").
		Pipe(recordingPipe(rec, "P1", func(item string) bool { return item == *failing })).
		Build()
	require.NoError(t, err)
	return f
}

func TestBatchRunner_SkipsProcessedChunks(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	sm := checkpoint.NewManager(memory.New())
	failing := ""
	f := batchFlow(t, []string{"a", "b", "c", "d", "e"}, rec, sm, &failing)

	require.NoError(t, runner.NewBatch(f, 2).Run(ctx))
	assert.Equal(t, []string{"P1 a", "P1 b", "P1 c", "P1 d", "P1 e"}, rec.take())

	cp, err := sm.Checkpoint(ctx, runMetadata("batch"))
	require.NoError(t, err)
	assert.Len(t, cp.Chunks, 3)
	assert.Equal(t, 0, cp.Item)
	assert.Equal(t, domain.State("STEP1"), cp.State)

	require.NoError(t, runner.NewBatch(f, 2).Run(ctx))
	assert.Empty(t, rec.take(), "a rerun over the same content does nothing")
}

func TestBatchRunner_ResumesInsideFailedChunk(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	sm := checkpoint.NewManager(memory.New())
	failing := "d"
	f := batchFlow(t, []string{"a", "b", "c", "d", "e"}, rec, sm, &failing)

	err := runner.NewBatch(f, 2).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"P1 a", "P1 b", "P1 c", "P1 d"}, rec.take())

	failing = ""
	require.NoError(t, runner.NewBatch(f, 2).Run(ctx))
	assert.Equal(t, []string{"P1 d", "P1 e"}, rec.take())
}

func TestBatchRunner_NewContentIsProcessed(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	sm := checkpoint.NewManager(memory.New())
	failing := ""

	require.NoError(t, runner.NewBatch(batchFlow(t, []string{"a", "b"}, rec, sm, &failing), 2).Run(ctx))
	rec.take()

	require.NoError(t, runner.NewBatch(batchFlow(t, []string{"a", "b", "c"}, rec, sm, &failing), 2).Run(ctx))
	assert.Equal(t, []string{"P1 c"}, rec.take())
}
