package runner_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/checkpoint"
	"github.com/aretw0/tessera/pkg/flow"
	"github.com/aretw0/tessera/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStateFlow(t *testing.T, rec *recorder, sm *checkpoint.Manager, failing *string) *flow.Flow[string] {
	t.Helper()
	f, err := flow.New(items).
		RunID("phases").
		StateManager(sm).
		State("EXTRACT").
		Pipe(recordingPipe(rec, "extract", nil)).
		State("TRANSLATE").
		Pipe(recordingPipe(rec, "translate", func(item string) bool { return item == *failing })).
		Build()
	require.NoError(t, err)
	return f
}

func TestRecursiveRunner_RunsStatesInOrder(t *testing.T) {
	rec := &recorder{}
	sm := checkpoint.NewManager(memory.New())
	failing := ""

	require.NoError(t, runner.NewRecursive(twoStateFlow(t, rec, sm, &failing)).Resume(context.Background()))
	assert.Equal(t, []string{
		"extract item1", "extract item2", "extract item3",
		"translate item1", "translate item2", "translate item3",
	}, rec.take())
	assert.Equal(t, position{Item: 3, Pipe: 0, State: "TRANSLATE"}, positionOf(t, sm, runMetadata("phases")))
}

func TestRecursiveRunner_ResumesInStoredState(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	sm := checkpoint.NewManager(memory.New())
	failing := "item2"
	f := twoStateFlow(t, rec, sm, &failing)

	err := runner.NewRecursive(f).Resume(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, `state "TRANSLATE"`)
	assert.Equal(t, position{Item: 1, Pipe: 0, State: "TRANSLATE"}, positionOf(t, sm, runMetadata("phases")))
	rec.take()

	failing = ""
	require.NoError(t, runner.NewRecursive(f).Resume(ctx))
	assert.Equal(t, []string{"translate item2", "translate item3"}, rec.take())
}

func TestRecursiveRunner_RunFromUnknownState(t *testing.T) {
	failing := ""
	f := twoStateFlow(t, &recorder{}, checkpoint.NewManager(memory.New()), &failing)
	err := runner.NewRecursive(f).Run(context.Background(), "PUBLISH")
	assert.ErrorContains(t, err, "unknown state")
}

func TestRecursiveRunner_Measure(t *testing.T) {
	failing := ""
	f := twoStateFlow(t, &recorder{}, checkpoint.NewManager(memory.New()), &failing)

	calls := 0
	measure := func(ctx context.Context, run func(context.Context) error) error {
		calls++
		return run(ctx)
	}
	require.NoError(t, runner.NewRecursive(f, runner.WithMeasure(measure)).Resume(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestRecursiveRunner_RetryAfterDelayResumes(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	sm := checkpoint.NewManager(memory.New())
	var attempts atomic.Int32

	var rr *runner.RecursiveRunner[string]
	strategy := flow.NewRetryAfterDelay[string](10*time.Millisecond, func(ctx context.Context) error {
		return rr.Resume(ctx)
	}, nil)

	f, err := flow.New(items).
		RunID("retry").
		StateManager(sm).
		ErrorStrategy(strategy).
		State("STEP1").
		Pipe(func(_ context.Context, fc flow.Context[string]) (flow.Context[string], error) {
			if fc.Item() == "item2" && attempts.Add(1) == 1 {
				return fc, errBoom
			}
			rec.add("P1 %s", fc.Item())
			return fc, nil
		}).
		Build()
	require.NoError(t, err)
	rr = runner.NewRecursive(f)

	err = rr.Resume(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "retry scheduled in 10ms")
	assert.ErrorIs(t, err, errBoom)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, strategy.Wait(waitCtx))

	assert.Equal(t, []string{"P1 item1", "P1 item2", "P1 item3"}, rec.take())
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, position{Item: 3, Pipe: 0, State: "STEP1"}, positionOf(t, sm, runMetadata("retry")))
}
