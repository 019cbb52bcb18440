package runner_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// recorder collects an ordered log of what the runner did.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// recordingPipe logs "<name> <item>" and fails when fail returns true.
func recordingPipe(rec *recorder, name string, fail func(item string) bool) flow.Pipe[string] {
	return func(_ context.Context, fc flow.Context[string]) (flow.Context[string], error) {
		rec.add("%s %s", name, fc.Item())
		if fail != nil && fail(fc.Item()) {
			return fc, errBoom
		}
		return fc, nil
	}
}

func recordingSink(rec *recorder) func(context.Context, flow.Context[string]) error {
	return func(_ context.Context, fc flow.Context[string]) error {
		rec.add("sink %s", fc.Item())
		return nil
	}
}

type position struct {
	Item  int
	Pipe  int
	State domain.State
}

func positionOf(t *testing.T, sm ports.StateManager, metadata map[string]any) position {
	t.Helper()
	ctx := context.Background()
	item, err := sm.LastProcessedItem(ctx, metadata)
	require.NoError(t, err)
	pipe, err := sm.LastProcessorIndex(ctx, metadata)
	require.NoError(t, err)
	state, err := sm.State(ctx, metadata)
	require.NoError(t, err)
	return position{Item: item, Pipe: pipe, State: state}
}

func runMetadata(id string) map[string]any {
	return map[string]any{domain.MetaRunID: id}
}

func checkpointRecorder(rec *recorder) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCheckpoint: func(_ context.Context, e *domain.CheckpointEvent) {
			rec.add("checkpoint %s %d/%d", e.State, e.Item, e.Pipe)
		},
	}
}
