package flow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream unavailable")

func TestFailFast(t *testing.T) {
	s := flow.NewFailFast[string](nil)
	fc := newContext()
	ctx := context.Background()

	err := s.HandleError(ctx, fc, errUpstream)
	assert.ErrorIs(t, err, errUpstream)
	assert.ErrorContains(t, err, "fail fast strategy triggered")

	assert.NoError(t, s.HandleError(ctx, fc, domain.NewFlowError("empty chapter", nil)))
	assert.Error(t, s.HandleError(ctx, fc, domain.NewFatalFlowError("quota", nil)))
	assert.Error(t, s.HandleError(ctx, fc, domain.NewFlowError("", errUpstream)), "a flow error without reason is fatal")
}

func TestIgnoreErrors(t *testing.T) {
	s := flow.NewIgnoreErrors[string](nil)
	assert.NoError(t, s.HandleError(context.Background(), newContext(), errUpstream))
}

func TestErrorStrategyFunc(t *testing.T) {
	var got error
	s := flow.ErrorStrategyFunc[string](func(_ context.Context, _ flow.Context[string], err error) error {
		got = err
		return nil
	})
	require.NoError(t, s.HandleError(context.Background(), newContext(), errUpstream))
	assert.Equal(t, errUpstream, got)
}

func TestRetryAfterDelay_RunsRetry(t *testing.T) {
	var calls atomic.Int32
	s := flow.NewRetryAfterDelay[string](5*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	err := s.HandleError(context.Background(), newContext(), errUpstream)
	assert.ErrorIs(t, err, errUpstream)
	assert.ErrorContains(t, err, "retry scheduled in 5ms")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, s.Pending())
}

func TestRetryAfterDelay_SurvivesCallerCancellation(t *testing.T) {
	var calls atomic.Int32
	s := flow.NewRetryAfterDelay[string](5*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	runCtx, cancelRun := context.WithCancel(context.Background())
	task := s.Schedule(runCtx)
	cancelRun()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, task.Wait(ctx))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryAfterDelay_Close(t *testing.T) {
	var calls atomic.Int32
	s := flow.NewRetryAfterDelay[string](time.Hour, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	task := s.Schedule(context.Background())
	require.Len(t, s.Pending(), 1)
	assert.NoError(t, task.Err(), "no outcome before the task finished")

	s.Close()
	<-task.Done()
	assert.ErrorIs(t, task.Err(), flow.ErrRetryCanceled)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRetryAfterDelay_WaitReportsRetryFailure(t *testing.T) {
	s := flow.NewRetryAfterDelay[string](time.Millisecond, func(context.Context) error {
		return errUpstream
	}, nil)
	task := s.Schedule(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, task.Wait(ctx), errUpstream)
}
