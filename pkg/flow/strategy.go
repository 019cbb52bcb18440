package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
)

// ErrorStrategy decides what happens after a pipe fails.
// Returning nil swallows err and the runner moves on to the next item;
// returning an error aborts the run.
type ErrorStrategy[T any] interface {
	HandleError(ctx context.Context, fc Context[T], err error) error
}

// ErrorStrategyFunc adapts a function to ErrorStrategy.
type ErrorStrategyFunc[T any] func(ctx context.Context, fc Context[T], err error) error

func (f ErrorStrategyFunc[T]) HandleError(ctx context.Context, fc Context[T], err error) error {
	return f(ctx, fc, err)
}

// FailFast aborts the run unless the failure is a non-fatal domain error.
type FailFast[T any] struct {
	logger *slog.Logger
}

// NewFailFast creates the default strategy. A nil logger discards output.
func NewFailFast[T any](logger *slog.Logger) *FailFast[T] {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FailFast[T]{logger: logger}
}

func (s *FailFast[T]) HandleError(ctx context.Context, fc Context[T], err error) error {
	if domain.IsNonFatal(err) {
		s.logger.WarnContext(ctx, "Non-fatal flow error, continuing",
			"state", fc.State(),
			"pipe", fc.PipeIndex(),
			"err", err,
		)
		return nil
	}
	return fmt.Errorf("fail fast strategy triggered: %w", err)
}

// IgnoreErrors logs every failure and continues.
type IgnoreErrors[T any] struct {
	logger *slog.Logger
}

func NewIgnoreErrors[T any](logger *slog.Logger) *IgnoreErrors[T] {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &IgnoreErrors[T]{logger: logger}
}

func (s *IgnoreErrors[T]) HandleError(ctx context.Context, fc Context[T], err error) error {
	s.logger.WarnContext(ctx, "Ignoring flow error",
		"state", fc.State(),
		"pipe", fc.PipeIndex(),
		"err", err,
	)
	return nil
}

// ErrRetryCanceled is the outcome of a retry task canceled before it ran.
var ErrRetryCanceled = errors.New("retry canceled")

// RetryTask is a scheduled, cancellable retry whose outcome can be awaited.
type RetryTask struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	When   time.Time
}

// Done is closed once the retry ran or was canceled.
func (t *RetryTask) Done() <-chan struct{} {
	return t.done
}

// Err returns the retry outcome. It is only meaningful after Done is closed.
func (t *RetryTask) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Cancel stops the retry if it has not started yet, and cancels its context otherwise.
func (t *RetryTask) Cancel() {
	t.cancel()
}

// Wait blocks until the retry finished or ctx is done.
func (t *RetryTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryAfterDelay schedules retry after a fixed delay and still fails the current run,
// so the checkpoint reflects only committed work.
type RetryAfterDelay[T any] struct {
	delay  time.Duration
	retry  func(context.Context) error
	logger *slog.Logger

	mu    sync.Mutex
	tasks map[*RetryTask]struct{}
}

// NewRetryAfterDelay creates the strategy. retry usually resumes the same run.
func NewRetryAfterDelay[T any](delay time.Duration, retry func(context.Context) error, logger *slog.Logger) *RetryAfterDelay[T] {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RetryAfterDelay[T]{
		delay:  delay,
		retry:  retry,
		logger: logger,
		tasks:  make(map[*RetryTask]struct{}),
	}
}

func (s *RetryAfterDelay[T]) HandleError(ctx context.Context, fc Context[T], err error) error {
	task := s.Schedule(ctx)
	s.logger.WarnContext(ctx, "Flow error, retry scheduled",
		"state", fc.State(),
		"pipe", fc.PipeIndex(),
		"retry_at", task.When,
		"err", err,
	)
	return fmt.Errorf("retry scheduled in %s: %w", s.delay, err)
}

// Schedule starts a retry task. The task keeps ctx values but not its cancellation.
func (s *RetryAfterDelay[T]) Schedule(ctx context.Context) *RetryTask {
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	task := &RetryTask{
		cancel: cancel,
		done:   make(chan struct{}),
		When:   time.Now().Add(s.delay),
	}

	s.mu.Lock()
	s.tasks[task] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.tasks, task)
			s.mu.Unlock()
			close(task.done)
		}()

		timer := time.NewTimer(s.delay)
		defer timer.Stop()

		select {
		case <-taskCtx.Done():
			task.err = ErrRetryCanceled
			return
		case <-timer.C:
		}

		task.err = s.retry(taskCtx)
		if task.err != nil {
			s.logger.Warn("Scheduled retry failed", "err", task.err)
		}
	}()

	return task
}

// Pending returns the tasks that have not finished yet.
func (s *RetryAfterDelay[T]) Pending() []*RetryTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*RetryTask, 0, len(s.tasks))
	for t := range s.tasks {
		out = append(out, t)
	}
	return out
}

// Wait blocks until every pending task finished and joins their errors.
func (s *RetryAfterDelay[T]) Wait(ctx context.Context) error {
	var errs []error
	for _, t := range s.Pending() {
		if err := t.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close cancels every pending task.
func (s *RetryAfterDelay[T]) Close() {
	for _, t := range s.Pending() {
		t.Cancel()
	}
}
