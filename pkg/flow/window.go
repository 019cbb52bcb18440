package flow

import (
	"context"
	"fmt"
)

// WindowKind selects how a window groups item contexts.
type WindowKind int

const (
	WindowTumbling WindowKind = iota
	WindowSliding
)

// Window describes how consecutive item contexts are grouped for aggregation.
type Window struct {
	Kind  WindowKind
	Size  int
	Slide int
}

// Tumbling groups n consecutive contexts into non-overlapping windows.
func Tumbling(n int) Window {
	return Window{Kind: WindowTumbling, Size: n, Slide: n}
}

// Sliding aggregates the last size contexts every slide items.
func Sliding(size, slide int) Window {
	return Window{Kind: WindowSliding, Size: size, Slide: slide}
}

func (w Window) validate() error {
	if w.Size <= 0 {
		return fmt.Errorf("window size must be positive, got %d", w.Size)
	}
	if w.Slide <= 0 || w.Slide > w.Size {
		return fmt.Errorf("window slide must be in [1, %d], got %d", w.Size, w.Slide)
	}
	return nil
}

// Aggregator folds the contexts of one window into a single context.
type Aggregator[T any] func(ctx context.Context, contexts []Context[T]) (Context[T], error)

// WindowBuffer accumulates item contexts for one windowed step during a state run.
type WindowBuffer[T any] struct {
	window   Window
	contexts []Context[T]
	fresh    int
}

// NewWindowBuffer creates an empty buffer for w.
func NewWindowBuffer[T any](w Window) *WindowBuffer[T] {
	return &WindowBuffer[T]{window: w}
}

// Add buffers fc and returns the window contents when the window is full.
func (b *WindowBuffer[T]) Add(fc Context[T]) ([]Context[T], bool) {
	b.contexts = append(b.contexts, fc)
	b.fresh++
	if len(b.contexts) < b.window.Size {
		return nil, false
	}
	batch := append([]Context[T](nil), b.contexts...)
	b.contexts = append([]Context[T](nil), b.contexts[b.window.Slide:]...)
	b.fresh = 0
	return batch, true
}

// Flush returns the trailing partial window, if any context arrived since the last aggregation.
func (b *WindowBuffer[T]) Flush() ([]Context[T], bool) {
	if b.fresh == 0 {
		return nil, false
	}
	batch := b.contexts
	b.contexts = nil
	b.fresh = 0
	return batch, true
}

// Pending reports whether contexts are waiting for an aggregation.
func (b *WindowBuffer[T]) Pending() bool {
	return b.fresh > 0
}
