package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateEnter EventType = "state_enter"
	EventStateLeave EventType = "state_leave"
	EventPipe       EventType = "pipe"
	EventItem       EventType = "item"
	EventCheckpoint EventType = "checkpoint"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	State     State     `json:"state"`
}

// StateEvent represents entry into or exit from a state run.
type StateEvent struct {
	EventBase
	Items    int           `json:"items"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// PipeEvent represents one pipe invocation.
type PipeEvent struct {
	EventBase
	Item     int           `json:"item"`
	Pipe     int           `json:"pipe"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// ItemEvent represents the completion (or failure) of one item's pipe chain.
type ItemEvent struct {
	EventBase
	Item    int   `json:"item"`
	Skipped bool  `json:"skipped,omitempty"`
	Err     error `json:"-"`
}

// CheckpointEvent represents a durable position write.
type CheckpointEvent struct {
	EventBase
	Item int `json:"item"`
	Pipe int `json:"pipe"`
}

// LifecycleHooks defines callbacks for runner observability.
type LifecycleHooks struct {
	OnStateEnter func(context.Context, *StateEvent)
	OnStateLeave func(context.Context, *StateEvent)
	OnPipe       func(context.Context, *PipeEvent)
	OnItem       func(context.Context, *ItemEvent)
	OnCheckpoint func(context.Context, *CheckpointEvent)
}

// Merge returns hooks that call h first and then other for every event.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStateEnter: chain(h.OnStateEnter, other.OnStateEnter),
		OnStateLeave: chain(h.OnStateLeave, other.OnStateLeave),
		OnPipe:       chain(h.OnPipe, other.OnPipe),
		OnItem:       chain(h.OnItem, other.OnItem),
		OnCheckpoint: chain(h.OnCheckpoint, other.OnCheckpoint),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
