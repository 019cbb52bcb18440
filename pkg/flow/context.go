package flow

import (
	"maps"
	"slices"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/google/uuid"
)

// Context is the immutable value a pipe receives and returns.
// Every mutator returns a new Context whose argument list has been normalized.
type Context[T any] struct {
	id        string
	state     domain.State
	item      T
	pipeIndex int
	metadata  map[string]any
	args      domain.Arguments
}

// NewContext creates a context for state positioned on item.
func NewContext[T any](state domain.State, item T, metadata map[string]any, args ...domain.Argument) Context[T] {
	md := maps.Clone(metadata)
	if md == nil {
		md = make(map[string]any)
	}
	return Context[T]{
		id:       uuid.NewString(),
		state:    state,
		item:     item,
		metadata: md,
		args:     domain.Normalize(args),
	}
}

// ContextBuilder is the mutable view handed to Copy.
type ContextBuilder[T any] struct {
	State     domain.State
	Item      T
	PipeIndex int
	Metadata  map[string]any
	Args      []domain.Argument
}

// Add appends arguments.
func (b *ContextBuilder[T]) Add(args ...domain.Argument) {
	b.Args = append(b.Args, args...)
}

// Remove drops every argument matching one of refs.
func (b *ContextBuilder[T]) Remove(refs ...domain.Ref) {
	b.Args = slices.DeleteFunc(b.Args, func(a domain.Argument) bool {
		return slices.Contains(refs, a.Ref())
	})
}

// RemoveFunc drops every argument for which drop holds.
func (b *ContextBuilder[T]) RemoveFunc(drop func(domain.Argument) bool) {
	b.Args = slices.DeleteFunc(b.Args, drop)
}

func (c Context[T]) ID() string               { return c.id }
func (c Context[T]) State() domain.State      { return c.state }
func (c Context[T]) Item() T                  { return c.item }
func (c Context[T]) PipeIndex() int           { return c.pipeIndex }
func (c Context[T]) Args() domain.Arguments   { return slices.Clone(c.args) }
func (c Context[T]) Metadata() map[string]any { return maps.Clone(c.metadata) }

// Meta returns a single metadata value.
func (c Context[T]) Meta(key string) (any, bool) {
	v, ok := c.metadata[key]
	return v, ok
}

// Copy applies fn to a builder seeded with this context and re-normalizes the arguments.
// It is the only mutation primitive; every other mutator is written in terms of it.
func (c Context[T]) Copy(fn func(b *ContextBuilder[T])) Context[T] {
	b := &ContextBuilder[T]{
		State:     c.state,
		Item:      c.item,
		PipeIndex: c.pipeIndex,
		Metadata:  maps.Clone(c.metadata),
		Args:      slices.Clone([]domain.Argument(c.args)),
	}
	fn(b)
	if b.Metadata == nil {
		b.Metadata = make(map[string]any)
	}
	return Context[T]{
		id:        c.id,
		state:     b.State,
		item:      b.Item,
		pipeIndex: b.PipeIndex,
		metadata:  b.Metadata,
		args:      domain.Normalize(b.Args),
	}
}

// Then applies fn, for chaining context transformations.
func (c Context[T]) Then(fn func(Context[T]) Context[T]) Context[T] {
	return fn(c)
}

func (c Context[T]) WithItem(item T) Context[T] {
	return c.Copy(func(b *ContextBuilder[T]) { b.Item = item })
}

func (c Context[T]) WithState(state domain.State) Context[T] {
	return c.Copy(func(b *ContextBuilder[T]) { b.State = state })
}

func (c Context[T]) WithPipeIndex(i int) Context[T] {
	return c.Copy(func(b *ContextBuilder[T]) { b.PipeIndex = i })
}

func (c Context[T]) WithMetadata(key string, value any) Context[T] {
	return c.Copy(func(b *ContextBuilder[T]) { b.Metadata[key] = value })
}

// Replace drops the argument at ref and adds arg. The previous value is lost.
func (c Context[T]) Replace(ref domain.Ref, arg domain.Argument) Context[T] {
	return c.Copy(func(b *ContextBuilder[T]) {
		b.Remove(ref)
		b.Add(arg)
	})
}

// Rearrange supersedes the argument at ref with arg, keeping the superseded value as
// the old version of the slot. An empty arg leaves the context unchanged.
func (c Context[T]) Rearrange(ref domain.Ref, arg domain.Argument) Context[T] {
	if arg.IsEmpty() {
		return c
	}
	return c.Push(ref, arg)
}

// Push is Rearrange without the empty check.
func (c Context[T]) Push(ref domain.Ref, arg domain.Argument) Context[T] {
	previous, found := c.args.Lookup(ref)
	return c.Copy(func(b *ContextBuilder[T]) {
		b.Remove(ref, domain.Current(ref.Name), domain.Previous(ref.Name))
		if found {
			b.Add(previous.AsObsolete())
		}
		b.Add(arg)
	})
}

// Set rearranges the current slot of arg's name.
func (c Context[T]) Set(arg domain.Argument) Context[T] {
	return c.Rearrange(domain.Current(arg.Name), arg)
}

// RemoveArgs drops every argument matching one of refs.
func (c Context[T]) RemoveArgs(refs ...domain.Ref) Context[T] {
	return c.Copy(func(b *ContextBuilder[T]) { b.Remove(refs...) })
}

// WithoutEphemeralArgs drops arguments that must never reach a checkpoint or a sink.
func (c Context[T]) WithoutEphemeralArgs() Context[T] {
	return c.Copy(func(b *ContextBuilder[T]) {
		b.RemoveFunc(func(a domain.Argument) bool { return a.Ephemeral })
	})
}

// WithoutOldAndEmpty drops previous versions and empty arguments.
func (c Context[T]) WithoutOldAndEmpty() Context[T] {
	return c.Copy(func(b *ContextBuilder[T]) {
		b.RemoveFunc(func(a domain.Argument) bool { return a.IsOld() || a.IsEmpty() })
	})
}

// WithoutEmpty drops empty arguments.
func (c Context[T]) WithoutEmpty() Context[T] {
	return c.Copy(func(b *ContextBuilder[T]) {
		b.RemoveFunc(domain.Argument.IsEmpty)
	})
}

// PreventSink keeps the current step output away from the sink.
func (c Context[T]) PreventSink() Context[T] {
	return c.WithMetadata(domain.MetaPreventSink, true)
}

// PreventStateUpdate keeps the current step from advancing the checkpoint.
func (c Context[T]) PreventStateUpdate() Context[T] {
	return c.WithMetadata(domain.MetaPreventStateUpdate, true)
}

// PreventChanges marks the current step as a probe: no sink and no checkpoint.
func (c Context[T]) PreventChanges() Context[T] {
	return c.Copy(func(b *ContextBuilder[T]) {
		b.Metadata[domain.MetaPreventSink] = true
		b.Metadata[domain.MetaPreventStateUpdate] = true
	})
}

// EnableChanges clears both probe flags.
func (c Context[T]) EnableChanges() Context[T] {
	if !c.SinkPrevented() && !c.StateUpdatePrevented() {
		return c
	}
	return c.Copy(func(b *ContextBuilder[T]) {
		delete(b.Metadata, domain.MetaPreventSink)
		delete(b.Metadata, domain.MetaPreventStateUpdate)
	})
}

func (c Context[T]) SinkPrevented() bool {
	return c.flag(domain.MetaPreventSink)
}

func (c Context[T]) StateUpdatePrevented() bool {
	return c.flag(domain.MetaPreventStateUpdate)
}

func (c Context[T]) flag(key string) bool {
	v, _ := c.metadata[key].(bool)
	return v
}

// Get returns the argument at ref or an *domain.ArgumentError.
func (c Context[T]) Get(ref domain.Ref) (domain.Argument, error) {
	return c.args.Get(ref.Name, ref.Type)
}

// Optional returns the argument at ref when present and non-empty.
func (c Context[T]) Optional(ref domain.Ref) (domain.Argument, bool) {
	return c.args.Lookup(ref)
}

// OptionalValue returns the value at ref when present and non-empty.
func (c Context[T]) OptionalValue(ref domain.Ref) (any, bool) {
	a, ok := c.args.Lookup(ref)
	return a.Value, ok
}

func (c Context[T]) HasArgument(ref domain.Ref) bool {
	_, ok := c.args.Lookup(ref)
	return ok
}

// HasAnyArgument reports whether at least one of refs is present.
func (c Context[T]) HasAnyArgument(refs ...domain.Ref) bool {
	_, ok := c.Resolve(refs...)
	return ok
}

// HasArguments reports whether every ref is present.
func (c Context[T]) HasArguments(refs ...domain.Ref) bool {
	for _, ref := range refs {
		if !c.HasArgument(ref) {
			return false
		}
	}
	return true
}

// Resolve returns the first present argument among refs, in order.
func (c Context[T]) Resolve(refs ...domain.Ref) (domain.Argument, bool) {
	for _, ref := range refs {
		if a, ok := c.args.Lookup(ref); ok {
			return a, true
		}
	}
	return domain.Argument{}, false
}

// Value returns the current typed value of k.
func Value[V, T any](c Context[T], k domain.Key[V]) (V, bool) {
	return k.Current(c.args)
}

// SlotOf resolves k to its most relevant version.
func SlotOf[V, T any](c Context[T], k domain.Key[V]) domain.Slot[V] {
	return k.Slot(c.args)
}

// Set rearranges k with v, keeping the superseded value as previous.
func Set[V, T any](c Context[T], k domain.Key[V], v V) Context[T] {
	return c.Rearrange(k.Ref(), k.Of(v))
}
