package domain

// SlotKind tags which version of an argument a Slot holds.
type SlotKind int

const (
	SlotEmpty SlotKind = iota
	SlotCurrent
	SlotPrevious
	SlotAlternate
)

func (k SlotKind) String() string {
	switch k {
	case SlotCurrent:
		return "current"
	case SlotPrevious:
		return "previous"
	case SlotAlternate:
		return "alternate"
	default:
		return "empty"
	}
}

// Slot is the resolved, typed view of a Key inside an argument list.
type Slot[V any] struct {
	Kind  SlotKind
	Value V
}

// IsEmpty reports whether no version of the key was found.
func (s Slot[V]) IsEmpty() bool {
	return s.Kind == SlotEmpty
}

// Key is a typed handle on a well-known argument name.
type Key[V any] struct {
	name      string
	ephemeral bool
}

// NewKey declares a typed argument name.
func NewKey[V any](name string) Key[V] {
	return Key[V]{name: name}
}

// NewEphemeralKey declares a typed argument whose values are never persisted nor sunk.
func NewEphemeralKey[V any](name string) Key[V] {
	return Key[V]{name: name, ephemeral: true}
}

func (k Key[V]) Name() string {
	return k.name
}

// Ref addresses the current version of the key.
func (k Key[V]) Ref() Ref {
	return Current(k.name)
}

// Of creates the current argument for v.
func (k Key[V]) Of(v V) Argument {
	a := NewArgument(k.name, v)
	if k.ephemeral {
		a = a.AsEphemeral()
	}
	return a
}

// Obsolete creates an old argument for v.
func (k Key[V]) Obsolete(v V) Argument {
	return k.Of(v).AsObsolete()
}

// Alternate creates an alternative argument for v.
func (k Key[V]) Alternate(v V) Argument {
	return k.Of(v).AsAlternative()
}

// Current returns the current value of the key.
func (k Key[V]) Current(args Arguments) (V, bool) {
	return k.find(args, TypeNew)
}

// Previous returns the obsolete value of the key.
func (k Key[V]) Previous(args Arguments) (V, bool) {
	return k.find(args, TypeOld)
}

// Alternative returns the fallback value of the key.
func (k Key[V]) Alternative(args Arguments) (V, bool) {
	return k.find(args, TypeAlt)
}

// Slot resolves the most relevant version: current, then previous, then alternate.
func (k Key[V]) Slot(args Arguments) Slot[V] {
	if v, ok := k.Current(args); ok {
		return Slot[V]{Kind: SlotCurrent, Value: v}
	}
	if v, ok := k.Previous(args); ok {
		return Slot[V]{Kind: SlotPrevious, Value: v}
	}
	if v, ok := k.Alternative(args); ok {
		return Slot[V]{Kind: SlotAlternate, Value: v}
	}
	return Slot[V]{}
}

func (k Key[V]) find(args Arguments, t ArgType) (V, bool) {
	var zero V
	a, ok := args.Find(k.name, t)
	if !ok {
		return zero, false
	}
	v, ok := a.Value.(V)
	return v, ok
}

// Well-known arguments exchanged by chapter processing pipes.
var (
	Text                 = NewKey[string]("text")
	TranslatedText       = NewKey[string]("translatedText")
	Context              = NewKey[string]("context")
	ConsolidatedContext  = NewKey[string]("consolidatedContext")
	Glossary             = NewKey[GlossaryList]("glossary")
	ConsolidatedGlossary = NewKey[GlossaryList]("consolidatedGlossary")
	Proofread            = NewKey[string]("proofread")
	ChapterNumber        = NewKey[int]("chapterNumber")
	Chunks               = NewKey[[]string]("chunks")
	Chunk                = NewKey[string]("chunk")
	TranslatedChunks     = NewKey[[]string]("translatedChunks")
	TranslatedChunk      = NewKey[string]("translatedChunk")
	Iteration            = NewKey[int]("iteration")
	SubIteration         = NewKey[int]("subIteration")
	Warning              = NewKey[string]("warning")
	Aggregate            = NewKey[any]("aggregate")
	Result               = NewEphemeralKey[any]("result")
)
