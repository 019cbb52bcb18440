package flow_test

import (
	"testing"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(args ...domain.Argument) flow.Context[string] {
	return flow.NewContext[string]("STEP1", "chapter-1", map[string]any{domain.MetaRunID: "ctx"}, args...)
}

func TestContext_SetKeepsOnePreviousVersion(t *testing.T) {
	c := newContext()
	c = flow.Set(c, domain.Text, "draft")
	c = flow.Set(c, domain.Text, "edited")

	cur, ok := flow.Value(c, domain.Text)
	require.True(t, ok)
	assert.Equal(t, "edited", cur)
	prev, ok := domain.Text.Previous(c.Args())
	require.True(t, ok)
	assert.Equal(t, "draft", prev)

	c = flow.Set(c, domain.Text, "final")
	prev, _ = domain.Text.Previous(c.Args())
	assert.Equal(t, "edited", prev)

	var texts int
	for _, a := range c.Args() {
		if a.Name == domain.Text.Name() {
			texts++
		}
	}
	assert.Equal(t, 2, texts, "current and a single previous version")
}

func TestContext_RearrangeWithEmptyIsNoop(t *testing.T) {
	c := flow.Set(newContext(), domain.Text, "draft")
	out := c.Rearrange(domain.Text.Ref(), domain.NewArgument(domain.Text.Name(), "  "))
	assert.Equal(t, c.Args(), out.Args())
}

func TestContext_PushStoresEmptyArgument(t *testing.T) {
	c := flow.Set(newContext(), domain.Text, "draft")
	out := c.Push(domain.Text.Ref(), domain.NewArgument(domain.Text.Name(), ""))

	_, ok := flow.Value(out, domain.Text)
	assert.False(t, ok, "an empty current is not visible")
	slot := flow.SlotOf(out, domain.Text)
	assert.Equal(t, domain.SlotPrevious, slot.Kind)
	assert.Equal(t, "draft", slot.Value)
}

func TestContext_ReplaceDropsPreviousValue(t *testing.T) {
	c := flow.Set(newContext(), domain.Text, "draft")
	c = c.Replace(domain.Text.Ref(), domain.Text.Of("rewritten"))

	_, ok := domain.Text.Previous(c.Args())
	assert.False(t, ok)
	cur, _ := flow.Value(c, domain.Text)
	assert.Equal(t, "rewritten", cur)
}

func TestContext_IsImmutable(t *testing.T) {
	base := newContext(domain.Text.Of("draft"))
	changed := flow.Set(base, domain.Text, "edited").WithItem("chapter-2").WithMetadata("k", "v")

	cur, _ := flow.Value(base, domain.Text)
	assert.Equal(t, "draft", cur)
	assert.Equal(t, "chapter-1", base.Item())
	_, ok := base.Meta("k")
	assert.False(t, ok)

	assert.Equal(t, "chapter-2", changed.Item())
	assert.Equal(t, base.ID(), changed.ID(), "copies keep the context identity")

	md := base.Metadata()
	md["run_id"] = "tampered"
	v, _ := base.Meta(domain.MetaRunID)
	assert.Equal(t, "ctx", v)
}

func TestContext_WithoutEphemeralArgs(t *testing.T) {
	c := newContext(domain.Text.Of("draft"))
	c = flow.Set[any](c, domain.Result, "scratch")
	require.True(t, c.HasArgument(domain.Result.Ref()))

	cleaned := c.WithoutEphemeralArgs()
	assert.False(t, cleaned.HasArgument(domain.Result.Ref()))
	assert.True(t, cleaned.HasArgument(domain.Text.Ref()))
}

func TestContext_WithoutOldAndEmpty(t *testing.T) {
	c := flow.Set(newContext(), domain.Text, "draft")
	c = flow.Set(c, domain.Text, "edited")
	c = c.Copy(func(b *flow.ContextBuilder[string]) {
		b.Add(domain.EmptyArgument(domain.Proofread.Name(), domain.TypeAlt))
	})

	out := c.WithoutOldAndEmpty()
	assert.Len(t, out.Args(), 1)
	assert.Equal(t, "edited", out.Args()[0].Value)
}

func TestContext_Flags(t *testing.T) {
	c := newContext()
	assert.False(t, c.SinkPrevented())
	assert.False(t, c.StateUpdatePrevented())

	sink := c.PreventSink()
	assert.True(t, sink.SinkPrevented())
	assert.False(t, sink.StateUpdatePrevented())

	probe := c.PreventChanges()
	assert.True(t, probe.SinkPrevented())
	assert.True(t, probe.StateUpdatePrevented())

	enabled := probe.EnableChanges()
	assert.False(t, enabled.SinkPrevented())
	assert.False(t, enabled.StateUpdatePrevented())
}

func TestContext_Queries(t *testing.T) {
	c := newContext(
		domain.Context.Of("summary"),
		domain.Glossary.Alternate(domain.GlossaryList{{Name: "Aria", Category: "character"}}),
	)

	_, err := c.Get(domain.Text.Ref())
	var argErr *domain.ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, domain.Text.Name(), argErr.Name)

	assert.True(t, c.HasAnyArgument(domain.Text.Ref(), domain.Context.Ref()))
	assert.False(t, c.HasArguments(domain.Text.Ref(), domain.Context.Ref()))

	a, ok := c.Resolve(domain.Glossary.Ref(), domain.Alternative(domain.Glossary.Name()))
	require.True(t, ok)
	assert.Equal(t, domain.TypeAlt, a.Type)

	slot := flow.SlotOf(c, domain.Glossary)
	assert.Equal(t, domain.SlotAlternate, slot.Kind)
	assert.Equal(t, "Aria", slot.Value[0].Name)

	v, ok := c.OptionalValue(domain.Context.Ref())
	require.True(t, ok)
	assert.Equal(t, "summary", v)
}
