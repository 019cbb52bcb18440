package history

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
)

// Entry is one replayed source: the synthetic prompt answered by Content.
type Entry struct {
	Source  Source
	Content string
	Tokens  int
}

// Bundle is the outcome of one assembly pass.
type Bundle struct {
	System       string
	SystemTokens int
	Entries      []Entry
}

// Tokens returns the cost of the replayed entries, without the system prompt.
func (b *Bundle) Tokens() int {
	total := 0
	for _, e := range b.Entries {
		total += e.Tokens
	}
	return total
}

// Sources lists the sources that made it into the bundle.
func (b *Bundle) Sources() []Source {
	var out []Source
	for _, e := range b.Entries {
		out = append(out, e.Source)
	}
	return out
}

// Messages renders the bundle: the system prompt first, then one user and
// assistant pair per entry.
func (b *Bundle) Messages() []Message {
	out := make([]Message, 0, 1+2*len(b.Entries))
	out = append(out, Message{Role: RoleSystem, Content: b.System})
	for _, e := range b.Entries {
		out = append(out,
			Message{Role: RoleUser, Content: e.Source.Prompt()},
			Message{Role: RoleAssistant, Content: e.Content},
		)
	}
	return out
}

// Assembler builds bounded conversations from context arguments.
type Assembler struct {
	counter Counter
	logger  *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler creates an assembler costing text with counter.
// A nil counter falls back to NaiveCounter.
func NewAssembler(counter Counter, opts ...Option) *Assembler {
	if counter == nil {
		counter = NaiveCounter{}
	}
	a := &Assembler{counter: counter, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build assembles the conversation for args. See Assemble.
func (a *Assembler) Build(args domain.Arguments, system string, budget *Budget, sources ...Source) []Message {
	return a.Assemble(args, system, budget, sources...).Messages()
}

// Assemble deducts the system prompt from budget, then offers each source in
// order. No sources means AllSources. A source is replayed whole when it fits;
// glossaries additionally try their alternate version and finally a truncated list.
func (a *Assembler) Assemble(args domain.Arguments, system string, budget *Budget, sources ...Source) *Bundle {
	if budget == nil {
		budget = NewBudget(DefaultBudget)
	}
	if len(sources) == 0 {
		sources = AllSources
	}

	p := &pass{
		assembler: a,
		budget:    budget,
		names:     make(map[string]struct{}),
		bundle:    &Bundle{System: system, SystemTokens: a.counter.Count(system)},
	}
	budget.Allocate(p.bundle.SystemTokens)

	for _, source := range sources {
		switch source {
		case SourceConsolidatedContext:
			text, ok := firstText(args, domain.ConsolidatedContext.Current, domain.Context.Previous)
			if ok {
				p.offerText(source, text)
			}
		case SourceContext:
			if text, ok := domain.Context.Current(args); ok {
				p.offerText(source, text)
			}
		case SourceConsolidatedGlossary:
			primary, ok := domain.ConsolidatedGlossary.Current(args)
			if !ok {
				primary, _ = domain.Glossary.Previous(args)
			}
			alternate, _ := domain.ConsolidatedGlossary.Alternative(args)
			p.offerGlossary(source, primary, alternate)
		case SourceGlossary:
			primary, _ := domain.Glossary.Current(args)
			alternate, _ := domain.Glossary.Alternative(args)
			p.offerGlossary(source, primary, alternate)
		}
	}

	a.logger.Debug("History assembled",
		"sources", p.bundle.Sources(),
		"system_tokens", p.bundle.SystemTokens,
		"tokens", p.bundle.Tokens(),
		"remaining", budget.Remaining(),
	)
	return p.bundle
}

func firstText(args domain.Arguments, lookups ...func(domain.Arguments) (string, bool)) (string, bool) {
	for _, lookup := range lookups {
		if v, ok := lookup(args); ok {
			return v, true
		}
	}
	return "", false
}

// pass is the state of one Assemble call.
type pass struct {
	assembler *Assembler
	budget    *Budget
	names     map[string]struct{}
	bundle    *Bundle
}

func (p *pass) queued(content string) bool {
	return slices.ContainsFunc(p.bundle.Entries, func(e Entry) bool {
		return e.Content == content
	})
}

func (p *pass) add(source Source, content string, tokens int) {
	p.budget.Allocate(tokens)
	p.bundle.Entries = append(p.bundle.Entries, Entry{Source: source, Content: content, Tokens: tokens})
}

func (p *pass) offerText(source Source, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if p.queued(text) {
		p.assembler.logger.Debug("History source repeats queued content", "source", source)
		return
	}
	tokens := p.assembler.counter.Count(text)
	if !p.budget.CanAllocate(tokens) {
		p.assembler.logger.Debug("History source over budget", "source", source, "tokens", tokens, "remaining", p.budget.Remaining())
		return
	}
	p.add(source, text, tokens)
}

// offerGlossary replays the first candidate that fits: the primary list, then the
// alternate one, both without names already replayed. When neither fits, the
// primary candidate is truncated.
func (p *pass) offerGlossary(source Source, primary, alternate domain.GlossaryList) {
	var candidates []domain.GlossaryList
	for _, list := range []domain.GlossaryList{primary, alternate} {
		if list = list.UniqueByName().Without(p.names); !list.IsEmpty() {
			candidates = append(candidates, list)
		}
	}
	if len(candidates) == 0 {
		return
	}

	for _, list := range candidates {
		content := list.String()
		tokens := p.assembler.counter.Count(content)
		if p.budget.CanAllocate(tokens) {
			p.addGlossary(source, list, content, tokens)
			return
		}
	}

	list := p.truncate(candidates[0])
	if list.IsEmpty() {
		p.assembler.logger.Debug("History glossary over budget", "source", source, "remaining", p.budget.Remaining())
		return
	}
	content := list.String()
	p.assembler.logger.Debug("History glossary truncated", "source", source, "kept", len(list), "of", len(candidates[0]))
	p.addGlossary(source, list, content, p.assembler.counter.Count(content))
}

func (p *pass) addGlossary(source Source, list domain.GlossaryList, content string, tokens int) {
	if p.queued(content) {
		return
	}
	p.add(source, content, tokens)
	maps.Copy(p.names, list.Names())
}

// truncate drops the costliest entries, one at a time, until the rest fits the
// remaining budget. The survivors keep their order.
func (p *pass) truncate(list domain.GlossaryList) domain.GlossaryList {
	type costed struct {
		index  int
		tokens int
	}
	order := make([]costed, len(list))
	for i, e := range list {
		order[i] = costed{index: i, tokens: p.assembler.counter.Count(e.String())}
	}
	slices.SortStableFunc(order, func(x, y costed) int {
		return cmp.Compare(y.tokens, x.tokens)
	})

	dropped := make(map[int]struct{}, len(list))
	for _, c := range order {
		dropped[c.index] = struct{}{}
		rest := make(domain.GlossaryList, 0, len(list)-len(dropped))
		for i, e := range list {
			if _, ok := dropped[i]; !ok {
				rest = append(rest, e)
			}
		}
		if rest.IsEmpty() {
			return nil
		}
		if p.budget.CanAllocate(p.assembler.counter.Count(rest.String())) {
			return rest
		}
	}
	return nil
}
