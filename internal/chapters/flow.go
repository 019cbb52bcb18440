package chapters

import (
	"context"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
	"github.com/aretw0/tessera/pkg/history"
)

// FlowName namespaces the run keys of the chapter flow.
const FlowName = "chapters"

// States of the chapter flow, in order.
const (
	StateClean     domain.State = "CLEAN"
	StateSummarize domain.State = "SUMMARIZE"
	StateGlossary  domain.State = "GLOSSARY"
	StatePrompt    domain.State = "PROMPT"
)

const (
	DefaultSentences   = 2
	DefaultMinMentions = 2
	DefaultSystem      = "You are a literary translator. Keep names and terms consistent with the glossary."
)

// Options configures the chapter flow.
type Options struct {
	Records     *Records
	Assembler   *history.Assembler
	MaxTokens   int
	Sources     []history.Source
	System      string
	Sentences   int
	MinMentions int
	// Summarizer, when set, replaces the built-in summary with an external command.
	Summarizer CommandRunner
	// SummaryTool names the command Summarizer runs.
	SummaryTool string
	// Wait paces the prompt state between chapters.
	Wait time.Duration
}

func (o Options) withDefaults() Options {
	if o.Assembler == nil {
		o.Assembler = history.NewAssembler(nil)
	}
	if o.System == "" {
		o.System = DefaultSystem
	}
	if o.Sentences <= 0 {
		o.Sentences = DefaultSentences
	}
	if o.MinMentions <= 0 {
		o.MinMentions = DefaultMinMentions
	}
	return o
}

// NewFlow declares the chapter flow over source. Callers finish the builder
// with a run identity, state manager and error strategy.
func NewFlow(source []Chapter, opts Options) *flow.Builder[Chapter] {
	opts = opts.withDefaults()

	b := flow.New(source).
		Name(FlowName).
		Bootstrap(bootstrap(opts.Records)).
		Sink(sink(opts.Records))
	b.State(StateClean).
		NamedPipe("clean", Clean)
	summarize := Summarize(opts.Sentences)
	if opts.Summarizer != nil && opts.SummaryTool != "" {
		summarize = SummarizeWith(opts.Summarizer, opts.SummaryTool)
	}
	b.State(StateSummarize).
		NamedPipe("summarize", summarize)
	b.State(StateGlossary).
		NamedPipe("glossary", ExtractGlossary(opts.MinMentions))
	prompt := b.State(StatePrompt).
		NamedPipe("consolidate", ConsolidateGlossary).
		NamedPipe("prompt", BuildPrompt(opts.Assembler, opts.System, opts.MaxTokens, opts.Sources...))
	if opts.Wait > 0 {
		prompt.WaitFor(opts.Wait)
	}
	return b
}

// bootstrap loads what earlier states recorded for the chapter.
func bootstrap(records *Records) func(context.Context, flow.Context[Chapter]) (flow.Context[Chapter], error) {
	return func(_ context.Context, fc flow.Context[Chapter]) (flow.Context[Chapter], error) {
		rec, err := records.Load(fc.Item().Number)
		if err != nil {
			return fc, err
		}
		fc = flow.Set(fc, domain.ChapterNumber, fc.Item().Number)
		if rec.Text != "" {
			fc = flow.Set(fc, domain.Text, rec.Text)
		} else {
			// Nothing of the previous chapter may stand in for this one.
			fc = fc.Push(domain.Text.Ref(), domain.EmptyArgument(domain.Text.Name(), domain.TypeNew))
		}
		if rec.Summary != "" {
			fc = flow.Set(fc, domain.Context, rec.Summary)
		} else {
			fc = fc.Push(domain.Context.Ref(), domain.EmptyArgument(domain.Context.Name(), domain.TypeNew))
		}
		if !rec.Glossary.IsEmpty() {
			fc = flow.Set(fc, domain.Glossary, rec.Glossary)
		} else {
			fc = fc.Push(domain.Glossary.Ref(), domain.EmptyArgument(domain.Glossary.Name(), domain.TypeNew))
		}
		return fc, nil
	}
}

// sink records the output owned by the current state.
func sink(records *Records) func(context.Context, flow.Context[Chapter]) error {
	return func(_ context.Context, fc flow.Context[Chapter]) error {
		ch := fc.Item()
		rec, err := records.Load(ch.Number)
		if err != nil {
			return err
		}
		rec.Number = ch.Number
		rec.Title = ch.Title

		args := fc.Args()
		switch fc.State() {
		case StateClean:
			rec.Text, _ = domain.Text.Current(args)
		case StateSummarize:
			rec.Summary, _ = domain.Context.Current(args)
		case StateGlossary:
			rec.Glossary, _ = domain.Glossary.Current(args)
		case StatePrompt:
			rec.Prompt, _ = Prompt.Current(args)
		}
		return records.Save(rec)
	}
}
