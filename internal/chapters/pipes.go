package chapters

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/flow"
	"github.com/aretw0/tessera/pkg/history"
)

// Prompt carries the assembled conversation of a chapter.
var Prompt = domain.NewKey[[]history.Message]("prompt")

var (
	blankLines  = regexp.MustCompile(`\n{3,}`)
	spaces      = regexp.MustCompile(`[ \t]+`)
	sentenceEnd = regexp.MustCompile(`[.!?]["')\]]?\s+`)
	properNoun  = regexp.MustCompile(`\b\p{Lu}[\p{L}'-]+\b`)
)

// Clean normalizes whitespace and stores the result as the chapter text.
func Clean(_ context.Context, fc flow.Context[Chapter]) (flow.Context[Chapter], error) {
	lines := strings.Split(strings.ReplaceAll(fc.Item().Text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaces.ReplaceAllString(line, " "))
	}
	text := strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
	if text == "" {
		return fc, domain.NewFlowError(fmt.Sprintf("chapter %d is empty", fc.Item().Number), nil)
	}
	fc = flow.Set(fc, domain.ChapterNumber, fc.Item().Number)
	return flow.Set(fc, domain.Text, text), nil
}

// Summarize keeps the first sentences of the text, up to n, as the chapter context.
func Summarize(n int) flow.Pipe[Chapter] {
	return func(_ context.Context, fc flow.Context[Chapter]) (flow.Context[Chapter], error) {
		text, err := requireText(fc)
		if err != nil {
			return fc, err
		}
		return flow.Set(fc, domain.Context, firstSentences(text, n)), nil
	}
}

// requireText fails the item, not the run, when the chapter was never cleaned.
func requireText(fc flow.Context[Chapter]) (string, error) {
	text, ok := flow.Value(fc, domain.Text)
	if !ok {
		return "", domain.NewFlowError(
			fmt.Sprintf("chapter %d has no text", fc.Item().Number),
			&domain.ArgumentError{Name: domain.Text.Name(), Type: domain.TypeNew},
		)
	}
	return text, nil
}

func firstSentences(text string, n int) string {
	body := strings.Join(strings.Fields(text), " ")
	ends := sentenceEnd.FindAllStringIndex(body, n)
	if len(ends) < n {
		return body
	}
	return strings.TrimSpace(body[:ends[n-1][1]])
}

// ExtractGlossary records the proper nouns mentioned at least minMentions times.
func ExtractGlossary(minMentions int) flow.Pipe[Chapter] {
	return func(_ context.Context, fc flow.Context[Chapter]) (flow.Context[Chapter], error) {
		text, err := requireText(fc)
		if err != nil {
			return fc, err
		}

		counts := make(map[string]int)
		for _, sentence := range sentenceEnd.Split(text, -1) {
			for i, word := range properNoun.FindAllString(sentence, -1) {
				// A capital at sentence start says nothing.
				if i == 0 && strings.HasPrefix(strings.TrimLeftFunc(sentence, notLetter), word) {
					continue
				}
				counts[word]++
			}
		}

		var list domain.GlossaryList
		for name, n := range counts {
			if n >= minMentions {
				list = append(list, domain.GlossaryEntry{
					Name:        name,
					Category:    "name",
					Description: fmt.Sprintf("mentioned %d times", n),
				})
			}
		}
		slices.SortFunc(list, func(a, b domain.GlossaryEntry) int {
			return cmp.Or(cmp.Compare(counts[b.Name], counts[a.Name]), cmp.Compare(a.Name, b.Name))
		})
		return flow.Set(fc, domain.Glossary, list), nil
	}
}

func notLetter(r rune) bool {
	return !unicode.IsLetter(r)
}

// ConsolidateGlossary merges the previous chapter's glossary into the running one.
func ConsolidateGlossary(_ context.Context, fc flow.Context[Chapter]) (flow.Context[Chapter], error) {
	args := fc.Args()
	consolidated, _ := domain.ConsolidatedGlossary.Current(args)
	previous, _ := domain.Glossary.Previous(args)
	merged := append(slices.Clone(consolidated), previous...).UniqueByName()
	if merged.IsEmpty() {
		return fc, nil
	}
	return flow.Set(fc, domain.ConsolidatedGlossary, merged), nil
}

// BuildPrompt assembles the translation conversation for the chapter.
func BuildPrompt(a *history.Assembler, system string, maxTokens int, sources ...history.Source) flow.Pipe[Chapter] {
	return func(_ context.Context, fc flow.Context[Chapter]) (flow.Context[Chapter], error) {
		msgs := a.Build(fc.Args(), system, history.NewBudget(maxTokens), sources...)
		return flow.Set(fc, Prompt, msgs), nil
	}
}
