package history

import (
	"errors"
	"fmt"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of an LLM conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Source is an optional piece of context the assembler may replay.
type Source string

const (
	SourceConsolidatedContext  Source = "consolidated_context"
	SourceContext              Source = "context"
	SourceConsolidatedGlossary Source = "consolidated_glossary"
	SourceGlossary             Source = "glossary"
)

// AllSources lists every source in priority order.
var AllSources = []Source{
	SourceConsolidatedContext,
	SourceContext,
	SourceConsolidatedGlossary,
	SourceGlossary,
}

// Prompt returns the synthetic user question that introduces the source.
func (s Source) Prompt() string {
	switch s {
	case SourceConsolidatedContext:
		return "Provide brief information about the last web novel's chapters"
	case SourceContext:
		return "Provide brief information about the previous web novel's chapter"
	case SourceConsolidatedGlossary:
		return "Provide a glossary list for the last web novel's chapters"
	case SourceGlossary:
		return "Provide a glossary list for previous novels' chapter"
	default:
		return ""
	}
}

// ParseSources converts configuration names into sources, keeping their order.
func ParseSources(names []string) ([]Source, error) {
	out := make([]Source, 0, len(names))
	for _, name := range names {
		s := Source(strings.ToLower(strings.TrimSpace(name)))
		if s.Prompt() == "" {
			return nil, fmt.Errorf("unknown history source %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// ErrEmptyHistory is returned by MostResult when there is nothing to choose from.
var ErrEmptyHistory = errors.New("history is empty")

// MostResult returns the longest of the recorded results; the first one wins a tie.
// Length is only a heuristic for the most complete answer.
func MostResult(results []string) (string, error) {
	if len(results) == 0 {
		return "", ErrEmptyHistory
	}
	best := results[0]
	for _, r := range results[1:] {
		if len(r) > len(best) {
			best = r
		}
	}
	return best, nil
}
