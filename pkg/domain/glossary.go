package domain

import (
	"fmt"
	"strings"
)

// GlossaryEntry is a named term extracted from a chapter.
type GlossaryEntry struct {
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func (e GlossaryEntry) String() string {
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(e.Name)
	if e.Category != "" {
		fmt.Fprintf(&b, " (%s)", e.Category)
	}
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	return b.String()
}

// GlossaryList is an ordered glossary.
type GlossaryList []GlossaryEntry

func (g GlossaryList) IsEmpty() bool {
	return len(g) == 0
}

func (g GlossaryList) String() string {
	lines := make([]string, len(g))
	for i, e := range g {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// UniqueByName keeps the first entry for every name.
func (g GlossaryList) UniqueByName() GlossaryList {
	seen := make(map[string]struct{}, len(g))
	out := make(GlossaryList, 0, len(g))
	for _, e := range g {
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Without drops entries whose name is in names.
func (g GlossaryList) Without(names map[string]struct{}) GlossaryList {
	out := make(GlossaryList, 0, len(g))
	for _, e := range g {
		if _, ok := names[e.Name]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Names returns the set of entry names.
func (g GlossaryList) Names() map[string]struct{} {
	names := make(map[string]struct{}, len(g))
	for _, e := range g {
		names[e.Name] = struct{}{}
	}
	return names
}
