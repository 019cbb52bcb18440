package domain

import (
	"cmp"
	"slices"
)

// Ref addresses an argument by its (name, type) pair.
type Ref struct {
	Name string
	Type ArgType
}

// Current is the ref of the current version of name.
func Current(name string) Ref {
	return Ref{Name: name, Type: TypeNew}
}

// Previous is the ref of the obsolete version of name.
func Previous(name string) Ref {
	return Ref{Name: name, Type: TypeOld}
}

// Alternative is the ref of the fallback version of name.
func Alternative(name string) Ref {
	return Ref{Name: name, Type: TypeAlt}
}

// Arguments is an ordered argument list. Use Normalize to restore its invariants
// after building it by hand; flow contexts always hold normalized lists.
type Arguments []Argument

// Normalize deduplicates args by (id, name, type) keeping the last write, sorts them
// by name, type and newest first, and keeps a single non-empty current argument per name.
func Normalize(args []Argument) Arguments {
	type entry struct {
		arg Argument
		seq int
	}
	type identity struct {
		id   string
		name string
		typ  ArgType
	}

	seen := make(map[identity]int, len(args))
	entries := make([]entry, 0, len(args))
	for i, a := range args {
		id := identity{a.ID, a.Name, a.Type}
		if at, ok := seen[id]; ok {
			entries[at] = entry{arg: a, seq: i}
			continue
		}
		seen[id] = len(entries)
		entries = append(entries, entry{arg: a, seq: i})
	}

	slices.SortStableFunc(entries, func(x, y entry) int {
		if c := cmp.Compare(x.arg.Name, y.arg.Name); c != 0 {
			return c
		}
		if c := cmp.Compare(x.arg.Type, y.arg.Type); c != 0 {
			return c
		}
		if c := y.arg.Timestamp.Compare(x.arg.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(y.seq, x.seq)
	})

	out := make(Arguments, 0, len(entries))
	var current string
	hasCurrent := false
	for _, e := range entries {
		a := e.arg
		if a.Type == TypeNew && !a.IsEmpty() {
			if hasCurrent && current == a.Name {
				continue
			}
			current, hasCurrent = a.Name, true
		}
		out = append(out, a)
	}
	return out
}

// Find returns the first non-empty argument matching (name, t).
func (as Arguments) Find(name string, t ArgType) (Argument, bool) {
	for _, a := range as {
		if a.Name == name && a.Type == t && !a.IsEmpty() {
			return a, true
		}
	}
	return Argument{}, false
}

// Lookup is Find addressed by a Ref.
func (as Arguments) Lookup(ref Ref) (Argument, bool) {
	return as.Find(ref.Name, ref.Type)
}

// Get is like Find but fails with an *ArgumentError carrying an empty placeholder.
func (as Arguments) Get(name string, t ArgType) (Argument, error) {
	if a, ok := as.Find(name, t); ok {
		return a, nil
	}
	return Argument{}, &ArgumentError{Name: name, Type: t, Placeholder: EmptyArgument(name, t)}
}

// Filter returns the arguments for which keep holds, preserving order.
func (as Arguments) Filter(keep func(Argument) bool) Arguments {
	out := make(Arguments, 0, len(as))
	for _, a := range as {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// Names returns the distinct argument names in order.
func (as Arguments) Names() []string {
	var names []string
	for _, a := range as {
		if len(names) == 0 || names[len(names)-1] != a.Name {
			names = append(names, a.Name)
		}
	}
	return names
}
