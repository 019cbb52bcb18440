package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArgType is the version of an argument within its name.
// The declaration order is the sort order used by Arguments.
type ArgType int

const (
	TypeNew ArgType = iota
	TypeOld
	TypeAlt
	TypeCopy
)

func (t ArgType) String() string {
	switch t {
	case TypeNew:
		return "new"
	case TypeOld:
		return "old"
	case TypeAlt:
		return "alt"
	case TypeCopy:
		return "copy"
	default:
		return fmt.Sprintf("ArgType(%d)", int(t))
	}
}

// Argument is a named, versioned value carried by a flow context.
type Argument struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      ArgType   `json:"type"`
	Value     any       `json:"value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Ephemeral bool      `json:"ephemeral,omitempty"`
}

// NewArgument creates a current (new) argument stamped with the current time.
func NewArgument(name string, value any) Argument {
	return Argument{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      TypeNew,
		Value:     value,
		Timestamp: time.Now(),
	}
}

// EmptyArgument creates a placeholder argument with no value.
func EmptyArgument(name string, t ArgType) Argument {
	a := NewArgument(name, nil)
	a.Type = t
	return a
}

// Ref returns the (name, type) pair addressing this argument.
func (a Argument) Ref() Ref {
	return Ref{Name: a.Name, Type: a.Type}
}

// AsEphemeral marks the argument as never persisted nor sunk.
func (a Argument) AsEphemeral() Argument {
	a.Ephemeral = true
	return a
}

// AsAlternative exposes the value as a fallback that does not shadow the current one.
func (a Argument) AsAlternative() Argument {
	a.Ephemeral = true
	a.Type = TypeAlt
	return a
}

// AsObsolete demotes a current argument to old, keeping its value.
// Applied to old or alternative arguments it clears the value; an empty argument
// is returned unchanged.
func (a Argument) AsObsolete() Argument {
	if a.IsEmpty() {
		return a
	}
	if a.Type == TypeNew {
		a.Type = TypeOld
		return a
	}
	a.Value = nil
	return a
}

// AsCopy returns a copy-typed duplicate with a fresh identity.
func (a Argument) AsCopy() Argument {
	a.ID = uuid.NewString()
	a.Type = TypeCopy
	a.Timestamp = time.Now()
	return a
}

// Map applies fn to the whole argument.
func (a Argument) Map(fn func(Argument) Argument) Argument {
	return fn(a)
}

// MapValue replaces the value with fn(value), preserving every other field.
func (a Argument) MapValue(fn func(any) any) Argument {
	a.Value = fn(a.Value)
	return a
}

// MapValueWithCondition applies fn only when pred holds for the value.
func (a Argument) MapValueWithCondition(pred func(any) bool, fn func(any) any) Argument {
	if !pred(a.Value) {
		return a
	}
	return a.MapValue(fn)
}

// IsOld reports whether the argument is a previous version.
func (a Argument) IsOld() bool {
	return a.Type == TypeOld
}

// IsEmpty reports whether the value is absent, a blank string or an empty collection.
func (a Argument) IsEmpty() bool {
	return isEmptyValue(a.Value)
}

// String renders the value as text. Collections of fmt.Stringer are joined by newlines
// and other structured values are rendered as JSON.
func (a Argument) String() string {
	return Stringify(a.Value)
}

type emptier interface {
	IsEmpty() bool
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val) == ""
	case emptier:
		return val.IsEmpty()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Stringify renders an argument value as prompt-ready text.
func Stringify(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case []string:
		return strings.Join(val, "\n")
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		lines := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, ok := rv.Index(i).Interface().(fmt.Stringer)
			if !ok {
				lines = nil
				break
			}
			lines = append(lines, s.String())
		}
		if lines != nil {
			return strings.Join(lines, "\n")
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
