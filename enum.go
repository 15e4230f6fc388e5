package goinflux

import "fmt"

// EnumTable maps the values of an enumeration to the strings stored in
// InfluxDB and back. Tables are validated when built and immutable afterwards.
type EnumTable[E comparable] struct {
	names  map[E]string
	values map[string]E
}

// enumCodec is the type-erased view of an EnumTable used by columns.
type enumCodec interface {
	nameOf(v any) (string, bool)
	valueOf(name string) (any, bool)
}

// NewEnumTable builds a bidirectional table. The table must be non-empty and
// every name must be non-empty and unique.
func NewEnumTable[E comparable](names map[E]string) (*EnumTable[E], error) {
	if len(names) == 0 {
		return nil, errInvalidSchema("enum table is empty")
	}
	t := &EnumTable[E]{
		names:  make(map[E]string, len(names)),
		values: make(map[string]E, len(names)),
	}
	for v, name := range names {
		if name == "" {
			return nil, errInvalidSchema("enum value %v has an empty name", v)
		}
		if other, ok := t.values[name]; ok {
			return nil, errInvalidSchema("enum values %v and %v share the name %q", other, v, name)
		}
		t.names[v] = name
		t.values[name] = v
	}
	return t, nil
}

// MustEnumTable is like NewEnumTable but panics on an invalid table. It is
// meant for package-level variables.
func MustEnumTable[E comparable](names map[E]string) *EnumTable[E] {
	t, err := NewEnumTable(names)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the wire string of v.
func (t *EnumTable[E]) Name(v E) (string, bool) {
	name, ok := t.names[v]
	return name, ok
}

// Value returns the enum value stored as name.
func (t *EnumTable[E]) Value(name string) (E, bool) {
	v, ok := t.values[name]
	return v, ok
}

func (t *EnumTable[E]) nameOf(v any) (string, bool) {
	e, ok := v.(E)
	if !ok {
		return "", false
	}
	return t.Name(e)
}

func (t *EnumTable[E]) valueOf(name string) (any, bool) {
	v, ok := t.values[name]
	if !ok {
		return nil, false
	}
	return v, true
}

func errUnmappedEnum(v any) *InfluxError {
	return &InfluxError{
		Number:      ErrCodeUnmappedEnum,
		Message:     errMsgUnmappedEnum,
		MessageArgs: []interface{}{fmt.Sprint(v)},
	}
}
