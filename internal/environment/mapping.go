package environment

import (
	"fmt"
	"sort"
)

// Value is a variable assignment: either a string to export or an unset.
type Value struct {
	str string
	set bool
}

// Export returns a Value that sets a variable to s.
func Export(s string) Value {
	return Value{str: s, set: true}
}

// Unset returns a Value that removes a variable.
func Unset() Value {
	return Value{}
}

// IsSet reports whether the value exports a string.
func (v Value) IsSet() bool {
	return v.set
}

// String returns the exported string, or "" for an unset.
func (v Value) String() string {
	return v.str
}

// Entry is one variable of a Mapping.
type Entry struct {
	Name  string
	Value Value
}

// Mapping is the set of variable mutations produced by a transition.
// Only the managed variable names are accepted.
type Mapping struct {
	vars map[string]Value
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{vars: make(map[string]Value, len(Names))}
}

// Set records v for name. It panics if name is not a managed variable,
// which indicates a programming error in the transition code.
func (m *Mapping) Set(name string, v Value) *Mapping {
	if !IsManaged(name) {
		panic(fmt.Sprintf("environment: %q is not a managed variable", name))
	}
	m.vars[name] = v
	return m
}

// Get returns the value recorded for name.
func (m *Mapping) Get(name string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vars[name]
	return v, ok
}

// Len returns the number of recorded variables.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.vars)
}

// Entries returns the recorded variables sorted by name, independent of the
// order they were set in.
func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}
	entries := make([]Entry, 0, len(m.vars))
	for name, v := range m.vars {
		entries = append(entries, Entry{Name: name, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// IsManaged reports whether name is one of the variables the tool controls.
func IsManaged(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}
