package anchor

import (
	"fmt"
	"iter"
	"slices"
)

// Entry is a named anchor, as authored in a table literal.
type Entry struct {
	Name string `json:"name" yaml:"name"`
	Spec `yaml:",inline"`
}

// Table is an insertion-ordered, read-only mapping from anchor name to Spec.
// Specs are copied on the way in and on every read.
type Table struct {
	name  string
	order []string
	specs map[string]Spec
}

// NewTable builds a table from entries, keeping their order. Duplicate names
// are a programming error and panic.
func NewTable(name string, entries ...Entry) *Table {
	t := &Table{
		name:  name,
		order: make([]string, 0, len(entries)),
		specs: make(map[string]Spec, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.specs[e.Name]; dup {
			panic(fmt.Sprintf("anchor: duplicate anchor %q in %s", e.Name, name))
		}
		t.order = append(t.order, e.Name)
		t.specs[e.Name] = e.Spec.clone()
	}
	return t
}

// BuildVariant derives a table for a model whose modules are nested one level
// deeper under prefix. Hook kinds and reshape specs are carried over as is.
func BuildVariant(base *Table, prefix string) *Table {
	entries := make([]Entry, 0, base.Len())
	for name, spec := range base.All() {
		spec.Template = prefix + "." + spec.Template
		entries = append(entries, Entry{Name: name, Spec: spec})
	}
	return NewTable(base.name+"/"+prefix, entries...)
}

func (t *Table) Name() string { return t.name }

func (t *Table) Len() int { return len(t.order) }

// Names returns the anchor names in insertion order.
func (t *Table) Names() []string { return slices.Clone(t.order) }

func (t *Table) Has(name string) bool {
	_, ok := t.specs[name]
	return ok
}

// Lookup returns the Spec for name or a *KeyNotFoundError.
func (t *Table) Lookup(name string) (Spec, error) {
	s, ok := t.specs[name]
	if !ok {
		return Spec{}, &KeyNotFoundError{Table: t.name, Key: name}
	}
	return s.clone(), nil
}

// MustLookup is Lookup for names known at compile time.
func (t *Table) MustLookup(name string) Spec {
	s, err := t.Lookup(name)
	if err != nil {
		panic(err)
	}
	return s
}

// All iterates entries in insertion order.
func (t *Table) All() iter.Seq2[string, Spec] {
	return func(yield func(string, Spec) bool) {
		for _, name := range t.order {
			if !yield(name, t.specs[name].clone()) {
				return
			}
		}
	}
}

// Entries returns a snapshot of the table in insertion order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for name, spec := range t.All() {
		out = append(out, Entry{Name: name, Spec: spec})
	}
	return out
}
