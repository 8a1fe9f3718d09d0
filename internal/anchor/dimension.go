package anchor

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ErrUnresolvedDimension is returned when none of a dimension's proposals can
// be evaluated against the given config.
var ErrUnresolvedDimension = errors.New("anchor: dimension could not be resolved")

// AttrSource exposes numeric model config attributes by their config.json
// name.
type AttrSource interface {
	Attr(name string) (int, bool)
}

// DimensionSpec lists the config proposals for a dimension, tried in order.
// A proposal is an attribute name, an integer literal, or "a*b" / "a/b" over
// those.
type DimensionSpec []string

// DimensionEntry is a named DimensionSpec, as authored in a table literal.
type DimensionEntry struct {
	Name      string        `json:"name" yaml:"name"`
	Proposals DimensionSpec `json:"proposals" yaml:"proposals"`
}

// DimensionTable is an insertion-ordered, read-only mapping from dimension
// key to DimensionSpec.
type DimensionTable struct {
	name  string
	order []string
	dims  map[string]DimensionSpec
}

// NewDimensionTable builds a dimension table. Duplicate or empty entries
// panic.
func NewDimensionTable(name string, entries ...DimensionEntry) *DimensionTable {
	d := &DimensionTable{
		name:  name,
		order: make([]string, 0, len(entries)),
		dims:  make(map[string]DimensionSpec, len(entries)),
	}
	for _, e := range entries {
		if _, dup := d.dims[e.Name]; dup {
			panic(fmt.Sprintf("anchor: duplicate dimension %q in %s", e.Name, name))
		}
		if len(e.Proposals) == 0 {
			panic(fmt.Sprintf("anchor: dimension %q in %s has no proposals", e.Name, name))
		}
		d.order = append(d.order, e.Name)
		d.dims[e.Name] = slices.Clone(e.Proposals)
	}
	return d
}

func (d *DimensionTable) Name() string { return d.name }

func (d *DimensionTable) Len() int { return len(d.order) }

func (d *DimensionTable) Names() []string { return slices.Clone(d.order) }

func (d *DimensionTable) Has(key string) bool {
	_, ok := d.dims[key]
	return ok
}

// Lookup returns a copy of the proposals for key or a *KeyNotFoundError.
func (d *DimensionTable) Lookup(key string) (DimensionSpec, error) {
	spec, ok := d.dims[key]
	if !ok {
		return nil, &KeyNotFoundError{Table: d.name, Key: key}
	}
	return slices.Clone(spec), nil
}

func (d *DimensionTable) MustLookup(key string) DimensionSpec {
	spec, err := d.Lookup(key)
	if err != nil {
		panic(err)
	}
	return spec
}

func (d *DimensionTable) All() iter.Seq2[string, DimensionSpec] {
	return func(yield func(string, DimensionSpec) bool) {
		for _, key := range d.order {
			if !yield(key, slices.Clone(d.dims[key])) {
				return
			}
		}
	}
}

func (d *DimensionTable) Entries() []DimensionEntry {
	out := make([]DimensionEntry, 0, len(d.order))
	for key, spec := range d.All() {
		out = append(out, DimensionEntry{Name: key, Proposals: spec})
	}
	return out
}

// Resolve evaluates the proposals for key against src and returns the first
// one that yields a positive size.
func (d *DimensionTable) Resolve(key string, src AttrSource) (int, error) {
	spec, ok := d.dims[key]
	if !ok {
		return 0, &KeyNotFoundError{Table: d.name, Key: key}
	}
	for _, p := range spec {
		if v, ok := evalProposal(p, src); ok && v > 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %s (tried %s)", ErrUnresolvedDimension, key, strings.Join(spec, ", "))
}

func evalProposal(p string, src AttrSource) (int, bool) {
	p = strings.TrimSpace(p)
	if l, r, ok := strings.Cut(p, "*"); ok {
		a, okA := evalOperand(l, src)
		b, okB := evalOperand(r, src)
		if !okA || !okB || (a > 0 && b > math.MaxInt/a) {
			return 0, false
		}
		return a * b, true
	}
	if l, r, ok := strings.Cut(p, "/"); ok {
		a, okA := evalOperand(l, src)
		b, okB := evalOperand(r, src)
		if !okA || !okB || b == 0 {
			return 0, false
		}
		return a / b, true
	}
	return evalOperand(p, src)
}

func evalOperand(s string, src AttrSource) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		if src == nil {
			return 0, false
		}
		var ok bool
		if n, ok = src.Attr(s); !ok {
			return 0, false
		}
	}
	// Sizes are never negative.
	if n < 0 {
		return 0, false
	}
	return n, true
}
