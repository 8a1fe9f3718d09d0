// Package module rebuilds the module hierarchy of a checkpoint from its
// dotted tensor names so anchor paths can be resolved against it.
package module

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samcharles93/intervene/internal/modelpath"
)

// Module is a node of the hierarchy. A module whose children are all named by
// integers behaves as a list, like a layer stack.
type Module struct {
	name     string
	children map[string]*Module
	order    []string
	params   []string
}

// New returns an empty root module.
func New() *Module {
	return newModule("")
}

func newModule(name string) *Module {
	return &Module{name: name, children: make(map[string]*Module)}
}

// Build creates the hierarchy for tensor names like
// "transformer.h.0.attn.c_proj.weight". The last segment of each name is a
// parameter of the module before it.
func Build(tensorNames []string) (*Module, error) {
	root := New()
	for _, name := range tensorNames {
		if err := root.AddParam(name); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// AddParam registers a dotted tensor name.
func (m *Module) AddParam(tensorName string) error {
	parts := strings.Split(tensorName, ".")
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("module: invalid tensor name %q", tensorName)
		}
	}
	parent := m
	for _, p := range parts[:len(parts)-1] {
		parent = parent.child(p)
	}
	param := parts[len(parts)-1]
	if !slices.Contains(parent.params, param) {
		parent.params = append(parent.params, param)
	}
	return nil
}

// Attach ensures a module exists at p, creating parameter-free modules along
// the way. It is used for modules that hold no weights, such as activations.
func (m *Module) Attach(p modelpath.Path) *Module {
	cur := m
	for _, seg := range p {
		key := seg.Name
		if seg.IsIndex {
			key = strconv.Itoa(seg.Index)
		}
		cur = cur.child(key)
	}
	return cur
}

func (m *Module) child(name string) *Module {
	c, ok := m.children[name]
	if !ok {
		full := name
		if m.name != "" {
			full = m.name + "." + name
		}
		c = newModule(full)
		m.children[name] = c
		m.order = append(m.order, name)
	}
	return c
}

// Name is the dotted path from the root, empty for the root itself.
func (m *Module) Name() string { return m.name }

// Params lists the parameter names held directly by this module.
func (m *Module) Params() []string { return slices.Clone(m.params) }

// ParamNames lists full tensor names of this module's direct parameters.
func (m *Module) ParamNames() []string {
	out := make([]string, len(m.params))
	for i, p := range m.params {
		if m.name == "" {
			out[i] = p
		} else {
			out[i] = m.name + "." + p
		}
	}
	return out
}

// Children lists child names in insertion order.
func (m *Module) Children() []string { return slices.Clone(m.order) }

// IsList reports whether every child is named by an integer.
func (m *Module) IsList() bool {
	if len(m.order) == 0 {
		return false
	}
	for _, name := range m.order {
		if _, err := strconv.Atoi(name); err != nil {
			return false
		}
	}
	return true
}

// Len is the number of list entries, counting from zero to the highest index.
func (m *Module) Len() int {
	if !m.IsList() {
		return 0
	}
	maxIdx := -1
	for _, name := range m.order {
		i, _ := strconv.Atoi(name)
		maxIdx = max(maxIdx, i)
	}
	return maxIdx + 1
}

// Field implements modelpath.FieldAccessor.
func (m *Module) Field(name string) (any, bool) {
	c, ok := m.children[name]
	if !ok {
		return nil, false
	}
	return c, true
}

// Index implements modelpath.IndexAccessor. Only list modules are indexable.
func (m *Module) Index(i int) (any, bool) {
	if i < 0 || !m.IsList() {
		return nil, false
	}
	c, ok := m.children[strconv.Itoa(i)]
	if !ok {
		return nil, false
	}
	return c, true
}

// Lookup resolves p from m and returns the module found there.
func (m *Module) Lookup(p modelpath.Path) (*Module, error) {
	n, err := modelpath.Resolve(m, p)
	if err != nil {
		return nil, err
	}
	return n.(*Module), nil
}

// Walk visits m and its descendants depth first in insertion order. Returning
// false from fn skips the subtree below that module.
func (m *Module) Walk(fn func(*Module) bool) {
	if !fn(m) {
		return
	}
	for _, name := range m.order {
		m.children[name].Walk(fn)
	}
}
