// Package anchor maps model-agnostic intervention anchor names onto module
// paths and tensor dimensions of a concrete architecture.
package anchor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samcharles93/intervene/internal/modelpath"
)

// LayerPlaceholder marks where the layer index goes in a module template.
const LayerPlaceholder = "%s"

// SplitHeadAndPermute names the reshape that splits a flat hidden dimension
// into attention heads. The reshape itself is provided by the intervention
// engine.
const SplitHeadAndPermute = "split_head_and_permute"

// HookKind says whether an anchor exposes the value flowing into or out of
// the named module.
type HookKind uint8

const (
	HookInput HookKind = iota + 1
	HookOutput
)

func (k HookKind) String() string {
	switch k {
	case HookInput:
		return "input"
	case HookOutput:
		return "output"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k HookKind) MarshalText() ([]byte, error) {
	if k != HookInput && k != HookOutput {
		return nil, fmt.Errorf("anchor: invalid hook kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *HookKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "input":
		*k = HookInput
	case "output":
		*k = HookOutput
	default:
		return fmt.Errorf("anchor: invalid hook kind %q", b)
	}
	return nil
}

// ReshapeSpec references a reshape capability by name plus the dimension key
// whose resolved size it needs.
type ReshapeSpec struct {
	Func string `json:"func" yaml:"func"`
	Dim  string `json:"dim" yaml:"dim"`
}

// Spec describes one anchor: where it lives and which side of the module is
// hooked.
type Spec struct {
	Template string       `json:"template" yaml:"template"`
	Hook     HookKind     `json:"hook" yaml:"hook"`
	Reshape  *ReshapeSpec `json:"reshape,omitempty" yaml:"reshape,omitempty"`
}

// clone returns s with its own copy of Reshape, so tables never share the
// pointer with callers.
func (s Spec) clone() Spec {
	if s.Reshape != nil {
		r := *s.Reshape
		s.Reshape = &r
	}
	return s
}

// Path substitutes layer into the template.
func (s Spec) Path(layer int) string {
	return strings.Replace(s.Template, LayerPlaceholder, strconv.Itoa(layer), 1)
}

// ParsePath returns the structured module path for layer.
func (s Spec) ParsePath(layer int) (modelpath.Path, error) {
	if layer < 0 {
		return nil, fmt.Errorf("anchor: negative layer %d", layer)
	}
	return modelpath.Parse(s.Path(layer))
}

// ErrKeyNotFound matches every *KeyNotFoundError.
var ErrKeyNotFound = errors.New("anchor: key not found")

// KeyNotFoundError is returned when a table is asked for a key it does not
// hold.
type KeyNotFoundError struct {
	Table string
	Key   string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("anchor: %s has no key %q", e.Table, e.Key)
}

func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}
