package anchor

import (
	"errors"
	"fmt"
	"strings"
)

// Variant selects which head the model carries, which decides how deep its
// transformer blocks are nested.
type Variant string

const (
	VariantBase       Variant = "base"
	VariantLM         Variant = "lm"
	VariantClassifier Variant = "classifier"
)

// Variants lists the known variants in a stable order.
func Variants() []Variant {
	return []Variant{VariantBase, VariantLM, VariantClassifier}
}

// ParseVariant accepts the variant names plus a few common aliases.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "base", "model":
		return VariantBase, nil
	case "lm", "lm_head", "lm-head", "causal_lm", "causal-lm":
		return VariantLM, nil
	case "classifier", "cls", "sequence_classification", "sequence-classification":
		return VariantClassifier, nil
	default:
		return "", fmt.Errorf("anchor: unknown variant %q", s)
	}
}

// VariantForArchitecture maps an HF architecture class name (as listed under
// "architectures" in config.json) to a Variant.
func VariantForArchitecture(arch string) Variant {
	switch {
	case strings.HasSuffix(arch, "LMHeadModel"), strings.HasSuffix(arch, "ForCausalLM"):
		return VariantLM
	case strings.HasSuffix(arch, "ForSequenceClassification"):
		return VariantClassifier
	default:
		return VariantBase
	}
}

// Pair holds the anchor and dimension tables of one variant.
type Pair struct {
	Anchors *Table
	Dims    *DimensionTable
}

// Registry is the immutable set of variant tables for one model family.
type Registry struct {
	model string
	pairs map[Variant]Pair
}

// NewRegistry builds a registry. Every variant returned by Variants must be
// present.
func NewRegistry(model string, pairs map[Variant]Pair) *Registry {
	r := &Registry{model: model, pairs: make(map[Variant]Pair, len(pairs))}
	for _, v := range Variants() {
		p, ok := pairs[v]
		if !ok || p.Anchors == nil || p.Dims == nil {
			panic(fmt.Sprintf("anchor: registry %s is missing variant %s", model, v))
		}
		r.pairs[v] = p
	}
	return r
}

func (r *Registry) Model() string { return r.model }

// Pair returns the tables for v.
func (r *Registry) Pair(v Variant) (Pair, error) {
	p, ok := r.pairs[v]
	if !ok {
		return Pair{}, &KeyNotFoundError{Table: r.model + " variants", Key: string(v)}
	}
	return p, nil
}

// Lookup returns the anchor spec for name in variant v.
func (r *Registry) Lookup(v Variant, name string) (Spec, error) {
	p, err := r.Pair(v)
	if err != nil {
		return Spec{}, err
	}
	return p.Anchors.Lookup(name)
}

// Validate checks that every anchor has a dimension entry and that every
// reshape references a known dimension key.
func (r *Registry) Validate() error {
	var errs []error
	for _, v := range Variants() {
		p := r.pairs[v]
		for name, spec := range p.Anchors.All() {
			if !p.Dims.Has(name) {
				errs = append(errs, fmt.Errorf("%s/%s: anchor %q has no dimension", r.model, v, name))
			}
			if spec.Hook != HookInput && spec.Hook != HookOutput {
				errs = append(errs, fmt.Errorf("%s/%s: anchor %q has invalid hook kind", r.model, v, name))
			}
			if strings.Count(spec.Template, LayerPlaceholder) != 1 {
				errs = append(errs, fmt.Errorf("%s/%s: anchor %q template %q needs one layer placeholder", r.model, v, name, spec.Template))
			}
			if spec.Reshape != nil && !p.Dims.Has(spec.Reshape.Dim) {
				errs = append(errs, fmt.Errorf("%s/%s: anchor %q reshape needs unknown dimension %q", r.model, v, name, spec.Reshape.Dim))
			}
		}
	}
	return errors.Join(errs...)
}

// Resolved is an anchor bound to a layer and, optionally, to a config.
type Resolved struct {
	Model   string       `json:"model" yaml:"model"`
	Variant Variant      `json:"variant" yaml:"variant"`
	Anchor  string       `json:"anchor" yaml:"anchor"`
	Layer   int          `json:"layer" yaml:"layer"`
	Path    string       `json:"path" yaml:"path"`
	Hook    HookKind     `json:"hook" yaml:"hook"`
	Reshape *ReshapeSpec `json:"reshape,omitempty" yaml:"reshape,omitempty"`
	Size    int          `json:"size,omitempty" yaml:"size,omitempty"`
	Heads   int          `json:"heads,omitempty" yaml:"heads,omitempty"`
}

// Describe binds anchor name of variant v to layer. When src is non-nil the
// tensor size and, for reshaped anchors, the head count are resolved too.
func (r *Registry) Describe(v Variant, name string, layer int, src AttrSource) (Resolved, error) {
	p, err := r.Pair(v)
	if err != nil {
		return Resolved{}, err
	}
	spec, err := p.Anchors.Lookup(name)
	if err != nil {
		return Resolved{}, err
	}
	path, err := spec.ParsePath(layer)
	if err != nil {
		return Resolved{}, fmt.Errorf("anchor %q: %w", name, err)
	}
	out := Resolved{
		Model:   r.model,
		Variant: v,
		Anchor:  name,
		Layer:   layer,
		Path:    path.String(),
		Hook:    spec.Hook,
		Reshape: spec.Reshape,
	}
	if src == nil {
		return out, nil
	}
	if out.Size, err = p.Dims.Resolve(name, src); err != nil {
		return Resolved{}, err
	}
	if spec.Reshape != nil {
		if out.Heads, err = p.Dims.Resolve(spec.Reshape.Dim, src); err != nil {
			return Resolved{}, err
		}
	}
	return out, nil
}
