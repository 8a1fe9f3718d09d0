// Package models maps checkpoint configs to the anchor registries declared
// under internal/models/<family>.
package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samcharles93/intervene/internal/anchor"
	"github.com/samcharles93/intervene/internal/hfconfig"
	"github.com/samcharles93/intervene/internal/models/qwen"
)

var ErrUnsupportedModel = errors.New("models: unsupported model")

var registries = map[string]*anchor.Registry{
	qwen.ModelType: qwen.Registry,
}

// Families lists the registered model types.
func Families() []string {
	out := make([]string, 0, len(registries))
	for k := range registries {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Lookup returns the registry of a model type.
func Lookup(modelType string) (*anchor.Registry, error) {
	r, ok := registries[strings.ToLower(strings.TrimSpace(modelType))]
	if !ok {
		return nil, &anchor.KeyNotFoundError{Table: "models", Key: modelType}
	}
	return r, nil
}

// Detect picks the registry and variant for cfg. model_type and the
// architecture names are matched by substring so "qwen2" and
// "Qwen2ForCausalLM" land on the qwen tables.
func Detect(cfg *hfconfig.Config) (*anchor.Registry, anchor.Variant, error) {
	if cfg == nil {
		return nil, "", errors.New("models: nil config")
	}
	candidates := []string{cfg.Family()}
	for _, arch := range cfg.Architectures {
		candidates = append(candidates, strings.ToLower(arch))
	}

	for _, family := range Families() {
		for _, c := range candidates {
			if strings.Contains(c, family) {
				return registries[family], anchor.VariantForArchitecture(cfg.Architecture()), nil
			}
		}
	}
	return nil, "", fmt.Errorf("%w: model_type %q, architecture %q", ErrUnsupportedModel, cfg.ModelType, cfg.Architecture())
}
