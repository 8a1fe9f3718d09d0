// Package hfconfig reads HF-style config.json files.
package hfconfig

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// Config is the subset of config.json this repo reads by name, plus every
// numeric top-level attribute for dimension lookups.
type Config struct {
	ModelType     string   `json:"model_type"`
	Architectures []string `json:"architectures"`
	TorchDType    string   `json:"torch_dtype"`

	HiddenSize        int `json:"hidden_size"`
	IntermediateSize  int `json:"intermediate_size"`
	NumHiddenLayers   int `json:"num_hidden_layers"`
	NumAttentionHeads int `json:"num_attention_heads"`
	NumKeyValueHeads  int `json:"num_key_value_heads"`
	HeadDim           int `json:"head_dim"`
	VocabSize         int `json:"vocab_size"`
	MaxPosition       int `json:"max_position_embeddings"`

	attrs map[string]int
	raw   []byte
}

// Load reads and parses a config.json file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config.json bytes. Fields missing at the top level are
// filled from a nested text_config, and head counts and head_dim are derived
// when the checkpoint leaves them implicit.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}
	cfg.attrs = numericAttrs(top)
	if textRaw, ok := top["text_config"]; ok && len(textRaw) > 0 {
		var text map[string]json.RawMessage
		if err := json.Unmarshal(textRaw, &text); err != nil {
			return nil, fmt.Errorf("text_config: %w", err)
		}
		for k, v := range numericAttrs(text) {
			if _, ok := cfg.attrs[k]; !ok {
				cfg.attrs[k] = v
			}
		}
	}

	cfg.fillFromAttrs()
	cfg.derive()
	cfg.raw = raw
	return &cfg, nil
}

func numericAttrs(m map[string]json.RawMessage) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		if string(v) == "null" {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			continue
		}
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			continue
		}
		out[k] = int(f)
	}
	return out
}

func (c *Config) fillFromAttrs() {
	fill := func(dst *int, key string) {
		if *dst == 0 {
			*dst = c.attrs[key]
		}
	}
	fill(&c.HiddenSize, "hidden_size")
	fill(&c.IntermediateSize, "intermediate_size")
	fill(&c.NumHiddenLayers, "num_hidden_layers")
	fill(&c.NumAttentionHeads, "num_attention_heads")
	fill(&c.NumKeyValueHeads, "num_key_value_heads")
	fill(&c.HeadDim, "head_dim")
	fill(&c.VocabSize, "vocab_size")
	fill(&c.MaxPosition, "max_position_embeddings")
}

func (c *Config) derive() {
	// Without grouped-query attention every head has its own key/value head.
	if c.NumKeyValueHeads == 0 && c.NumAttentionHeads > 0 {
		c.NumKeyValueHeads = c.NumAttentionHeads
		c.attrs["num_key_value_heads"] = c.NumKeyValueHeads
	}
	if c.HeadDim == 0 && c.NumAttentionHeads > 0 && c.HiddenSize%c.NumAttentionHeads == 0 {
		c.HeadDim = c.HiddenSize / c.NumAttentionHeads
		c.attrs["head_dim"] = c.HeadDim
	}
}

// Attr returns a numeric attribute by its config.json key.
func (c *Config) Attr(name string) (int, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := c.attrs[name]
	return v, ok
}

// Architecture returns the first listed architecture class, if any.
func (c *Config) Architecture() string {
	if c == nil || len(c.Architectures) == 0 {
		return ""
	}
	return c.Architectures[0]
}

// Family returns the lower-cased model_type.
func (c *Config) Family() string {
	if c == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(c.ModelType))
}

// Raw returns the original config bytes.
func (c *Config) Raw() []byte {
	return c.raw
}
