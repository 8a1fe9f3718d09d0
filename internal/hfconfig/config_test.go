package hfconfig

import (
	"os"
	"path/filepath"
	"testing"
)

const qwenConfig = `{
  "architectures": ["QWenLMHeadModel"],
  "model_type": "qwen",
  "hidden_size": 2048,
  "intermediate_size": 11008,
  "num_attention_heads": 16,
  "num_hidden_layers": 24,
  "kv_channels": 128,
  "layer_norm_epsilon": 1e-06,
  "rotary_pct": 1.0,
  "sliding_window": null,
  "use_flash_attn": "auto",
  "torch_dtype": "bfloat16"
}`

func TestParseDerivesHeadFields(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(qwenConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Family() != "qwen" {
		t.Fatalf("unexpected family %q", cfg.Family())
	}
	if cfg.Architecture() != "QWenLMHeadModel" {
		t.Fatalf("unexpected architecture %q", cfg.Architecture())
	}
	if cfg.NumKeyValueHeads != 16 {
		t.Fatalf("num_key_value_heads should default to num_attention_heads, got %d", cfg.NumKeyValueHeads)
	}
	if cfg.HeadDim != 128 {
		t.Fatalf("head_dim should be hidden_size/num_attention_heads, got %d", cfg.HeadDim)
	}

	tests := map[string]int{
		"hidden_size":         2048,
		"intermediate_size":   11008,
		"num_key_value_heads": 16,
		"head_dim":            128,
		"kv_channels":         128,
		"rotary_pct":          1,
	}
	for key, want := range tests {
		got, ok := cfg.Attr(key)
		if !ok || got != want {
			t.Fatalf("Attr(%q): got (%d, %v) want %d", key, got, ok, want)
		}
	}
	for _, key := range []string{"layer_norm_epsilon", "sliding_window", "use_flash_attn", "architectures", "missing"} {
		if _, ok := cfg.Attr(key); ok {
			t.Fatalf("Attr(%q) should not resolve", key)
		}
	}
}

func TestParseExplicitValuesWin(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`{"model_type":"qwen2","hidden_size":896,"num_attention_heads":14,"num_key_value_heads":2,"head_dim":96}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.NumKeyValueHeads != 2 || cfg.HeadDim != 96 {
		t.Fatalf("explicit values overwritten: kv=%d head_dim=%d", cfg.NumKeyValueHeads, cfg.HeadDim)
	}
}

func TestParseTextConfigFallback(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`{"model_type":"wrapper","vocab_size":10,"text_config":{"hidden_size":512,"num_attention_heads":8,"vocab_size":99}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HiddenSize != 512 || cfg.NumAttentionHeads != 8 {
		t.Fatalf("text_config not merged: %+v", cfg)
	}
	if cfg.VocabSize != 10 {
		t.Fatalf("top-level value must win over text_config, got %d", cfg.VocabSize)
	}
	if cfg.HeadDim != 64 {
		t.Fatalf("unexpected derived head_dim %d", cfg.HeadDim)
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte(`{"hidden_size":`)); err == nil {
		t.Fatal("expected error for truncated json")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(qwenConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(cfg.Raw()) != qwenConfig {
		t.Fatal("Raw should return the original bytes")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
