package qwen

import (
	"context"

	"github.com/samcharles93/intervene/internal/anchor"
	"github.com/samcharles93/intervene/internal/hfconfig"
	"github.com/samcharles93/intervene/internal/hub"
	"github.com/samcharles93/intervene/internal/logger"
	"github.com/samcharles93/intervene/internal/metrics"
	"github.com/samcharles93/intervene/internal/safetensors"
)

const (
	DefaultName  = "Qwen/Qwen2.5-0.5B"
	DefaultDType = safetensors.BF16
)

// Create loads config, tokenizer and model for name, in that order. An empty
// name or dtype selects the defaults. The first resolution error is
// returned as is and nothing else is returned with it.
func Create(ctx context.Context, client hub.Client, name, cacheDir string, dtype safetensors.DType) (*hfconfig.Config, hub.Tokenizer, *hub.Model, error) {
	if name == "" {
		name = DefaultName
	}
	if dtype == "" {
		dtype = DefaultDType
	}

	cfg, err := client.ResolveConfig(ctx, name, cacheDir)
	if err != nil {
		return nil, nil, nil, err
	}
	tok, err := client.ResolveTokenizer(ctx, name, cacheDir)
	if err != nil {
		return nil, nil, nil, err
	}
	m, err := client.ResolveModel(ctx, name, cfg, cacheDir, dtype)
	if err != nil {
		return nil, nil, nil, err
	}

	variant := anchor.VariantForArchitecture(cfg.Architecture())
	AttachActivations(m, variant, cfg.NumHiddenLayers)
	metrics.ModelLoads.WithLabelValues(ModelType, string(variant)).Inc()
	logger.FromContext(ctx).Info("loaded model",
		"model", name,
		"dtype", dtype.TorchName(),
		"variant", variant,
		"layers", cfg.NumHiddenLayers,
	)
	return cfg, tok, m, nil
}

// AttachActivations adds the parameter-free mlp.act module of every layer so
// the mlp_activation anchor resolves against the loaded tree. Layers whose
// mlp is absent from the checkpoint are left alone.
func AttachActivations(m *hub.Model, v anchor.Variant, layers int) {
	if m == nil || m.Root == nil {
		return
	}
	spec, err := Registry.Lookup(v, "mlp_activation")
	if err != nil {
		return
	}
	for i := range layers {
		p, err := spec.ParsePath(i)
		if err != nil || len(p) < 2 {
			continue
		}
		if _, err := m.Root.Lookup(p[:len(p)-1]); err != nil {
			continue
		}
		m.Root.Attach(p)
	}
}
