// Package hub resolves pretrained configs, tokenizers and checkpoints by
// model name through a pluggable file fetcher.
package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/samcharles93/intervene/internal/hfconfig"
	"github.com/samcharles93/intervene/internal/logger"
	"github.com/samcharles93/intervene/internal/metrics"
	"github.com/samcharles93/intervene/internal/safetensors"
)

// ConfigFile is fetched by ResolveConfig.
const ConfigFile = "config.json"

// Client is the capability a pretrained loader needs from a model hub.
// Every failure matches ErrResolution.
type Client interface {
	ResolveConfig(ctx context.Context, name, cacheDir string) (*hfconfig.Config, error)
	ResolveTokenizer(ctx context.Context, name, cacheDir string) (Tokenizer, error)
	ResolveModel(ctx context.Context, name string, cfg *hfconfig.Config, cacheDir string, dtype safetensors.DType) (*Model, error)
}

// Hub implements Client on top of a Fetcher.
type Hub struct {
	Fetcher       Fetcher
	LoadTokenizer TokenizerLoader
}

var _ Client = (*Hub)(nil)

// New returns a Hub that loads tokenizers with LoadTokenizerFile.
func New(f Fetcher) *Hub {
	return &Hub{Fetcher: f, LoadTokenizer: LoadTokenizerFile}
}

func (h *Hub) fail(name, resource string, err error) error {
	outcome := metrics.OutcomeError
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, ErrUnauthorized):
		outcome = metrics.OutcomeUnauthorized
	}
	metrics.HubResolutions.WithLabelValues(resource, outcome).Inc()
	return &ResolutionError{Name: name, Resource: resource, Err: err}
}

func (h *Hub) ok(resource string) {
	metrics.HubResolutions.WithLabelValues(resource, metrics.OutcomeOK).Inc()
}

func (h *Hub) ResolveConfig(ctx context.Context, name, cacheDir string) (*hfconfig.Config, error) {
	p, err := h.Fetcher.Fetch(ctx, name, ConfigFile, cacheDir)
	if err != nil {
		return nil, h.fail(name, ResourceConfig, err)
	}
	cfg, err := hfconfig.Load(p)
	if err != nil {
		return nil, h.fail(name, ResourceConfig, err)
	}
	h.ok(ResourceConfig)
	return cfg, nil
}

func (h *Hub) ResolveTokenizer(ctx context.Context, name, cacheDir string) (Tokenizer, error) {
	p, err := h.Fetcher.Fetch(ctx, name, TokenizerFile, cacheDir)
	if err != nil {
		return nil, h.fail(name, ResourceTokenizer, err)
	}
	load := h.LoadTokenizer
	if load == nil {
		load = LoadTokenizerFile
	}
	tk, err := load(p)
	if err != nil {
		return nil, h.fail(name, ResourceTokenizer, err)
	}
	h.ok(ResourceTokenizer)
	return tk, nil
}

// ResolveModel fetches the shard index when the checkpoint is sharded, or
// the single weight file otherwise, opens every shard and builds the module
// tree. Tensor data stays on disk until read.
func (h *Hub) ResolveModel(ctx context.Context, name string, cfg *hfconfig.Config, cacheDir string, dtype safetensors.DType) (*Model, error) {
	if !dtype.IsFloat() {
		return nil, h.fail(name, ResourceModel, fmt.Errorf("unsupported loading dtype %q", dtype))
	}
	files, err := h.weightFiles(ctx, name, cacheDir)
	if err != nil {
		return nil, h.fail(name, ResourceModel, err)
	}

	shards := make([]*safetensors.File, 0, len(files))
	closeAll := func() {
		for _, s := range shards {
			_ = s.Close()
		}
	}
	for _, p := range files {
		f, err := safetensors.OpenMapped(p)
		if err != nil {
			closeAll()
			return nil, h.fail(name, ResourceModel, err)
		}
		shards = append(shards, f)
	}

	m, err := newModel(name, cfg, dtype, shards)
	if err != nil {
		closeAll()
		return nil, h.fail(name, ResourceModel, err)
	}
	logger.FromContext(ctx).Debug("opened checkpoint", "model", name, "shards", len(shards), "tensors", len(m.tensors))
	h.ok(ResourceModel)
	return m, nil
}

func (h *Hub) weightFiles(ctx context.Context, name, cacheDir string) ([]string, error) {
	idxPath, err := h.Fetcher.Fetch(ctx, name, safetensors.IndexFileName, cacheDir)
	switch {
	case errors.Is(err, ErrNotFound):
		p, err := h.Fetcher.Fetch(ctx, name, safetensors.SingleFileName, cacheDir)
		if err != nil {
			return nil, err
		}
		return []string{p}, nil
	case err != nil:
		return nil, err
	}

	idx, err := safetensors.ReadIndex(idxPath)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, shard := range idx.Shards() {
		p, err := h.Fetcher.Fetch(ctx, name, shard, cacheDir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
