package qwen

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samcharles93/intervene/internal/hfconfig"
	"github.com/samcharles93/intervene/internal/hub"
	"github.com/samcharles93/intervene/internal/logger"
	"github.com/samcharles93/intervene/internal/modelpath"
	"github.com/samcharles93/intervene/internal/module"
	"github.com/samcharles93/intervene/internal/safetensors"
)

type fakeTokenizer struct{}

func (fakeTokenizer) Encode(string) ([]int, error) { return nil, nil }
func (fakeTokenizer) Decode([]int) string         { return "" }
func (fakeTokenizer) VocabSize() int              { return 0 }

// fakeClient serves a two-layer LM-head checkpoint and fails the resource
// named by failOn.
type fakeClient struct {
	failOn string
	calls  []string
	dtype  safetensors.DType
	name   string
}

func (f *fakeClient) fail(resource, name string) error {
	if f.failOn != resource {
		return nil
	}
	return &hub.ResolutionError{Name: name, Resource: resource, Err: hub.ErrNotFound}
}

func (f *fakeClient) ResolveConfig(_ context.Context, name, _ string) (*hfconfig.Config, error) {
	f.calls = append(f.calls, hub.ResourceConfig)
	f.name = name
	if err := f.fail(hub.ResourceConfig, name); err != nil {
		return nil, err
	}
	return hfconfig.Parse([]byte(`{"model_type":"qwen","architectures":["QWenLMHeadModel"],"num_hidden_layers":2,"hidden_size":8,"num_attention_heads":2}`))
}

func (f *fakeClient) ResolveTokenizer(_ context.Context, name, _ string) (hub.Tokenizer, error) {
	f.calls = append(f.calls, hub.ResourceTokenizer)
	if err := f.fail(hub.ResourceTokenizer, name); err != nil {
		return nil, err
	}
	return fakeTokenizer{}, nil
}

func (f *fakeClient) ResolveModel(_ context.Context, name string, cfg *hfconfig.Config, _ string, dtype safetensors.DType) (*hub.Model, error) {
	f.calls = append(f.calls, hub.ResourceModel)
	f.dtype = dtype
	if err := f.fail(hub.ResourceModel, name); err != nil {
		return nil, err
	}
	root, err := module.Build([]string{
		"transformer.h.0.mlp.w1.weight",
		"transformer.h.0.attn.c_proj.weight",
		"transformer.h.1.mlp.w1.weight",
		"transformer.h.1.attn.c_proj.weight",
	})
	if err != nil {
		return nil, err
	}
	return &hub.Model{Name: name, Config: cfg, DType: dtype, Root: root}, nil
}

func TestCreateDefaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.JSON(&buf, slog.LevelInfo))
	client := &fakeClient{}

	cfg, tok, m, err := Create(ctx, client, "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cfg == nil || tok == nil || m == nil {
		t.Fatal("Create returned a nil component")
	}
	if client.name != DefaultName || client.dtype != safetensors.BF16 {
		t.Fatalf("defaults not applied: name=%q dtype=%q", client.name, client.dtype)
	}
	if diff := cmp.Diff([]string{hub.ResourceConfig, hub.ResourceTokenizer, hub.ResourceModel}, client.calls); diff != "" {
		t.Fatalf("resolution order mismatch (-want +got):\n%s", diff)
	}

	if n := strings.Count(buf.String(), "loaded model"); n != 1 {
		t.Fatalf("expected exactly one success line, got %d in %s", n, buf.String())
	}
	if !strings.Contains(buf.String(), `"dtype":"bfloat16"`) {
		t.Fatalf("success line should name the dtype: %s", buf.String())
	}
}

func TestCreateAttachesActivations(t *testing.T) {
	t.Parallel()

	ctx := logger.WithContext(context.Background(), logger.Discard())
	_, _, m, err := Create(ctx, &fakeClient{}, "Qwen/tiny", "", safetensors.F32)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	spec := LMAnchors.MustLookup("mlp_activation")
	for layer := range 2 {
		p, err := spec.ParsePath(layer)
		if err != nil {
			t.Fatalf("ParsePath: %v", err)
		}
		if _, err := m.Root.Lookup(p); err != nil {
			t.Fatalf("layer %d: %v", layer, err)
		}
	}
	if _, err := m.Root.Lookup(modelpath.MustParse("transformer.h[2].mlp.act")); err == nil {
		t.Fatal("activations must not be attached beyond the checkpoint's layers")
	}
}

func TestCreateFailures(t *testing.T) {
	t.Parallel()

	for _, resource := range []string{hub.ResourceConfig, hub.ResourceTokenizer, hub.ResourceModel} {
		var buf bytes.Buffer
		ctx := logger.WithContext(context.Background(), logger.JSON(&buf, slog.LevelInfo))
		client := &fakeClient{failOn: resource}

		cfg, tok, m, err := Create(ctx, client, "nonexistent/model-xyz", t.TempDir(), "")
		if !errors.Is(err, hub.ErrResolution) {
			t.Fatalf("%s: expected ErrResolution, got %v", resource, err)
		}
		if cfg != nil || tok != nil || m != nil {
			t.Fatalf("%s: partial results returned alongside the error", resource)
		}
		if client.calls[len(client.calls)-1] != resource {
			t.Fatalf("%s: resolution continued after failure: %v", resource, client.calls)
		}
		if strings.Contains(buf.String(), "loaded model") {
			t.Fatalf("%s: success line logged on failure", resource)
		}
	}
}

func TestCreateNonexistentModelThroughHub(t *testing.T) {
	t.Parallel()

	h := &hub.Hub{Fetcher: hub.DirFetcher{Root: t.TempDir()}}
	ctx := logger.WithContext(context.Background(), logger.Discard())
	_, _, _, err := Create(ctx, h, "nonexistent/model-xyz", "", "")
	if !errors.Is(err, hub.ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
}
