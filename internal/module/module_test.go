package module

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samcharles93/intervene/internal/modelpath"
)

var qwenTensors = []string{
	"transformer.wte.weight",
	"transformer.h.0.ln_1.weight",
	"transformer.h.0.attn.c_attn.weight",
	"transformer.h.0.attn.c_attn.bias",
	"transformer.h.0.attn.c_proj.weight",
	"transformer.h.0.mlp.w1.weight",
	"transformer.h.0.mlp.c_proj.weight",
	"transformer.h.1.attn.c_proj.weight",
	"transformer.h.1.mlp.w1.weight",
	"transformer.ln_f.weight",
	"lm_head.weight",
}

func TestBuild(t *testing.T) {
	t.Parallel()

	root, err := Build(qwenTensors)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]string{"transformer", "lm_head"}, root.Children()); diff != "" {
		t.Fatalf("root children mismatch (-want +got):\n%s", diff)
	}

	h, err := root.Lookup(modelpath.MustParse("transformer.h"))
	if err != nil {
		t.Fatalf("Lookup transformer.h: %v", err)
	}
	if !h.IsList() || h.Len() != 2 {
		t.Fatalf("transformer.h should be a 2-entry list, got list=%v len=%d", h.IsList(), h.Len())
	}

	attn, err := root.Lookup(modelpath.MustParse("transformer.h[0].attn.c_attn"))
	if err != nil {
		t.Fatalf("Lookup c_attn: %v", err)
	}
	if attn.Name() != "transformer.h.0.attn.c_attn" {
		t.Fatalf("unexpected name %q", attn.Name())
	}
	if diff := cmp.Diff([]string{"weight", "bias"}, attn.Params()); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"transformer.h.0.attn.c_attn.weight", "transformer.h.0.attn.c_attn.bias"}, attn.ParamNames()); diff != "" {
		t.Fatalf("param names mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRejectsEmptySegments(t *testing.T) {
	t.Parallel()

	if _, err := Build([]string{"transformer..weight"}); err == nil {
		t.Fatal("expected error for empty segment")
	}
}

func TestLookupFailures(t *testing.T) {
	t.Parallel()

	root, err := Build(qwenTensors)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, p := range []string{"transformer.h[2]", "transformer.h[0].mlp.act", "transformer[0]", "h[0]"} {
		if _, err := root.Lookup(modelpath.MustParse(p)); !errors.Is(err, modelpath.ErrPathResolution) {
			t.Fatalf("Lookup(%q): expected ErrPathResolution, got %v", p, err)
		}
	}
}

func TestAttach(t *testing.T) {
	t.Parallel()

	root, err := Build(qwenTensors)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	act := root.Attach(modelpath.MustParse("transformer.h[1].mlp.act"))
	if act.Name() != "transformer.h.1.mlp.act" {
		t.Fatalf("unexpected attached name %q", act.Name())
	}
	got, err := root.Lookup(modelpath.MustParse("transformer.h.1.mlp.act"))
	if err != nil {
		t.Fatalf("Lookup attached module: %v", err)
	}
	if got != act {
		t.Fatal("Attach should return the module reachable by Lookup")
	}
	if again := root.Attach(modelpath.MustParse("transformer.h[1].mlp.act")); again != act {
		t.Fatal("Attach should be idempotent")
	}
	if len(act.Params()) != 0 {
		t.Fatalf("attached modules hold no params, got %v", act.Params())
	}
}

func TestWalkSkipsSubtree(t *testing.T) {
	t.Parallel()

	root, err := Build(qwenTensors)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var seen []string
	root.Walk(func(m *Module) bool {
		seen = append(seen, m.Name())
		return m.Name() != "transformer.h"
	})
	want := []string{"", "transformer", "transformer.wte", "transformer.h", "transformer.ln_f", "lm_head"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("walk order mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexOnNonList(t *testing.T) {
	t.Parallel()

	root, err := Build(qwenTensors)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := root.Index(0); ok {
		t.Fatal("root is not a list")
	}
	if root.Len() != 0 {
		t.Fatalf("non-list Len should be 0, got %d", root.Len())
	}
}
