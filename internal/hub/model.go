package hub

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samcharles93/intervene/internal/hfconfig"
	"github.com/samcharles93/intervene/internal/module"
	"github.com/samcharles93/intervene/internal/safetensors"
)

// Model is a resolved checkpoint: its module tree plus open shard headers.
// Tensor data is read lazily and converted to DType.
type Model struct {
	Name   string
	Config *hfconfig.Config
	DType  safetensors.DType
	Root   *module.Module

	shards  []*safetensors.File
	tensors map[string]*safetensors.File
}

func newModel(name string, cfg *hfconfig.Config, dtype safetensors.DType, shards []*safetensors.File) (*Model, error) {
	m := &Model{
		Name:    name,
		Config:  cfg,
		DType:   dtype,
		shards:  shards,
		tensors: make(map[string]*safetensors.File),
	}
	var names []string
	for _, f := range shards {
		for _, n := range f.Names() {
			if _, dup := m.tensors[n]; dup {
				return nil, fmt.Errorf("tensor %q appears in more than one shard", n)
			}
			m.tensors[n] = f
			names = append(names, n)
		}
	}
	root, err := module.Build(names)
	if err != nil {
		return nil, err
	}
	m.Root = root
	return m, nil
}

// Tensors lists every tensor name in sorted order.
func (m *Model) Tensors() []string {
	out := make([]string, 0, len(m.tensors))
	for n := range m.tensors {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Parameter reads a tensor converted to the model's loading dtype.
func (m *Model) Parameter(name string) ([]byte, safetensors.TensorInfo, error) {
	f, ok := m.tensors[name]
	if !ok {
		return nil, safetensors.TensorInfo{}, fmt.Errorf("parameter %q not found", name)
	}
	return f.ReadTensorAs(name, m.DType)
}

// Close releases every shard.
func (m *Model) Close() error {
	var errs []error
	for _, f := range m.shards {
		errs = append(errs, f.Close())
	}
	m.shards = nil
	return errors.Join(errs...)
}
