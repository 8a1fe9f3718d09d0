package safetensors

import (
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-json"
)

// IndexFileName is the shard index written next to sharded checkpoints.
const IndexFileName = "model.safetensors.index.json"

// SingleFileName is the weight file of an unsharded checkpoint.
const SingleFileName = "model.safetensors"

// Index maps tensor names to the shard file holding them.
type Index struct {
	Metadata  map[string]any    `json:"metadata"`
	WeightMap map[string]string `json:"weight_map"`
}

func ReadIndex(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseIndex(raw)
}

func ParseIndex(raw []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	if len(idx.WeightMap) == 0 {
		return nil, fmt.Errorf("parse index: empty weight_map")
	}
	return &idx, nil
}

// Shards returns the distinct shard file names in sorted order.
func (idx *Index) Shards() []string {
	var out []string
	for _, shard := range idx.WeightMap {
		if !slices.Contains(out, shard) {
			out = append(out, shard)
		}
	}
	slices.Sort(out)
	return out
}
