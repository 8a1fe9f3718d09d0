// Package qwen declares the intervention anchors of the Qwen causal language
// model and loads pretrained Qwen checkpoints from a model hub.
package qwen

import (
	"github.com/samcharles93/intervene/internal/anchor"
)

// ModelType is the config.json model_type handled here.
const ModelType = "qwen"

// TransformerPrefix is where the base model lives inside the LM-head and
// classifier-head wrappers.
const TransformerPrefix = "transformer"

func splitHeads(dim string) *anchor.ReshapeSpec {
	return &anchor.ReshapeSpec{Func: anchor.SplitHeadAndPermute, Dim: dim}
}

// Anchors is the base model anchor table.
var Anchors = anchor.NewTable(ModelType,
	anchor.Entry{Name: "block_input", Spec: anchor.Spec{Template: "h[%s]", Hook: anchor.HookInput}},
	anchor.Entry{Name: "block_output", Spec: anchor.Spec{Template: "h[%s]", Hook: anchor.HookOutput}},
	anchor.Entry{Name: "mlp_activation", Spec: anchor.Spec{Template: "h[%s].mlp.act", Hook: anchor.HookOutput}},
	anchor.Entry{Name: "mlp_output", Spec: anchor.Spec{Template: "h[%s].mlp", Hook: anchor.HookOutput}},
	anchor.Entry{Name: "mlp_input", Spec: anchor.Spec{Template: "h[%s].mlp", Hook: anchor.HookInput}},
	anchor.Entry{Name: "attention_value_output", Spec: anchor.Spec{Template: "h[%s].attn.c_proj", Hook: anchor.HookInput}},
	anchor.Entry{Name: "head_attention_value_output", Spec: anchor.Spec{Template: "h[%s].attn.c_proj", Hook: anchor.HookInput, Reshape: splitHeads("n_head")}},
	anchor.Entry{Name: "attention_output", Spec: anchor.Spec{Template: "h[%s].attn", Hook: anchor.HookOutput}},
	anchor.Entry{Name: "attention_input", Spec: anchor.Spec{Template: "h[%s].attn", Hook: anchor.HookInput}},
	anchor.Entry{Name: "query_output", Spec: anchor.Spec{Template: "h[%s].attn.q_proj", Hook: anchor.HookOutput}},
	anchor.Entry{Name: "key_output", Spec: anchor.Spec{Template: "h[%s].attn.k_proj", Hook: anchor.HookOutput}},
	anchor.Entry{Name: "value_output", Spec: anchor.Spec{Template: "h[%s].attn.v_proj", Hook: anchor.HookOutput}},
	anchor.Entry{Name: "head_query_output", Spec: anchor.Spec{Template: "h[%s].attn.q_proj", Hook: anchor.HookOutput, Reshape: splitHeads("n_head")}},
	anchor.Entry{Name: "head_key_output", Spec: anchor.Spec{Template: "h[%s].attn.k_proj", Hook: anchor.HookOutput, Reshape: splitHeads("n_kv_head")}},
	anchor.Entry{Name: "head_value_output", Spec: anchor.Spec{Template: "h[%s].attn.v_proj", Hook: anchor.HookOutput, Reshape: splitHeads("n_kv_head")}},
)

// Dimensions maps anchors, plus the head counts "n_head" and "n_kv_head", to
// the config attributes that size them.
var Dimensions = anchor.NewDimensionTable(ModelType,
	anchor.DimensionEntry{Name: "n_head", Proposals: anchor.DimensionSpec{"num_attention_heads"}},
	anchor.DimensionEntry{Name: "n_kv_head", Proposals: anchor.DimensionSpec{"num_key_value_heads"}},
	anchor.DimensionEntry{Name: "block_input", Proposals: anchor.DimensionSpec{"hidden_size"}},
	anchor.DimensionEntry{Name: "block_output", Proposals: anchor.DimensionSpec{"hidden_size"}},
	anchor.DimensionEntry{Name: "mlp_activation", Proposals: anchor.DimensionSpec{"intermediate_size"}},
	anchor.DimensionEntry{Name: "mlp_output", Proposals: anchor.DimensionSpec{"hidden_size"}},
	anchor.DimensionEntry{Name: "mlp_input", Proposals: anchor.DimensionSpec{"hidden_size"}},
	anchor.DimensionEntry{Name: "attention_value_output", Proposals: anchor.DimensionSpec{"hidden_size"}},
	anchor.DimensionEntry{Name: "head_attention_value_output", Proposals: anchor.DimensionSpec{"head_dim"}},
	anchor.DimensionEntry{Name: "attention_output", Proposals: anchor.DimensionSpec{"hidden_size"}},
	anchor.DimensionEntry{Name: "attention_input", Proposals: anchor.DimensionSpec{"hidden_size"}},
	anchor.DimensionEntry{Name: "query_output", Proposals: anchor.DimensionSpec{"hidden_size"}},
	anchor.DimensionEntry{Name: "key_output", Proposals: anchor.DimensionSpec{"hidden_size"}},
	anchor.DimensionEntry{Name: "value_output", Proposals: anchor.DimensionSpec{"hidden_size"}},
	anchor.DimensionEntry{Name: "head_query_output", Proposals: anchor.DimensionSpec{"head_dim"}},
	anchor.DimensionEntry{Name: "head_key_output", Proposals: anchor.DimensionSpec{"head_dim"}},
	anchor.DimensionEntry{Name: "head_value_output", Proposals: anchor.DimensionSpec{"head_dim"}},
)

// LM-head model (QWenLMHeadModel).
var (
	LMAnchors    = anchor.BuildVariant(Anchors, TransformerPrefix)
	LMDimensions = Dimensions
)

// Classifier-head model.
var (
	ClassifierAnchors    = anchor.BuildVariant(Anchors, TransformerPrefix)
	ClassifierDimensions = Dimensions
)

// Registry bundles the three variants.
var Registry = anchor.NewRegistry(ModelType, map[anchor.Variant]anchor.Pair{
	anchor.VariantBase:       {Anchors: Anchors, Dims: Dimensions},
	anchor.VariantLM:         {Anchors: LMAnchors, Dims: LMDimensions},
	anchor.VariantClassifier: {Anchors: ClassifierAnchors, Dims: ClassifierDimensions},
})
