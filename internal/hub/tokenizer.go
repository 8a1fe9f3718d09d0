package hub

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// TokenizerFile is the HF tokenizers serialization fetched for every model.
const TokenizerFile = "tokenizer.json"

type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) string
	VocabSize() int
}

// TokenizerLoader builds a Tokenizer from a local tokenizer.json.
type TokenizerLoader func(path string) (Tokenizer, error)

type pretrainedTokenizer struct {
	tk *tokenizer.Tokenizer
}

// LoadTokenizerFile parses tokenizer.json with sugarme/tokenizer.
func LoadTokenizerFile(path string) (Tokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return &pretrainedTokenizer{tk: tk}, nil
}

// Encode returns token ids without adding special tokens.
func (t *pretrainedTokenizer) Encode(text string) ([]int, error) {
	enc, err := t.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, err
	}
	return enc.Ids, nil
}

func (t *pretrainedTokenizer) Decode(ids []int) string {
	return t.tk.Decode(ids, true)
}

func (t *pretrainedTokenizer) VocabSize() int {
	return t.tk.GetVocabSize(true)
}
