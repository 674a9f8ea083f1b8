// Package tokens approximates token counts and input budgets per model.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator returns an approximate token count for text under the given
// model. Pure function shape so callers can substitute a fake in tests.
type Estimator func(model, text string) int

// charsPerToken is the fallback heuristic (~4 chars per token for English)
// used when no tokenizer is available for the model.
const charsPerToken = 4

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

func baseCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.O200kBase)
		if err != nil {
			return
		}
		codec = c
	})
	return codec
}

// Estimate counts tokens for text. It prefers a tokenizer matched to the
// model, falls back to the o200k base encoding, and finally to the chars/4
// heuristic. Never fails.
func Estimate(model, text string) int {
	if text == "" {
		return 0
	}

	if enc, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
		if ids, _, err := enc.Encode(text); err == nil {
			return len(ids)
		}
	}
	if enc := baseCodec(); enc != nil {
		if ids, _, err := enc.Encode(text); err == nil {
			return len(ids)
		}
	}
	return heuristic(text)
}

func heuristic(text string) int {
	n := len(text) / charsPerToken
	if n == 0 {
		n = 1
	}
	return n
}

// inputLimits maps model identifier prefixes to input-token budgets.
// Longest prefix wins.
var inputLimits = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4.1":       1_000_000,
	"gpt-4":         8_192,
	"gpt-3.5-turbo": 16_385,
	"o3":            200_000,
	"claude-3":      200_000,
	"claude-sonnet": 200_000,
	"claude-opus":   200_000,
	"claude-haiku":  200_000,
	"llama3":        8_192,
	"llama3.1":      128_000,
}

// defaultInputLimit is the conservative budget for unknown models.
const defaultInputLimit = 8_192

// InputLimit returns the input-token budget for a model identifier.
func InputLimit(model string) int {
	best, limit := 0, defaultInputLimit
	for prefix, l := range inputLimits {
		if strings.HasPrefix(model, prefix) && len(prefix) > best {
			best, limit = len(prefix), l
		}
	}
	return limit
}
