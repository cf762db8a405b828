// Package budget estimates token counts so long article text can be split
// into chunks a summarization backend will accept.
package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultChunkTokens matches the input window of common encoder-decoder
// summarization models (1024) minus room for special tokens.
const DefaultChunkTokens = 974

// EstimateTokensFromChars uses ~4 characters per token and rounds up.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of s, counting characters
// rather than bytes.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// ModelContextTokens returns a rough context window for modelName. Unknown
// models get a conservative 8192.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	switch {
	case strings.HasSuffix(name, "200k"):
		return 200_000
	case strings.HasSuffix(name, "128k"), strings.Contains(name, "-mini"):
		return 128_000
	case strings.HasSuffix(name, "32k"):
		return 32_768
	}
	return 8192
}

// HeadroomTokens is the larger of 5% of the model context and 512 tokens.
func HeadroomTokens(modelName string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// ChunkTokens returns how many input tokens one request to modelName may
// carry after reserving output and prompt tokens plus headroom. It never
// returns less than DefaultChunkTokens.
func ChunkTokens(modelName string, reservedForOutput int, promptTokens int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := ModelContextTokens(modelName) - HeadroomTokens(modelName) - reservedForOutput - promptTokens
	if remaining < DefaultChunkTokens {
		return DefaultChunkTokens
	}
	return remaining
}

var knownModelMax = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-3.5-turbo": 16_384,
	"llama-3":       8_192,
	"llama-3.1":     128_000,
	"mistral":       32_768,
	"qwen2.5":       32_768,
}
