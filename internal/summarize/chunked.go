package summarize

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/newsdigest/internal/budget"
)

// Chunked splits text that exceeds ChunkTokens on sentence boundaries,
// summarizes each chunk with halved bounds and joins the results. When the
// joined text is still over budget it is summarized once more with the full
// bounds. minLen is clamped to maxLen/2 on every call.
type Chunked struct {
	Inner       Summarizer
	ChunkTokens int
	Logger      zerolog.Logger
}

func (c *Chunked) Name() string { return NameOf(c.Inner) }

func (c *Chunked) budget() int {
	if c.ChunkTokens > 0 {
		return c.ChunkTokens
	}
	return budget.DefaultChunkTokens
}

func (c *Chunked) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	if budget.EstimateTokens(text) <= c.budget() {
		return c.Inner.Summarize(ctx, text, maxLen, clampMin(maxLen, minLen))
	}
	chunks := c.split(text)
	if len(chunks) == 1 {
		return c.Inner.Summarize(ctx, chunks[0], maxLen, clampMin(maxLen, minLen))
	}

	var parts []string
	var lastErr error
	for i, chunk := range chunks {
		s, err := c.Inner.Summarize(ctx, chunk, maxLen/2, clampMin(maxLen/2, minLen/2))
		if err != nil {
			if ctx.Err() != nil {
				return "", &SummarizationError{Op: "chunk", Err: ctx.Err()}
			}
			c.Logger.Warn().Err(err).Int("chunk", i+1).Int("chunks", len(chunks)).Msg("chunk summary failed")
			lastErr = err
			continue
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no chunk summaries")
		}
		return "", &SummarizationError{Op: "chunk", Err: lastErr}
	}
	combined := strings.Join(parts, " ")
	if budget.EstimateTokens(combined) > c.budget() {
		return c.Inner.Summarize(ctx, combined, maxLen, clampMin(maxLen, minLen))
	}
	return combined, nil
}

// split packs whole sentences into chunks under the token budget. A single
// sentence larger than the budget becomes its own chunk.
func (c *Chunked) split(text string) []string {
	var chunks []string
	var cur string
	for _, s := range splitSentences(text) {
		next := s
		if cur != "" {
			next = cur + " " + s
		}
		if budget.EstimateTokens(next) <= c.budget() {
			cur = next
			continue
		}
		if cur != "" {
			chunks = append(chunks, cur)
		}
		cur = s
	}
	if cur != "" {
		chunks = append(chunks, cur)
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

func clampMin(maxLen, minLen int) int {
	if maxLen > 0 && minLen > maxLen/2 {
		return maxLen / 2
	}
	return minLen
}
