package summarize

import (
	"context"
	"strings"
)

// Lead is a local extractive backend: it keeps the leading sentences of the
// text. Output is deterministic and needs no network.
type Lead struct{}

func (Lead) Name() string { return "lead" }

// Summarize returns whole leading sentences totalling at most maxLen words.
// When stopping at a sentence boundary would leave fewer than minLen words,
// the next sentence is cut at maxLen words instead.
func (Lead) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &SummarizationError{Op: "lead", Err: err}
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", &SummarizationError{Op: "lead", Err: ErrEmptyInput}
	}
	if maxLen <= 0 {
		return text, nil
	}
	var out []string
	n := 0
	for _, s := range splitSentences(text) {
		words := strings.Fields(s)
		if n+len(words) > maxLen {
			if n >= minLen && n > 0 {
				break
			}
			if rest := maxLen - n; rest > 0 {
				out = append(out, strings.Join(words[:rest], " "))
			}
			break
		}
		out = append(out, s)
		n += len(words)
	}
	return strings.Join(out, " "), nil
}
