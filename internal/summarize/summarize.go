// Package summarize defines the summarization capability used by the
// pipelines together with its backends and decorators.
//
// Backends are chosen at construction time. Decorators (Chunked, Cached)
// wrap any Summarizer and can be stacked.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Summarizer condenses text. maxLen and minLen bound the output length in the
// backend's unit: words for Lead, tokens for OpenAI.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
}

// Namer is implemented by backends that can identify themselves, e.g. for
// cache keys.
type Namer interface {
	Name() string
}

// ErrEmptyInput is returned for blank text.
var ErrEmptyInput = errors.New("empty input")

// SummarizationError wraps every backend failure.
type SummarizationError struct {
	Op  string
	Err error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarize %s: %v", e.Op, e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// Cap returns the first n characters of text. Text of n characters or fewer
// is returned unchanged.
func Cap(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

// NameOf returns s's name or "unknown".
func NameOf(s Summarizer) string {
	if n, ok := s.(Namer); ok {
		return n.Name()
	}
	return "unknown"
}

// splitSentences breaks text after '.', '!' or '?' followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && isSpace(runes[i+1]) {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
