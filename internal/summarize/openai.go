package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/newsdigest/internal/llm"
)

const systemPrompt = "You summarize news articles. Reply with the summary only: plain prose, no preamble, no lists, no markdown. Stay factual and do not add information that is not in the text."

// OpenAI summarizes through any OpenAI-compatible chat completion endpoint.
// maxLen is sent as max_tokens.
type OpenAI struct {
	Client      llm.Client
	Model       string
	Temperature float32
	Logger      zerolog.Logger
}

func (o *OpenAI) Name() string { return "openai:" + o.Model }

// SystemPrompt is exposed so callers can budget prompt tokens.
func (o *OpenAI) SystemPrompt() string { return systemPrompt }

func (o *OpenAI) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &SummarizationError{Op: "openai", Err: ErrEmptyInput}
	}
	if o.Client == nil {
		return "", &SummarizationError{Op: "openai", Err: errors.New("no client configured")}
	}
	user := fmt.Sprintf("Summarize the following text in roughly %d to %d tokens.\n\n%s", minLen, maxLen, text)
	req := openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: o.Temperature,
		N:           1,
	}
	if maxLen > 0 {
		req.MaxTokens = maxLen
	}
	resp, err := o.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &SummarizationError{Op: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &SummarizationError{Op: "openai", Err: errors.New("no choices returned")}
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", &SummarizationError{Op: "openai", Err: errors.New("empty completion")}
	}
	o.Logger.Debug().Str("model", o.Model).Int("in_chars", len(text)).Int("out_chars", len(out)).Msg("summary generated")
	return out, nil
}
