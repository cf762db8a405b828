package summarize

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/newsdigest/internal/cache"
)

type call struct {
	text           string
	maxLen, minLen int
}

type recorder struct {
	mu    sync.Mutex
	calls []call
	fail  func(text string) bool
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Summarize(_ context.Context, text string, maxLen, minLen int) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{text, maxLen, minLen})
	n := len(r.calls)
	r.mu.Unlock()
	if r.fail != nil && r.fail(text) {
		return "", &SummarizationError{Op: "recorder", Err: errors.New("boom")}
	}
	return "S" + strconv.Itoa(n), nil
}

func TestCap(t *testing.T) {
	long := strings.Repeat("abcdefghij ", 200)
	got := Cap(long, 1000)
	assert.Equal(t, 1000, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(long, got))
	assert.Equal(t, "short", Cap("short", 1000))
	assert.Equal(t, "ää", Cap("äää", 2))
}

func TestLead_KeepsLeadingSentencesWithinMax(t *testing.T) {
	text := "One two three. Four five six. Seven eight nine ten. Eleven."
	got, err := Lead{}.Summarize(context.Background(), text, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, "One two three. Four five six.", got)
}

func TestLead_CutsSentenceToReachMinimum(t *testing.T) {
	text := "Alpha beta gamma delta epsilon zeta eta theta. Short one."
	got, err := Lead{}.Summarize(context.Background(), text, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, "Alpha beta gamma delta epsilon", got)
}

func TestLead_EmptyInput(t *testing.T) {
	_, err := Lead{}.Summarize(context.Background(), "   ", 10, 5)
	var se *SummarizationError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestChunked_ShortTextPassesThroughWithClampedMin(t *testing.T) {
	r := &recorder{}
	c := &Chunked{Inner: r, ChunkTokens: 100, Logger: zerolog.Nop()}
	_, err := c.Summarize(context.Background(), "A short text.", 40, 30)
	require.NoError(t, err)
	require.Len(t, r.calls, 1)
	assert.Equal(t, call{"A short text.", 40, 20}, r.calls[0])
}

func TestChunked_SplitsAndHalvesBounds(t *testing.T) {
	sentence := strings.Repeat("x", 36) + "."
	text := strings.Join([]string{sentence, sentence, sentence, sentence}, " ")
	r := &recorder{}
	c := &Chunked{Inner: r, ChunkTokens: 20, Logger: zerolog.Nop()}

	got, err := c.Summarize(context.Background(), text, 100, 30)
	require.NoError(t, err)
	require.Len(t, r.calls, 2, "two sentences fit in each chunk")
	for _, cl := range r.calls {
		assert.Equal(t, 50, cl.maxLen)
		assert.Equal(t, 15, cl.minLen)
		assert.Equal(t, sentence+" "+sentence, cl.text)
	}
	assert.Equal(t, "S1 S2", got)
}

func TestChunked_SkipsFailedChunks(t *testing.T) {
	first := "first " + strings.Repeat("a", 70) + "."
	second := "second " + strings.Repeat("b", 70) + "."
	r := &recorder{fail: func(text string) bool { return strings.HasPrefix(text, "first") }}
	c := &Chunked{Inner: r, ChunkTokens: 20, Logger: zerolog.Nop()}

	got, err := c.Summarize(context.Background(), first+" "+second, 100, 30)
	require.NoError(t, err)
	assert.Equal(t, "S2", got)
}

func TestChunked_AllChunksFail(t *testing.T) {
	r := &recorder{fail: func(string) bool { return true }}
	c := &Chunked{Inner: r, ChunkTokens: 5, Logger: zerolog.Nop()}
	_, err := c.Summarize(context.Background(), "aaaaaaaaaaaaaaaaaaaaaaaa. bbbbbbbbbbbbbbbbbbbbbbbbbb.", 10, 4)
	var se *SummarizationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "chunk", se.Op)
}

func TestCached_ServesSecondCallFromDisk(t *testing.T) {
	r := &recorder{}
	c := &Cached{Inner: r, Cache: &cache.SummaryCache{Dir: t.TempDir()}, Logger: zerolog.Nop()}

	first, err := c.Summarize(context.Background(), "same text", 10, 5)
	require.NoError(t, err)
	second, err := c.Summarize(context.Background(), "same text", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, r.calls, 1)

	_, err = c.Summarize(context.Background(), "same text", 20, 5)
	require.NoError(t, err)
	assert.Len(t, r.calls, 2, "different bounds miss the cache")
}

func TestCached_DoesNotStoreFailures(t *testing.T) {
	r := &recorder{fail: func(string) bool { return true }}
	c := &Cached{Inner: r, Cache: &cache.SummaryCache{Dir: t.TempDir()}, Logger: zerolog.Nop()}
	_, err := c.Summarize(context.Background(), "x", 10, 5)
	require.Error(t, err)
	_, err = c.Summarize(context.Background(), "x", 10, 5)
	require.Error(t, err)
	assert.Len(t, r.calls, 2)
}

type fakeLLM struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeLLM) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestOpenAI_SendsBoundsAndReturnsContent(t *testing.T) {
	f := &fakeLLM{resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  A summary.  "}},
	}}}
	o := &OpenAI{Client: f, Model: "test-model", Logger: zerolog.Nop()}

	got, err := o.Summarize(context.Background(), "Some article text.", 100, 30)
	require.NoError(t, err)
	assert.Equal(t, "A summary.", got)
	assert.Equal(t, "test-model", f.req.Model)
	assert.Equal(t, 100, f.req.MaxTokens)
	require.Len(t, f.req.Messages, 2)
	assert.Contains(t, f.req.Messages[1].Content, "Some article text.")
	assert.Equal(t, "openai:test-model", o.Name())
}

func TestOpenAI_ErrorsAreWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	o := &OpenAI{Client: &fakeLLM{err: cause}, Model: "m"}
	_, err := o.Summarize(context.Background(), "text", 10, 5)
	var se *SummarizationError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, cause)

	o = &OpenAI{Client: &fakeLLM{}, Model: "m"}
	_, err = o.Summarize(context.Background(), "text", 10, 5)
	require.ErrorAs(t, err, &se)
}

func TestPrepare_StripsArtifacts(t *testing.T) {
	got := Prepare("Title", "Body text here. Contact me@example.com now!!! See https://x.test/y. Privacy Policy applies.")
	assert.Equal(t, "Title. Body text here. Contact now! See .", got)
	assert.Equal(t, "Only body.", Prepare("", "  Only   body. "))
}
