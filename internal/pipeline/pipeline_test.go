package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/newsdigest/internal/extract"
	"github.com/hyperifyio/newsdigest/internal/summarize"
)

type pages map[string]string

func (p pages) Get(_ context.Context, rawURL string) ([]byte, error) {
	body, ok := p[rawURL]
	if !ok {
		return nil, fmt.Errorf("fetch %s: HTTP 404", rawURL)
	}
	return []byte(body), nil
}

type fakeSummarizer struct {
	mu     sync.Mutex
	inputs []string
	failOn func(text string, maxLen int) bool
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string, maxLen, minLen int) (string, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, text)
	f.mu.Unlock()
	if f.failOn != nil && f.failOn(text, maxLen) {
		return "", &summarize.SummarizationError{Op: "fake", Err: errors.New("model unavailable")}
	}
	return fmt.Sprintf("summary(%d)", utf8.RuneCountInString(text)), nil
}

const base = "https://news.test"

func longBody(word string) string {
	return `<div class="story">` + strings.Repeat(word+" ", 60) + `</div>`
}

func listing(paths ...string) string {
	var b strings.Builder
	for i, p := range paths {
		fmt.Fprintf(&b, `<a href="%s">Headline %d</a>`, p, i)
	}
	return b.String()
}

func newHeadlinePipeline(f Fetcher, s summarize.Summarizer, workers int) *HeadlinePipeline {
	return &HeadlinePipeline{
		Fetcher:    f,
		Headlines:  extract.HeadlineExtractor{SiteBaseURL: base},
		Summarizer: s,
		Limits:     DefaultLimits(),
		Workers:    workers,
		Logger:     zerolog.Nop(),
	}
}

func TestSummarizeBatch_InputCappedAtExactly1000Chars(t *testing.T) {
	headlines := make([]extract.Headline, 50)
	for i := range headlines {
		headlines[i] = extract.Headline{Text: fmt.Sprintf("Headline number %02d about the markets", i), Link: base}
	}
	s := &fakeSummarizer{}
	p := newHeadlinePipeline(pages{}, s, 1)

	_, err := p.SummarizeBatch(context.Background(), headlines)
	require.NoError(t, err)
	require.Len(t, s.inputs, 1)
	assert.Equal(t, 1000, utf8.RuneCountInString(s.inputs[0]))
	assert.True(t, strings.HasPrefix(s.inputs[0], "Headline number 00 about the markets Headline number 01"))
}

func TestHeadlinePipeline_Run(t *testing.T) {
	site := pages{
		base + "/front": listing("/news/a", "/news/b", "/news/c"),
		base + "/news/a": longBody("alpha"),
		base + "/news/b": `<p>too short</p>`,
	}
	s := &fakeSummarizer{}
	res, err := newHeadlinePipeline(site, s, 1).Run(context.Background(), base+"/front")
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 3, res.TotalHeadlines)
	assert.Equal(t, "summary(32)", res.OverallSummary, "three headlines joined by spaces")
	assert.Empty(t, res.OverallSummaryError)
	require.Len(t, res.IndividualSummaries, 3)

	a, b, c := res.IndividualSummaries[0], res.IndividualSummaries[1], res.IndividualSummaries[2]
	assert.Equal(t, "summary(359)", a.Summary)
	assert.Equal(t, base+"/news/a", a.Link)
	assert.Equal(t, "Headline 1", b.Summary, "absent body falls back to the headline")
	assert.Empty(t, b.Error)
	assert.Equal(t, "Headline 2", c.Summary)
	assert.NotEmpty(t, c.Error, "fetch failure is reported")
}

func TestHeadlinePipeline_BatchFailureDegrades(t *testing.T) {
	site := pages{
		base + "/front": listing("/news/a"),
		base + "/news/a": longBody("alpha"),
	}
	s := &fakeSummarizer{failOn: func(_ string, maxLen int) bool { return maxLen == 130 }}
	res, err := newHeadlinePipeline(site, s, 1).Run(context.Background(), base+"/front")
	require.NoError(t, err)

	assert.Equal(t, "Headline 0", res.OverallSummary)
	assert.Contains(t, res.OverallSummaryError, "model unavailable")
	assert.Equal(t, "summary(359)", res.IndividualSummaries[0].Summary)
}

func TestHeadlinePipeline_ArticleSummaryFailureUsesHeadline(t *testing.T) {
	site := pages{
		base + "/front": listing("/news/a"),
		base + "/news/a": longBody("alpha"),
	}
	s := &fakeSummarizer{failOn: func(_ string, maxLen int) bool { return maxLen == 100 }}
	res, err := newHeadlinePipeline(site, s, 1).Run(context.Background(), base+"/front")
	require.NoError(t, err)
	assert.Equal(t, "Headline 0", res.IndividualSummaries[0].Summary)
	assert.Contains(t, res.IndividualSummaries[0].Error, "model unavailable")
}

func TestHeadlinePipeline_NoHeadlines(t *testing.T) {
	site := pages{base + "/front": `<a href="/about">About us</a>`}
	s := &fakeSummarizer{}
	res, err := newHeadlinePipeline(site, s, 1).Run(context.Background(), base+"/front")
	require.NoError(t, err)
	assert.Zero(t, res.TotalHeadlines)
	assert.Empty(t, s.inputs)
	assert.Equal(t, ErrNoHeadlines.Error(), res.OverallSummaryError)
}

func TestHeadlinePipeline_RunManyIsolatesFailures(t *testing.T) {
	site := pages{
		base + "/one":    listing("/news/a"),
		base + "/three":  listing("/news/c"),
		base + "/news/a": longBody("alpha"),
		base + "/news/c": longBody("gamma"),
	}
	urls := []string{base + "/one", base + "/two", base + "/three"}

	for _, workers := range []int{1, 3} {
		results := newHeadlinePipeline(site, &fakeSummarizer{}, workers).RunMany(context.Background(), urls)
		require.Len(t, results, 3)
		for i, u := range urls {
			assert.Equal(t, u, results[i].URL)
		}
		assert.Equal(t, StatusSuccess, results[0].Status)
		assert.Equal(t, StatusFailed, results[1].Status)
		assert.Contains(t, results[1].Error, "fetch listing")
		assert.Equal(t, StatusSuccess, results[2].Status)

		alone, err := newHeadlinePipeline(site, &fakeSummarizer{}, 1).Run(context.Background(), base+"/one")
		require.NoError(t, err)
		assert.Equal(t, *alone, results[0])
	}
}

func articlePage(title string) string {
	return `<html><head><title>` + title + `</title><meta name="author" content="A. Writer"></head><body><article>` +
		strings.Repeat("The council approved the new budget after a long debate. ", 6) +
		`</article></body></html>`
}

func TestArticlePipeline_ProcessManyIsolatesFailures(t *testing.T) {
	site := pages{
		"https://a.test/1": articlePage("First"),
		"https://a.test/3": articlePage("Broken summary"),
		"https://a.test/4": articlePage("Fourth"),
	}
	s := &fakeSummarizer{failOn: func(text string, _ int) bool { return strings.HasPrefix(text, "Broken") }}
	p := &ArticlePipeline{Fetcher: site, Summarizer: s, MaxLen: 150, MinLen: 50, Workers: 2, Logger: zerolog.Nop()}

	results := p.ProcessMany(context.Background(), []string{"https://a.test/1", "https://a.test/2", "https://a.test/3", "a.test/4", "x"})
	require.Len(t, results, 5)

	assert.False(t, results[0].Failed())
	assert.Equal(t, "First", results[0].Title)
	assert.Equal(t, "A. Writer", results[0].Author)
	assert.True(t, strings.HasPrefix(results[0].Summary, "summary("))

	assert.True(t, results[1].Failed())
	assert.Equal(t, "Error", results[1].Title)
	assert.Equal(t, "Failed to extract content", results[1].Content)
	assert.True(t, strings.HasPrefix(results[1].Summary, "Processing failed: "))

	assert.False(t, results[2].Failed(), "a summary failure keeps the scraped article")
	assert.Equal(t, "Broken summary", results[2].Title)
	assert.NotEmpty(t, results[2].Content)
	assert.True(t, strings.HasPrefix(results[2].Summary, "Summary generation failed: "))

	assert.False(t, results[3].Failed())
	assert.Equal(t, "https://a.test/4", results[3].URL)

	assert.True(t, results[4].Failed())
	assert.ErrorIs(t, mustNormalize(t, "x"), ErrInvalidURL)

	st := ComputeStats(results)
	assert.Equal(t, 3, st.Successful)
	assert.Equal(t, 2, st.Failed)
}

func mustNormalize(t *testing.T, raw string) error {
	t.Helper()
	_, err := NormalizeURL(raw)
	return err
}

func TestArticlePipeline_InsufficientContent(t *testing.T) {
	site := pages{"https://a.test/empty": `<html><body></body></html>`}
	s := &fakeSummarizer{}
	p := &ArticlePipeline{Fetcher: site, Summarizer: s, Logger: zerolog.Nop()}
	res := p.Process(context.Background(), "https://a.test/empty")
	assert.False(t, res.Failed())
	assert.Equal(t, "Summary not available - insufficient content. Title: No title found", res.Summary)
	assert.Empty(t, s.inputs)
}

func TestComputeStats(t *testing.T) {
	results := []ArticleResult{
		{Content: strings.Repeat("c", 400), Summary: strings.Repeat("s", 40)},
		{Content: strings.Repeat("c", 200), Summary: strings.Repeat("s", 20)},
		{Error: "boom", Content: errorContent},
	}
	st := ComputeStats(results)
	assert.Equal(t, 3, st.TotalURLs)
	assert.Equal(t, 2, st.Successful)
	assert.Equal(t, 1, st.Failed)
	assert.InDelta(t, 66.666, st.SuccessRate, 0.01)
	assert.InDelta(t, 300, st.AverageContentLength, 0.001)
	assert.InDelta(t, 30, st.AverageSummaryLength, 0.001)
	assert.InDelta(t, 10, st.CompressionRatio, 0.001)

	assert.Equal(t, Stats{}, ComputeStats(nil))
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  https://example.com/a ", "https://example.com/a", true},
		{"example.com/article", "https://example.com/article", true},
		{"http://x.io/p", "http://x.io/p", true},
		{"", "", false},
		{"localhost", "", false},
		{"http://a.b", "", false},
	}
	for _, c := range cases {
		got, err := NormalizeURL(c.in)
		if !c.ok {
			assert.ErrorIs(t, err, ErrInvalidURL, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got)
	}
	assert.Equal(t, []string{"https://example.com/article"}, ValidateURLs([]string{"example.com/article", "bad"}))
}
