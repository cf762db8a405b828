// Package pipeline runs the two end-to-end flows: a listing page turned into
// headline summaries, and a list of article URLs turned into article records.
// Failures are isolated per item; every input produces exactly one output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/newsdigest/internal/extract"
	"github.com/hyperifyio/newsdigest/internal/summarize"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Fetcher retrieves a page body.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// ErrNoHeadlines is reported when a listing page yields no headlines.
var ErrNoHeadlines = errors.New("no headlines found")

// Limits bounds the summarizer input and output.
type Limits struct {
	BatchInputCap int
	BatchMaxLen   int
	BatchMinLen   int
	ArticleMaxLen int
	ArticleMinLen int
}

// DefaultLimits returns the batch (130, 50) and per-article (100, 30) bounds
// and a 1000 character batch input cap.
func DefaultLimits() Limits {
	return Limits{
		BatchInputCap: 1000,
		BatchMaxLen:   130,
		BatchMinLen:   50,
		ArticleMaxLen: 100,
		ArticleMinLen: 30,
	}
}

// HeadlineSummary is the per-article outcome. Summary equals Headline when
// the article body was absent or could not be summarized.
type HeadlineSummary struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Link     string `json:"link"`
	Error    string `json:"error,omitempty"`
}

// HeadlineResult is the outcome for one listing page.
type HeadlineResult struct {
	URL                 string             `json:"url"`
	Status              string             `json:"status"`
	TotalHeadlines      int                `json:"total_headlines"`
	Headlines           []extract.Headline `json:"-"`
	IndividualSummaries []HeadlineSummary  `json:"individual_summaries"`
	OverallSummary      string             `json:"overall_summary"`
	OverallSummaryError string             `json:"overall_summary_error,omitempty"`
	Error               string             `json:"error"`
}

// HeadlinePipeline fetches a listing page, extracts headlines, summarizes
// them as a batch and summarizes each linked article.
type HeadlinePipeline struct {
	Fetcher    Fetcher
	Headlines  extract.HeadlineExtractor
	Bodies     extract.BodyExtractor
	Summarizer summarize.Summarizer
	Limits     Limits
	// Workers bounds concurrent article processing. 0 or 1 is sequential.
	Workers int
	Logger  zerolog.Logger
}

// Run processes one listing page. Only a failure to fetch or parse the
// listing itself is returned as an error; article and summary failures
// degrade inside the result.
func (p *HeadlinePipeline) Run(ctx context.Context, listingURL string) (*HeadlineResult, error) {
	log := p.Logger.With().Str("url", listingURL).Logger()
	log.Info().Msg("fetching listing page")
	page, err := p.Fetcher.Get(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	headlines, err := p.Headlines.Extract(page, listingURL)
	if err != nil {
		return nil, fmt.Errorf("extract headlines: %w", err)
	}
	log.Info().Int("headlines", len(headlines)).Msg("headlines extracted")

	res := &HeadlineResult{
		URL:            listingURL,
		Status:         StatusSuccess,
		TotalHeadlines: len(headlines),
		Headlines:      headlines,
	}
	if len(headlines) == 0 {
		res.IndividualSummaries = []HeadlineSummary{}
		res.OverallSummaryError = ErrNoHeadlines.Error()
		return res, nil
	}

	overall, err := p.SummarizeBatch(ctx, headlines)
	res.OverallSummary = overall
	if err != nil {
		log.Warn().Err(err).Msg("batch summary failed; using headline text")
		res.OverallSummaryError = err.Error()
	}
	res.IndividualSummaries = p.SummarizeArticles(ctx, headlines)
	return res, nil
}

// RunMany processes listing pages and returns one result per input, in
// input order. A page that fails is reported with StatusFailed.
func (p *HeadlinePipeline) RunMany(ctx context.Context, urls []string) []HeadlineResult {
	out := make([]HeadlineResult, len(urls))
	forEach(ctx, p.Workers, len(urls), func(ctx context.Context, i int) {
		res, err := p.Run(ctx, urls[i])
		if err != nil {
			p.Logger.Error().Err(err).Str("url", urls[i]).Msg("listing failed")
			out[i] = HeadlineResult{
				URL:                 urls[i],
				Status:              StatusFailed,
				IndividualSummaries: []HeadlineSummary{},
				Error:               err.Error(),
			}
			return
		}
		out[i] = *res
	})
	return out
}

// BatchInput joins the headline texts with single spaces and caps the result
// at BatchInputCap characters.
func (p *HeadlinePipeline) BatchInput(headlines []extract.Headline) string {
	texts := make([]string, len(headlines))
	for i, h := range headlines {
		texts[i] = h.Text
	}
	return summarize.Cap(strings.Join(texts, " "), p.Limits.BatchInputCap)
}

// SummarizeBatch summarizes all headlines at once. On failure it returns the
// capped input text together with the error.
func (p *HeadlinePipeline) SummarizeBatch(ctx context.Context, headlines []extract.Headline) (string, error) {
	input := p.BatchInput(headlines)
	s, err := p.Summarizer.Summarize(ctx, input, p.Limits.BatchMaxLen, p.Limits.BatchMinLen)
	if err != nil {
		return input, err
	}
	return s, nil
}

// SummarizeArticles fetches and summarizes each headline's article. The
// output has one entry per headline in the same order.
func (p *HeadlinePipeline) SummarizeArticles(ctx context.Context, headlines []extract.Headline) []HeadlineSummary {
	out := make([]HeadlineSummary, len(headlines))
	forEach(ctx, p.Workers, len(headlines), func(ctx context.Context, i int) {
		out[i] = p.summarizeArticle(ctx, headlines[i])
	})
	return out
}

func (p *HeadlinePipeline) summarizeArticle(ctx context.Context, h extract.Headline) HeadlineSummary {
	res := HeadlineSummary{Headline: h.Text, Summary: h.Text, Link: h.Link}
	log := p.Logger.With().Str("url", h.Link).Logger()

	page, err := p.Fetcher.Get(ctx, h.Link)
	if err != nil {
		log.Warn().Err(err).Msg("article fetch failed")
		res.Error = err.Error()
		return res
	}
	body, ok, err := p.Bodies.Extract(page)
	if err != nil {
		log.Warn().Err(err).Msg("article parse failed")
		res.Error = err.Error()
		return res
	}
	if !ok {
		log.Debug().Msg("no substantial content; using headline")
		return res
	}
	s, err := p.Summarizer.Summarize(ctx, body, p.Limits.ArticleMaxLen, p.Limits.ArticleMinLen)
	if err != nil {
		log.Warn().Err(err).Msg("article summary failed; using headline")
		res.Error = err.Error()
		return res
	}
	res.Summary = s
	return res
}
