package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/newsdigest/internal/extract"
	"github.com/hyperifyio/newsdigest/internal/summarize"
)

const (
	errorTitle   = "Error"
	errorContent = "Failed to extract content"
)

// ArticleResult is the record produced for one article URL. Error is empty on
// success.
type ArticleResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Summary     string `json:"summary"`
	Author      string `json:"author"`
	PublishDate string `json:"publish_date"`
	Description string `json:"description"`
	Markdown    string `json:"markdown,omitempty"`
	Error       string `json:"error"`
}

// Failed reports whether the record carries an error.
func (r ArticleResult) Failed() bool { return r.Error != "" }

// ArticlePipeline scrapes arbitrary article URLs and summarizes them.
type ArticlePipeline struct {
	Fetcher    Fetcher
	Extractor  extract.ArticleExtractor
	Summarizer summarize.Summarizer
	MaxLen     int
	MinLen     int
	Workers    int
	Logger     zerolog.Logger
}

// Process never fails: fetch and parse errors become an error record and
// summarization errors keep the scraped content but set Error.
func (p *ArticlePipeline) Process(ctx context.Context, rawURL string) ArticleResult {
	log := p.Logger.With().Str("url", rawURL).Logger()
	u, err := NormalizeURL(rawURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid url")
		return errorRecord(rawURL, err)
	}
	page, err := p.Fetcher.Get(ctx, u)
	if err != nil {
		log.Error().Err(err).Msg("article fetch failed")
		return errorRecord(u, err)
	}
	art, err := p.Extractor.Extract(page, u)
	if err != nil {
		log.Error().Err(err).Msg("article parse failed")
		return errorRecord(u, err)
	}
	res := ArticleResult{
		URL:         u,
		Title:       art.Title,
		Content:     art.Content,
		Author:      art.Author,
		PublishDate: art.PublishDate,
		Description: art.Description,
		Markdown:    art.Markdown,
	}
	if art.Content == "" || art.Content == extract.NoContent {
		log.Warn().Msg("no content to summarize")
		res.Summary = "Summary not available - insufficient content. Title: " + art.Title
		return res
	}
	title := art.Title
	if title == extract.NoTitle {
		title = ""
	}
	s, err := p.Summarizer.Summarize(ctx, summarize.Prepare(title, art.Content), p.MaxLen, p.MinLen)
	if err != nil {
		// the scraped article is still delivered; only the summary is missing
		log.Error().Err(err).Msg("article summary failed")
		res.Summary = "Summary generation failed: " + err.Error()
		return res
	}
	res.Summary = s
	log.Info().Str("title", art.Title).Msg("article processed")
	return res
}

// ProcessMany returns one record per input URL in input order.
func (p *ArticlePipeline) ProcessMany(ctx context.Context, urls []string) []ArticleResult {
	out := make([]ArticleResult, len(urls))
	forEach(ctx, p.Workers, len(urls), func(ctx context.Context, i int) {
		out[i] = p.Process(ctx, urls[i])
	})
	return out
}

func errorRecord(u string, err error) ArticleResult {
	return ArticleResult{
		URL:     u,
		Title:   errorTitle,
		Content: errorContent,
		Summary: fmt.Sprintf("Processing failed: %v", err),
		Error:   err.Error(),
	}
}
