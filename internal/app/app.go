package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hyperifyio/newsdigest/internal/api"
	"github.com/hyperifyio/newsdigest/internal/budget"
	"github.com/hyperifyio/newsdigest/internal/cache"
	"github.com/hyperifyio/newsdigest/internal/extract"
	"github.com/hyperifyio/newsdigest/internal/fetch"
	"github.com/hyperifyio/newsdigest/internal/llm"
	"github.com/hyperifyio/newsdigest/internal/pipeline"
	"github.com/hyperifyio/newsdigest/internal/robots"
	"github.com/hyperifyio/newsdigest/internal/store"
	"github.com/hyperifyio/newsdigest/internal/summarize"
)

// App wires fetcher, extractors, summarizer, pipelines and persistence from
// a Config.
type App struct {
	cfg     Config
	log     zerolog.Logger
	format  store.Format
	backend string

	headlines *pipeline.HeadlinePipeline
	articles  *pipeline.ArticlePipeline
	writer    *store.Writer
	history   *store.History
}

// ListingOutput is what RunListing produced and where it was written.
type ListingOutput struct {
	Result        *pipeline.HeadlineResult
	HeadlinesFile string
	DigestFile    string
	RunID         int64
}

// New validates cfg and builds the application. Cache invalidation runs
// here, before any fetch.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	format, err := store.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	httpClient := newHTTPClient(cfg.RequestTimeout)

	var pageCache *cache.HTTPCache
	var summaryCache *cache.SummaryCache
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				logger.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
			if err != nil {
				logger.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				logger.Info().Int("files", n).Dur("max_age", cfg.CacheMaxAge).Msg("purged stale cache entries")
			}
		}
		pageCache = &cache.HTTPCache{Dir: filepath.Join(cfg.CacheDir, "http"), StrictPerms: cfg.CacheStrictPerms}
		summaryCache = &cache.SummaryCache{Dir: filepath.Join(cfg.CacheDir, "summaries"), StrictPerms: cfg.CacheStrictPerms}
	}

	fetcher := &fetch.Client{
		HTTPClient:        httpClient,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		PerRequestTimeout: cfg.RequestTimeout,
		RateLimit:         cfg.RateLimit,
		Cache:             pageCache,
		Logger:            logger.With().Str("component", "fetch").Logger(),
	}
	if cfg.RespectRobots {
		fetcher.Robots = &robots.Manager{
			HTTPClient: httpClient,
			UserAgent:  cfg.UserAgent,
			Logger:     logger.With().Str("component", "robots").Logger(),
		}
	}

	sum, err := newSummarizer(ctx, cfg, httpClient, summaryCache, logger)
	if err != nil {
		return nil, err
	}

	matchers, err := anchorMatchers(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		log:     logger,
		format:  format,
		backend: summarize.NameOf(sum),
		headlines: &pipeline.HeadlinePipeline{
			Fetcher: fetcher,
			Headlines: extract.HeadlineExtractor{
				Matchers:     matchers,
				MaxHeadlines: cfg.MaxHeadlines,
				SiteBaseURL:  cfg.SiteBaseURL,
			},
			Bodies: extract.BodyExtractor{
				MinChars: cfg.MinArticleChars,
				MaxChars: cfg.MaxArticleChars,
			},
			Summarizer: sum,
			Limits: pipeline.Limits{
				BatchInputCap: cfg.BatchInputCap,
				BatchMaxLen:   cfg.BatchMaxLen,
				BatchMinLen:   cfg.BatchMinLen,
				ArticleMaxLen: cfg.ArticleMaxLen,
				ArticleMinLen: cfg.ArticleMinLen,
			},
			Workers: cfg.Workers,
			Logger:  logger.With().Str("component", "headlines").Logger(),
		},
		articles: &pipeline.ArticlePipeline{
			Fetcher:    fetcher,
			Extractor:  extract.ArticleExtractor{MinContentChars: cfg.MinArticleChars, Markdown: format == store.FormatMarkdown},
			Summarizer: sum,
			MaxLen:     cfg.ScrapeMaxLen,
			MinLen:     cfg.ScrapeMinLen,
			Workers:    cfg.Workers,
			Logger:     logger.With().Str("component", "articles").Logger(),
		},
		writer: &store.Writer{
			Dir:    cfg.DataDir,
			Logger: logger.With().Str("component", "store").Logger(),
		},
	}

	if cfg.HistoryPath != "" {
		h, err := store.OpenHistory(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.history = h
	}
	return a, nil
}

// newSummarizer builds the configured backend wrapped in chunking and, when a
// cache is available, the summary cache.
func newSummarizer(ctx context.Context, cfg Config, httpClient *http.Client, sc *cache.SummaryCache, logger zerolog.Logger) (summarize.Summarizer, error) {
	var inner summarize.Summarizer
	chunkTokens := budget.DefaultChunkTokens
	switch cfg.Backend {
	case BackendOpenAI:
		provider := llm.NewOpenAIProvider(cfg.LLMBaseURL, cfg.LLMAPIKey, httpClient)
		preflight(ctx, provider, logger)
		o := &summarize.OpenAI{
			Client: provider,
			Model:  cfg.LLMModel,
			Logger: logger.With().Str("component", "llm").Logger(),
		}
		reserved := max(cfg.BatchMaxLen, cfg.ArticleMaxLen, cfg.ScrapeMaxLen)
		chunkTokens = budget.ChunkTokens(cfg.LLMModel, reserved, budget.EstimateTokens(o.SystemPrompt()))
		inner = o
	case BackendLead:
		inner = summarize.Lead{}
	default:
		return nil, fmt.Errorf("unknown summarizer backend %q", cfg.Backend)
	}

	var s summarize.Summarizer = &summarize.Chunked{
		Inner:       inner,
		ChunkTokens: chunkTokens,
		Logger:      logger.With().Str("component", "chunk").Logger(),
	}
	if sc != nil {
		s = &summarize.Cached{Inner: s, Cache: sc, Logger: logger}
	}
	logger.Debug().Str("backend", summarize.NameOf(s)).Int("chunk_tokens", chunkTokens).Msg("summarizer ready")
	return s, nil
}

// preflight lists models as a best-effort connectivity check. Failures are
// logged; summarization errors surface later per item.
func preflight(ctx context.Context, ml llm.ModelLister, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := ml.ListModels(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models.Models) > 0 {
		logger.Info().Int("count", len(models.Models)).Msg("LLM models available")
	} else {
		logger.Warn().Msg("LLM returned zero models")
	}
}

func anchorMatchers(cfg Config) ([]extract.AnchorMatcher, error) {
	var ms []extract.AnchorMatcher
	if len(cfg.ArticleMarkers) > 0 {
		ms = append(ms, extract.PathContains(cfg.ArticleMarkers...))
	}
	if len(cfg.AnchorClasses) > 0 {
		ms = append(ms, extract.ClassContains(cfg.AnchorClasses...))
	}
	if cfg.AnchorPattern != "" {
		re, err := regexp.Compile(cfg.AnchorPattern)
		if err != nil {
			return nil, fmt.Errorf("anchor pattern: %w", err)
		}
		ms = append(ms, extract.PathPattern(re))
	}
	return ms, nil
}

// Close releases the history database.
func (a *App) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

// Backend names the active summarizer.
func (a *App) Backend() string { return a.backend }

// RunListing runs the headline pipeline for one listing page, saves the raw
// headlines and the digest into DataDir and records the run in history.
func (a *App) RunListing(ctx context.Context, listingURL string) (*ListingOutput, error) {
	u, err := pipeline.NormalizeURL(listingURL)
	if err != nil {
		return nil, err
	}
	res, err := a.headlines.Run(ctx, u)
	if err != nil {
		return nil, err
	}
	return a.persistListing(ctx, res)
}

func (a *App) persistListing(ctx context.Context, res *pipeline.HeadlineResult) (*ListingOutput, error) {
	out := &ListingOutput{Result: res}
	raw, err := a.writer.SaveHeadlines(res.Headlines, a.format)
	if err != nil {
		return out, fmt.Errorf("save headlines: %w", err)
	}
	out.HeadlinesFile = raw
	digest, err := a.writer.SaveDigest(store.DigestFromResult(res, raw), a.format)
	if err != nil {
		return out, fmt.Errorf("save digest: %w", err)
	}
	out.DigestFile = digest
	if a.history != nil {
		id, err := a.history.RecordHeadlines(ctx, *res)
		if err != nil {
			a.log.Warn().Err(err).Msg("history record failed")
		}
		out.RunID = id
	}
	return out, nil
}

// RunArticles scrapes and summarizes urls. Every input yields one record.
// The records are saved when save is true; the returned path is then the
// written file.
func (a *App) RunArticles(ctx context.Context, urls []string, save bool) ([]pipeline.ArticleResult, string, error) {
	results := a.articles.ProcessMany(ctx, urls)
	if a.history != nil {
		if _, err := a.history.RecordArticles(ctx, "cli", results); err != nil {
			a.log.Warn().Err(err).Msg("history record failed")
		}
	}
	if !save {
		return results, "", nil
	}
	path, err := a.writer.SaveArticles(results, a.format)
	if err != nil {
		return results, "", fmt.Errorf("save articles: %w", err)
	}
	return results, path, nil
}

// ErrNoHistory is returned by RecentRuns when no history database is
// configured.
var ErrNoHistory = errors.New("no history database configured (set --history or HISTORY_DB)")

// RecentRuns returns up to limit recorded runs, newest first.
func (a *App) RecentRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if a.history == nil {
		return nil, ErrNoHistory
	}
	return a.history.Recent(ctx, limit)
}

// APIServer returns the HTTP API backed by this application's pipelines.
func (a *App) APIServer() *api.Server {
	s := &api.Server{
		Headlines: a.headlines,
		Articles:  a.articles,
		MaxURLs:   a.cfg.MaxURLsPerRequest,
		Backend:   a.backend,
		RateLimit: a.cfg.RateLimit,
		Logger:    a.log.With().Str("component", "api").Logger(),
	}
	if a.history != nil {
		s.History = a.history
	}
	return s
}

// Watch runs the listing pipeline once immediately and then on every tick of
// the cron schedule until ctx is cancelled. Headlines whose link was already
// seen are logged at debug level only. Overlapping ticks are skipped.
func (a *App) Watch(ctx context.Context, listingURL string, schedule string) error {
	u, err := pipeline.NormalizeURL(listingURL)
	if err != nil {
		return err
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	w := &watcher{app: a, url: u, seen: make(map[string]bool)}
	if _, err := c.AddFunc(schedule, func() { w.tick(ctx) }); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	w.tick(ctx)
	c.Start()
	a.log.Info().Str("url", u).Str("schedule", schedule).Msg("watching listing page")
	<-ctx.Done()
	<-c.Stop().Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

type watcher struct {
	app  *App
	url  string
	seen map[string]bool
}

func (w *watcher) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log := w.app.log.With().Str("url", w.url).Logger()
	res, err := w.app.headlines.Run(ctx, w.url)
	if err != nil {
		log.Error().Err(err).Msg("watch run failed")
		return
	}
	fresh := w.newSummaries(ctx, res.IndividualSummaries)
	out, err := w.app.persistListing(ctx, res)
	if err != nil {
		log.Error().Err(err).Msg("watch save failed")
		return
	}
	for _, s := range fresh {
		log.Info().Str("headline", s.Headline).Str("link", s.Link).Str("summary", s.Summary).Msg("new headline")
	}
	log.Info().Int("headlines", res.TotalHeadlines).Int("new", len(fresh)).Str("digest", out.DigestFile).Msg("watch run done")
}

// newSummaries filters out links seen in earlier ticks or recorded in
// history by an earlier process.
func (w *watcher) newSummaries(ctx context.Context, all []pipeline.HeadlineSummary) []pipeline.HeadlineSummary {
	var fresh []pipeline.HeadlineSummary
	for _, s := range all {
		if w.seen[s.Link] {
			continue
		}
		w.seen[s.Link] = true
		if w.app.history != nil {
			seen, err := w.app.history.SeenLink(ctx, s.Link)
			if err != nil {
				w.app.log.Debug().Err(err).Msg("history lookup failed")
			} else if seen {
				continue
			}
		}
		fresh = append(fresh, s)
	}
	return fresh
}
