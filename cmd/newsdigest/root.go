package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/newsdigest/internal/app"
)

// options holds the persistent flags. Only flags the user changed override
// the config file and environment.
type options struct {
	verbose    bool
	configPath string
	envFiles   []string

	format    string
	dataDir   string
	history   string
	backend   string
	llmBase   string
	llmModel  string
	llmKey    string
	workers   int
	rateLimit time.Duration
	robots    bool
	cacheDir  string
	siteBase  string
	markers   []string
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "newsdigest",
		Short: "newsdigest: scrape news listings and articles and summarize them",
		Long: `newsdigest fetches a news listing page, extracts headline links, fetches
each article, summarizes it and writes a digest. It can also scrape arbitrary
article URLs, serve the same pipelines over HTTP or watch a listing page on a
cron schedule.

Configuration precedence: flags > environment > config file > defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Verbose logging")
	pf.StringVar(&o.configPath, "config", "", "Path to YAML or JSON config file")
	pf.StringSliceVar(&o.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading the environment")
	pf.StringVar(&o.format, "format", "json", "Output format: json, csv, pdf or md")
	pf.StringVar(&o.dataDir, "data-dir", "data", "Directory for saved results")
	pf.StringVar(&o.history, "history", "", "SQLite file for run history (empty disables)")
	pf.StringVar(&o.backend, "summarizer", app.BackendLead, "Summarizer backend: lead or openai")
	pf.StringVar(&o.llmBase, "llm.base", "", "OpenAI-compatible base URL")
	pf.StringVar(&o.llmModel, "llm.model", "", "Model name")
	pf.StringVar(&o.llmKey, "llm.key", "", "API key for the OpenAI-compatible server")
	pf.IntVar(&o.workers, "workers", 1, "Concurrent URLs (1 is sequential)")
	pf.DurationVar(&o.rateLimit, "rate-limit", time.Second, "Minimum spacing between requests to one host")
	pf.BoolVar(&o.robots, "robots", false, "Respect robots.txt rules and crawl delays")
	pf.StringVar(&o.cacheDir, "cache.dir", "", "Cache directory (empty disables caching)")
	pf.StringVar(&o.siteBase, "site.base", "", "Base URL prefixed to relative headline links")
	pf.StringSliceVar(&o.markers, "markers", []string{"/news/"}, "Path fragments identifying article links")

	root.AddCommand(
		newURLCmd(o),
		newArticlesCmd(o),
		newServeCmd(o),
		newWatchCmd(o),
		newConfigCmd(o),
		newHistoryCmd(o),
	)
	return root
}

// config layers defaults, config file, environment and changed flags.
func (o *options) config(cmd *cobra.Command) (app.Config, error) {
	if err := app.LoadEnvFiles(o.envFiles...); err != nil {
		return app.Config{}, fmt.Errorf("load env files: %w", err)
	}
	cfg := app.DefaultConfig()
	if o.configPath != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	f := cmd.Flags()
	if f.Changed("verbose") {
		cfg.Verbose = o.verbose
	}
	if f.Changed("format") {
		cfg.OutputFormat = o.format
	}
	if f.Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if f.Changed("history") {
		cfg.HistoryPath = o.history
	}
	if f.Changed("summarizer") {
		cfg.Backend = o.backend
	}
	if f.Changed("llm.base") {
		cfg.LLMBaseURL = o.llmBase
	}
	if f.Changed("llm.model") {
		cfg.LLMModel = o.llmModel
	}
	if f.Changed("llm.key") {
		cfg.LLMAPIKey = o.llmKey
	}
	if f.Changed("workers") {
		cfg.Workers = o.workers
	}
	if f.Changed("rate-limit") {
		cfg.RateLimit = o.rateLimit
	}
	if f.Changed("robots") {
		cfg.RespectRobots = o.robots
	}
	if f.Changed("cache.dir") {
		cfg.CacheDir = o.cacheDir
	}
	if f.Changed("site.base") {
		cfg.SiteBaseURL = o.siteBase
	}
	if f.Changed("markers") {
		cfg.ArticleMarkers = o.markers
	}
	return cfg, app.ValidateConfig(cfg)
}

// open loads the configuration, applies the log level and builds the app.
func (o *options) open(ctx context.Context, cmd *cobra.Command) (*app.App, app.Config, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, cfg, err
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	a, err := app.New(ctx, cfg, log.Logger)
	if err != nil {
		return nil, cfg, fmt.Errorf("init app: %w", err)
	}
	return a, cfg, nil
}
