package app

import (
	"time"

	"github.com/hyperifyio/newsdigest/internal/fetch"
)

// Summarizer backends selectable through Config.Backend.
const (
	BackendLead   = "lead"
	BackendOpenAI = "openai"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Listing pages
	SiteBaseURL    string
	ArticleMarkers []string
	AnchorClasses  []string
	AnchorPattern  string
	MaxHeadlines   int

	// Article bodies
	MaxArticleChars int
	MinArticleChars int

	// Summary bounds
	BatchInputCap int
	BatchMaxLen   int
	BatchMinLen   int
	ArticleMaxLen int
	ArticleMinLen int
	ScrapeMaxLen  int
	ScrapeMinLen  int

	// Fetching
	UserAgent      string
	RequestTimeout time.Duration
	RateLimit      time.Duration
	MaxAttempts    int
	RespectRobots  bool

	// Concurrency and API
	Workers           int
	MaxURLsPerRequest int

	// Output
	DataDir      string
	OutputFormat string
	HistoryPath  string

	// Summarizer
	Backend    string
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	Verbose bool
}

// DefaultConfig returns the built-in defaults. File, env and flags are
// layered on top of it.
func DefaultConfig() Config {
	return Config{
		ArticleMarkers:    []string{"/news/"},
		MaxHeadlines:      10,
		MaxArticleChars:   2000,
		MinArticleChars:   200,
		BatchInputCap:     1000,
		BatchMaxLen:       130,
		BatchMinLen:       50,
		ArticleMaxLen:     100,
		ArticleMinLen:     30,
		ScrapeMaxLen:      150,
		ScrapeMinLen:      50,
		UserAgent:         fetch.DefaultUserAgent,
		RequestTimeout:    30 * time.Second,
		RateLimit:         time.Second,
		MaxAttempts:       1,
		Workers:           1,
		MaxURLsPerRequest: 10,
		DataDir:           "data",
		OutputFormat:      "json",
		Backend:           BackendLead,
	}
}
