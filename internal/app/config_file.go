package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/newsdigest/internal/store"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags and env.
type FileConfig struct {
	Site struct {
		BaseURL       string   `yaml:"baseURL" json:"baseURL"`
		Markers       []string `yaml:"markers" json:"markers"`
		AnchorClasses []string `yaml:"anchorClasses" json:"anchorClasses"`
		AnchorPattern string   `yaml:"anchorPattern" json:"anchorPattern"`
		MaxHeadlines  int      `yaml:"maxHeadlines" json:"maxHeadlines"`
	} `yaml:"site" json:"site"`

	Article struct {
		MaxChars int `yaml:"maxChars" json:"maxChars"`
		MinChars int `yaml:"minChars" json:"minChars"`
	} `yaml:"article" json:"article"`

	Summary struct {
		Backend       string `yaml:"backend" json:"backend"`
		BatchInputCap int    `yaml:"batchInputCap" json:"batchInputCap"`
		BatchMaxLen   int    `yaml:"batchMaxLen" json:"batchMaxLen"`
		BatchMinLen   int    `yaml:"batchMinLen" json:"batchMinLen"`
		ArticleMaxLen int    `yaml:"articleMaxLen" json:"articleMaxLen"`
		ArticleMinLen int    `yaml:"articleMinLen" json:"articleMinLen"`
		ScrapeMaxLen  int    `yaml:"scrapeMaxLen" json:"scrapeMaxLen"`
		ScrapeMinLen  int    `yaml:"scrapeMinLen" json:"scrapeMinLen"`
	} `yaml:"summary" json:"summary"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Fetch struct {
		UserAgent     string        `yaml:"userAgent" json:"userAgent"`
		Timeout       Duration `yaml:"timeout" json:"timeout"`
		RateLimit     Duration `yaml:"rateLimit" json:"rateLimit"`
		MaxAttempts   int      `yaml:"maxAttempts" json:"maxAttempts"`
		RespectRobots *bool    `yaml:"respectRobots" json:"respectRobots"`
	} `yaml:"fetch" json:"fetch"`

	Workers int `yaml:"workers" json:"workers"`
	MaxURLs int `yaml:"maxURLs" json:"maxURLs"`

	Output struct {
		Dir     string `yaml:"dir" json:"dir"`
		Format  string `yaml:"format" json:"format"`
		History string `yaml:"history" json:"history"`
	} `yaml:"output" json:"output"`

	Cache struct {
		Dir         string   `yaml:"dir" json:"dir"`
		MaxAge      Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool     `yaml:"clear" json:"clear"`
		StrictPerms bool     `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// Duration is a time.Duration that config files give as a string such as
// "30s" or as integer nanoseconds.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		p, err := time.ParseDuration(x)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", x, err)
		}
		*d = Duration(p)
	case float64:
		*d = Duration(time.Duration(x))
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

// UnmarshalYAML decodes the node the way yaml.v3 decodes time.Duration.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var td time.Duration
	if err := n.Decode(&td); err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg. cfg normally
// holds DefaultConfig; env and flags are applied afterwards and win.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}

	setStr(&cfg.SiteBaseURL, fc.Site.BaseURL)
	if len(fc.Site.Markers) > 0 {
		cfg.ArticleMarkers = append([]string{}, fc.Site.Markers...)
	}
	if len(fc.Site.AnchorClasses) > 0 {
		cfg.AnchorClasses = append([]string{}, fc.Site.AnchorClasses...)
	}
	setStr(&cfg.AnchorPattern, fc.Site.AnchorPattern)
	setInt(&cfg.MaxHeadlines, fc.Site.MaxHeadlines)

	setInt(&cfg.MaxArticleChars, fc.Article.MaxChars)
	setInt(&cfg.MinArticleChars, fc.Article.MinChars)

	setStr(&cfg.Backend, fc.Summary.Backend)
	setInt(&cfg.BatchInputCap, fc.Summary.BatchInputCap)
	setInt(&cfg.BatchMaxLen, fc.Summary.BatchMaxLen)
	setInt(&cfg.BatchMinLen, fc.Summary.BatchMinLen)
	setInt(&cfg.ArticleMaxLen, fc.Summary.ArticleMaxLen)
	setInt(&cfg.ArticleMinLen, fc.Summary.ArticleMinLen)
	setInt(&cfg.ScrapeMaxLen, fc.Summary.ScrapeMaxLen)
	setInt(&cfg.ScrapeMinLen, fc.Summary.ScrapeMinLen)

	setStr(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setStr(&cfg.LLMModel, fc.LLM.Model)
	setStr(&cfg.LLMAPIKey, fc.LLM.APIKey)

	setStr(&cfg.UserAgent, fc.Fetch.UserAgent)
	setDur(&cfg.RequestTimeout, time.Duration(fc.Fetch.Timeout))
	setDur(&cfg.RateLimit, time.Duration(fc.Fetch.RateLimit))
	setInt(&cfg.MaxAttempts, fc.Fetch.MaxAttempts)
	if fc.Fetch.RespectRobots != nil {
		cfg.RespectRobots = *fc.Fetch.RespectRobots
	}

	setInt(&cfg.Workers, fc.Workers)
	setInt(&cfg.MaxURLsPerRequest, fc.MaxURLs)

	setStr(&cfg.DataDir, fc.Output.Dir)
	setStr(&cfg.OutputFormat, fc.Output.Format)
	setStr(&cfg.HistoryPath, fc.Output.History)

	setStr(&cfg.CacheDir, fc.Cache.Dir)
	setDur(&cfg.CacheMaxAge, time.Duration(fc.Cache.MaxAge))
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig rejects settings the pipelines cannot run with.
func ValidateConfig(cfg Config) error {
	switch cfg.Backend {
	case BackendLead:
	case BackendOpenAI:
		if trim(cfg.LLMModel) == "" {
			return errors.New("config: llm.model is required for the openai backend (or set LLM_MODEL)")
		}
	default:
		return fmt.Errorf("config: unknown summarizer backend %q", cfg.Backend)
	}
	if _, err := store.ParseFormat(cfg.OutputFormat); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.MaxHeadlines <= 0 || cfg.MaxArticleChars <= 0 || cfg.BatchInputCap <= 0 {
		return errors.New("config: headline and character limits must be positive")
	}
	if cfg.MinArticleChars < 0 || cfg.Workers < 0 || cfg.MaxURLsPerRequest < 0 || cfg.RateLimit < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	bounds := [][2]int{
		{cfg.BatchMaxLen, cfg.BatchMinLen},
		{cfg.ArticleMaxLen, cfg.ArticleMinLen},
		{cfg.ScrapeMaxLen, cfg.ScrapeMinLen},
	}
	for _, b := range bounds {
		if b[0] <= 0 || b[1] < 0 || b[1] > b[0] {
			return fmt.Errorf("config: summary bounds max=%d min=%d must satisfy 0 <= min <= max, max > 0", b[0], b[1])
		}
	}
	if cfg.AnchorPattern != "" {
		if _, err := regexp.Compile(cfg.AnchorPattern); err != nil {
			return fmt.Errorf("config: anchor pattern: %w", err)
		}
	}
	return nil
}

func trim(s string) string { return strings.TrimSpace(s) }
