package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields with environment variables when
// the corresponding variables are set. Env takes precedence over the config
// file; flags are applied afterwards and stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setStr := func(dst *string, envKey string) {
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, envKey string) {
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				*dst = n
			}
		}
	}
	setDur := func(dst *time.Duration, envKey string) {
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}

	setStr(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setStr(&cfg.LLMModel, "LLM_MODEL")
	setStr(&cfg.LLMAPIKey, "LLM_API_KEY")
	setStr(&cfg.Backend, "SUMMARIZER")

	setStr(&cfg.SiteBaseURL, "SITE_BASE_URL")
	// ARTICLE_MARKERS is a comma separated list of path fragments
	if v := strings.TrimSpace(os.Getenv("ARTICLE_MARKERS")); v != "" {
		var markers []string
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				markers = append(markers, m)
			}
		}
		if len(markers) > 0 {
			cfg.ArticleMarkers = markers
		}
	}
	setInt(&cfg.MaxHeadlines, "MAX_HEADLINES")

	setStr(&cfg.UserAgent, "USER_AGENT")
	setDur(&cfg.RateLimit, "RATE_LIMIT")
	setDur(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	setBool(&cfg.RespectRobots, "RESPECT_ROBOTS")
	setInt(&cfg.Workers, "WORKERS")

	setStr(&cfg.DataDir, "DATA_DIR")
	setStr(&cfg.OutputFormat, "OUTPUT_FORMAT")
	setStr(&cfg.HistoryPath, "HISTORY_DB")

	setStr(&cfg.CacheDir, "CACHE_DIR")
	setDur(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.Verbose, "VERBOSE")
}
