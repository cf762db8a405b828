package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")
	t.Setenv("BAZ", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nBAR=\"beta gamma\"\nexport BAZ='delta'\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("FOO"); got != "alpha" {
		t.Fatalf("FOO=%q, want alpha", got)
	}
	if got := os.Getenv("BAR"); got != "beta gamma" {
		t.Fatalf("BAR=%q, want unquoted value", got)
	}
	if got := os.Getenv("BAZ"); got != "delta" {
		t.Fatalf("BAZ=%q, want delta", got)
	}
}

func TestLoadEnvFiles_OverridesExistingEnv(t *testing.T) {
	t.Setenv("REGION", "from-shell")
	p := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(p, []byte("REGION=from-file\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	if err := LoadEnvFiles(p); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("REGION"); got != "from-file" {
		t.Fatalf("REGION=%q, want from-file", got)
	}
}

func TestLoadEnvFiles_OverrideOrderAndMissing(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, filepath.Join(dir, "missing.env"), b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

func TestApplyEnvOverrides_FromEnv(t *testing.T) {
	t.Setenv("LLM_MODEL", "tiny")
	t.Setenv("SUMMARIZER", "openai")
	t.Setenv("ARTICLE_MARKERS", "/news/, /story/ ,")
	t.Setenv("MAX_HEADLINES", "5")
	t.Setenv("RATE_LIMIT", "250ms")
	t.Setenv("WORKERS", "nope")
	t.Setenv("CACHE_MAX_AGE", "2h")
	t.Setenv("RESPECT_ROBOTS", "yes")
	t.Setenv("CACHE_CLEAR", "off")

	cfg := DefaultConfig()
	cfg.CacheClear = true
	ApplyEnvOverrides(&cfg)

	if cfg.LLMModel != "tiny" || cfg.Backend != BackendOpenAI {
		t.Fatalf("llm settings not applied: model=%q backend=%q", cfg.LLMModel, cfg.Backend)
	}
	if len(cfg.ArticleMarkers) != 2 || cfg.ArticleMarkers[1] != "/story/" {
		t.Fatalf("ArticleMarkers=%v, want [/news/ /story/]", cfg.ArticleMarkers)
	}
	if cfg.MaxHeadlines != 5 {
		t.Fatalf("MaxHeadlines=%d, want 5", cfg.MaxHeadlines)
	}
	if cfg.RateLimit != 250*time.Millisecond || cfg.CacheMaxAge != 2*time.Hour {
		t.Fatalf("durations not applied: rate=%v age=%v", cfg.RateLimit, cfg.CacheMaxAge)
	}
	if cfg.Workers != 1 {
		t.Fatalf("unparseable WORKERS should keep default, got %d", cfg.Workers)
	}
	if !cfg.RespectRobots || cfg.CacheClear {
		t.Fatalf("booleans not applied: robots=%v clear=%v", cfg.RespectRobots, cfg.CacheClear)
	}
}
