package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/newsdigest/internal/pipeline"
	"github.com/hyperifyio/newsdigest/internal/store"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfig_PrecedenceFlagsEnvFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(cfgPath, []byte("workers: 3\noutput:\n  format: csv\nsite:\n  maxHeadlines: 7\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WORKERS", "4")
	t.Setenv("OUTPUT_FORMAT", "")
	t.Setenv("MAX_HEADLINES", "")

	out, err := runRoot(t, "--env-file", filepath.Join(dir, "none.env"), "--config", cfgPath, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "workers: 4") {
		t.Fatalf("env should override file, got:\n%s", out)
	}
	if !strings.Contains(out, "outputformat: csv") || !strings.Contains(out, "maxheadlines: 7") {
		t.Fatalf("file values missing, got:\n%s", out)
	}

	out, err = runRoot(t, "--env-file", filepath.Join(dir, "none.env"), "--config", cfgPath, "--workers", "5", "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "workers: 5") {
		t.Fatalf("flag should override env, got:\n%s", out)
	}
}

func TestConfig_RedactsAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "secret-key")
	out, err := runRoot(t, "--env-file", "", "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if strings.Contains(out, "secret-key") {
		t.Fatalf("api key leaked:\n%s", out)
	}
}

func TestURL_RequiresURLFlag(t *testing.T) {
	if _, err := runRoot(t, "url"); err == nil {
		t.Fatalf("expected missing --url error")
	}
}

func TestArticles_RequiresArgs(t *testing.T) {
	if _, err := runRoot(t, "articles"); err == nil {
		t.Fatalf("expected argument error")
	}
}

func TestInvalidBackendRejected(t *testing.T) {
	if _, err := runRoot(t, "--env-file", "", "--summarizer", "magic", "config"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestPrintDigest(t *testing.T) {
	var buf bytes.Buffer
	printDigest(&buf, &pipeline.HeadlineResult{
		URL:            "https://news.example/",
		TotalHeadlines: 1,
		OverallSummary: "All quiet.",
		IndividualSummaries: []pipeline.HeadlineSummary{
			{Headline: "Quiet day", Summary: "Nothing happened.", Link: "https://news.example/news/1"},
		},
	})
	got := buf.String()
	for _, want := range []string{"Headlines: 1", "All quiet.", "1. Quiet day", "Nothing happened.", "https://news.example/news/1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("digest missing %q:\n%s", want, got)
		}
	}
}

func TestHistory_RequiresDatabase(t *testing.T) {
	t.Setenv("HISTORY_DB", "")
	t.Setenv("CACHE_DIR", "")
	if _, err := runRoot(t, "--env-file", "", "history"); err == nil {
		t.Fatalf("expected error without a history database")
	}
}

func TestHistory_ListsRuns(t *testing.T) {
	t.Setenv("CACHE_DIR", "")
	db := filepath.Join(t.TempDir(), "history.db")
	out, err := runRoot(t, "--env-file", "", "--history", db, "history", "--limit", "5")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.HasPrefix(out, "ID") {
		t.Fatalf("expected table header, got:\n%s", out)
	}
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	err := printRuns(&buf, []store.Run{{
		ID:        3,
		Kind:      store.KindHeadlines,
		SourceURL: "https://news.example/",
		Status:    pipeline.StatusSuccess,
		Items:     2,
		CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("printRuns: %v", err)
	}
	got := buf.String()
	for _, want := range []string{"STATUS", "2024-05-01T09:00:00Z", "https://news.example/"} {
		if !strings.Contains(got, want) {
			t.Fatalf("runs table missing %q:\n%s", want, got)
		}
	}
}
