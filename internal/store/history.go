package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hyperifyio/newsdigest/internal/pipeline"
)

const (
	KindHeadlines = "headlines"
	KindArticles  = "articles"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID             int64
	Kind           string
	SourceURL      string
	Status         string
	OverallSummary string
	Error          string
	Items          int
	CreatedAt      time.Time
}

// History records runs and their items in SQLite.
type History struct {
	conn *sql.DB
	now  func() time.Time
}

// OpenHistory opens or creates the database at path.
func OpenHistory(path string) (*History, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	h := &History{conn: conn, now: time.Now}
	if err := h.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return h, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.conn.Close()
}

func (h *History) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		source_url TEXT NOT NULL,
		status TEXT NOT NULL,
		overall_summary TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		title TEXT NOT NULL,
		link TEXT NOT NULL,
		summary TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_items_link ON items(link);
	`
	_, err := h.conn.Exec(schema)
	return err
}

type item struct {
	title, link, summary, err string
}

func (h *History) record(ctx context.Context, run Run, items []item) (int64, error) {
	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	r, err := tx.ExecContext(ctx,
		`INSERT INTO runs (kind, source_url, status, overall_summary, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.Kind, run.SourceURL, run.Status, run.OverallSummary, run.Error, h.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (run_id, title, link, summary, error) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare item: %w", err)
	}
	defer stmt.Close()
	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, id, it.title, it.link, it.summary, it.err); err != nil {
			return 0, fmt.Errorf("insert item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// RecordHeadlines stores a headline run and one item per article summary.
func (h *History) RecordHeadlines(ctx context.Context, res pipeline.HeadlineResult) (int64, error) {
	items := make([]item, 0, len(res.IndividualSummaries))
	for _, s := range res.IndividualSummaries {
		items = append(items, item{title: s.Headline, link: s.Link, summary: s.Summary, err: s.Error})
	}
	return h.record(ctx, Run{
		Kind:           KindHeadlines,
		SourceURL:      res.URL,
		Status:         res.Status,
		OverallSummary: res.OverallSummary,
		Error:          res.Error,
	}, items)
}

// RecordArticles stores an article run; source is a free-form label such as
// "api" or "cli".
func (h *History) RecordArticles(ctx context.Context, source string, results []pipeline.ArticleResult) (int64, error) {
	items := make([]item, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
		items = append(items, item{title: r.Title, link: r.URL, summary: r.Summary, err: r.Error})
	}
	status := pipeline.StatusSuccess
	if failed == len(results) && failed > 0 {
		status = pipeline.StatusFailed
	}
	return h.record(ctx, Run{Kind: KindArticles, SourceURL: source, Status: status}, items)
}

// Recent returns up to limit runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.conn.QueryContext(ctx, `
	SELECT r.id, r.kind, r.source_url, r.status, r.overall_summary, r.error, r.created_at,
		(SELECT COUNT(*) FROM items i WHERE i.run_id = r.id)
	FROM runs r ORDER BY r.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.SourceURL, &r.Status, &r.OverallSummary, &r.Error, &created, &r.Items); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SeenLink reports whether link was recorded by any earlier run.
func (h *History) SeenLink(ctx context.Context, link string) (bool, error) {
	var n int
	if err := h.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE link = ?`, link).Scan(&n); err != nil {
		return false, fmt.Errorf("query link: %w", err)
	}
	return n > 0, nil
}
