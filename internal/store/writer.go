// Package store persists pipeline output as timestamped files (JSON, CSV, PDF
// or Markdown) under a data directory, plus an optional SQLite run history.
package store

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/newsdigest/internal/extract"
	"github.com/hyperifyio/newsdigest/internal/pipeline"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "md"
)

// ParseFormat accepts json, csv, pdf or md (also "markdown") in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatPDF, FormatMarkdown:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// Digest is the saved form of a headline run.
type Digest struct {
	URL                 string                     `json:"url"`
	TotalHeadlines      int                        `json:"total_headlines"`
	OverallSummary      string                     `json:"overall_summary"`
	IndividualSummaries []pipeline.HeadlineSummary `json:"individual_summaries"`
	RawDataFile         string                     `json:"raw_data_file,omitempty"`
}

// Writer writes files named headlines_YYYYMMDD_HHMMSS.<ext> into Dir. A
// name already taken in the same second gets a _1, _2, ... suffix.
type Writer struct {
	Dir    string
	Now    func() time.Time
	Logger zerolog.Logger
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// create opens a new, uniquely named file for ext.
func (w *Writer) create(f Format) (*os.File, string, error) {
	dir := w.Dir
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create data dir: %w", err)
	}
	stem := "headlines_" + w.now().Format("20060102_150405")
	for i := 0; i < 1000; i++ {
		name := stem
		if i > 0 {
			name += "_" + strconv.Itoa(i)
		}
		path := filepath.Join(dir, name+"."+string(f))
		fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("create %s: %w", path, err)
		}
		return fh, path, nil
	}
	return nil, "", fmt.Errorf("no free file name for %s", stem)
}

// write creates the file, runs fn on it and removes the file if fn fails.
func (w *Writer) write(f Format, fn func(io.Writer) error) (string, error) {
	fh, path, err := w.create(f)
	if err != nil {
		return "", err
	}
	werr := fn(fh)
	cerr := fh.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, werr)
	}
	w.Logger.Info().Str("path", path).Msg("data saved")
	return path, nil
}

// SaveHeadlines writes the raw headline list.
func (w *Writer) SaveHeadlines(headlines []extract.Headline, f Format) (string, error) {
	if headlines == nil {
		headlines = []extract.Headline{}
	}
	switch f {
	case FormatJSON:
		return w.write(f, func(out io.Writer) error { return encodeJSON(out, headlines) })
	case FormatCSV:
		return w.write(f, func(out io.Writer) error {
			rows := make([][]string, 0, len(headlines))
			for _, h := range headlines {
				rows = append(rows, []string{h.Text, h.Link})
			}
			return encodeCSV(out, []string{"headline", "link"}, rows)
		})
	case FormatPDF:
		return w.write(f, func(out io.Writer) error { return renderHeadlinesPDF(out, headlines) })
	case FormatMarkdown:
		return w.write(f, func(out io.Writer) error { return renderHeadlinesMarkdown(out, headlines) })
	}
	return "", fmt.Errorf("unsupported output format %q", f)
}

// SaveDigest writes a headline run result.
func (w *Writer) SaveDigest(d Digest, f Format) (string, error) {
	if d.IndividualSummaries == nil {
		d.IndividualSummaries = []pipeline.HeadlineSummary{}
	}
	switch f {
	case FormatJSON:
		return w.write(f, func(out io.Writer) error { return encodeJSON(out, d) })
	case FormatCSV:
		return w.write(f, func(out io.Writer) error {
			rows := make([][]string, 0, len(d.IndividualSummaries))
			for _, s := range d.IndividualSummaries {
				rows = append(rows, []string{s.Headline, s.Summary, s.Link})
			}
			return encodeCSV(out, []string{"headline", "summary", "link"}, rows)
		})
	case FormatPDF:
		return w.write(f, func(out io.Writer) error { return renderDigestPDF(out, d) })
	case FormatMarkdown:
		return w.write(f, func(out io.Writer) error { return renderDigestMarkdown(out, d) })
	}
	return "", fmt.Errorf("unsupported output format %q", f)
}

// SaveArticles writes article pipeline records.
func (w *Writer) SaveArticles(results []pipeline.ArticleResult, f Format) (string, error) {
	if results == nil {
		results = []pipeline.ArticleResult{}
	}
	switch f {
	case FormatJSON:
		return w.write(f, func(out io.Writer) error { return encodeJSON(out, results) })
	case FormatCSV:
		return w.write(f, func(out io.Writer) error {
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.URL, r.Title, r.Author, r.PublishDate, r.Description, r.Summary, r.Content, r.Error})
			}
			return encodeCSV(out, []string{"url", "title", "author", "publish_date", "description", "summary", "content", "error"}, rows)
		})
	case FormatPDF:
		return w.write(f, func(out io.Writer) error { return renderArticlesPDF(out, results) })
	case FormatMarkdown:
		return w.write(f, func(out io.Writer) error { return renderArticlesMarkdown(out, results) })
	}
	return "", fmt.Errorf("unsupported output format %q", f)
}

// DigestFromResult copies the persisted fields of a headline run.
func DigestFromResult(res *pipeline.HeadlineResult, rawDataFile string) Digest {
	return Digest{
		URL:                 res.URL,
		TotalHeadlines:      res.TotalHeadlines,
		OverallSummary:      res.OverallSummary,
		IndividualSummaries: res.IndividualSummaries,
		RawDataFile:         rawDataFile,
	}
}

func encodeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeCSV(out io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
