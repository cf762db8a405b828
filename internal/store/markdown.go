package store

import (
	"fmt"
	"io"
	"strings"

	"github.com/hyperifyio/newsdigest/internal/extract"
	"github.com/hyperifyio/newsdigest/internal/pipeline"
)

var mdLinkText = strings.NewReplacer("[", `\[`, "]", `\]`)

func mdLink(text, url string) string {
	if url == "" {
		return mdLinkText.Replace(text)
	}
	return "[" + mdLinkText.Replace(text) + "](" + url + ")"
}

func renderHeadlinesMarkdown(out io.Writer, headlines []extract.Headline) error {
	var b strings.Builder
	b.WriteString("# Headlines\n\n")
	for _, h := range headlines {
		fmt.Fprintf(&b, "- %s\n", mdLink(h.Text, h.Link))
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func renderDigestMarkdown(out io.Writer, dg Digest) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# News digest\n\nSource: <%s>\n\n", dg.URL)
	b.WriteString("## Overall summary\n\n")
	b.WriteString(dg.OverallSummary)
	fmt.Fprintf(&b, "\n\n## Articles (%d)\n", len(dg.IndividualSummaries))
	for i, s := range dg.IndividualSummaries {
		fmt.Fprintf(&b, "\n### %d. %s\n\n%s\n", i+1, mdLink(s.Headline, s.Link), s.Summary)
	}
	_, err := io.WriteString(out, b.String())
	return err
}

// renderArticlesMarkdown prefers the Markdown rendering of a body and falls
// back to its plain text.
func renderArticlesMarkdown(out io.Writer, results []pipeline.ArticleResult) error {
	var b strings.Builder
	b.WriteString("# Article summaries\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i+1, mdLink(r.Title, r.URL))
		if r.Author != "" || r.PublishDate != "" {
			fmt.Fprintf(&b, "_%s_\n\n", strings.TrimSpace(r.Author+" "+r.PublishDate))
		}
		if r.Error != "" {
			fmt.Fprintf(&b, "**Error:** %s\n\n", r.Error)
		}
		fmt.Fprintf(&b, "> %s\n", r.Summary)
		body := r.Markdown
		if body == "" {
			body = r.Content
		}
		if body != "" && body != extract.NoContent {
			fmt.Fprintf(&b, "\n%s\n", body)
		}
	}
	_, err := io.WriteString(out, b.String())
	return err
}
