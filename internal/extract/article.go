package extract

import (
	"bytes"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

const (
	NoTitle   = "No title found"
	NoContent = "No content found"
)

// Article is the metadata and text scraped from a single article page.
type Article struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	PublishDate string `json:"publish_date"`
	Description string `json:"description"`
	// Markdown is the main content container rendered as Markdown. Only set
	// when ArticleExtractor.Markdown is true.
	Markdown    string `json:"markdown,omitempty"`
}

// field is one lookup step: a CSS selector and the attributes to read, in
// order. Empty attrs means the element text.
type field struct {
	sel   string
	attrs []string
}

var (
	titleFields = []field{
		{sel: "h1"},
		{sel: "title"},
		{sel: `[property="og:title"]`, attrs: []string{"content"}},
		{sel: `[name="twitter:title"]`, attrs: []string{"content"}},
		{sel: ".article-title"},
		{sel: ".post-title"},
		{sel: ".entry-title"},
		{sel: "h1.title"},
		{sel: "h1.headline"},
	}
	authorFields = []field{
		{sel: `[rel="author"]`, attrs: []string{"content", ""}},
		{sel: `[property="article:author"]`, attrs: []string{"content", ""}},
		{sel: `[name="author"]`, attrs: []string{"content", ""}},
		{sel: ".author"},
		{sel: ".byline"},
		{sel: ".post-author"},
		{sel: ".article-author"},
	}
	dateFields = []field{
		{sel: `[property="article:published_time"]`, attrs: []string{"content", "datetime"}},
		{sel: `[name="publish_date"]`, attrs: []string{"content", "datetime"}},
		{sel: "[datetime]", attrs: []string{"content", "datetime"}},
		{sel: ".publish-date"},
		{sel: ".date"},
		{sel: ".post-date"},
		{sel: ".article-date"},
	}
	descriptionFields = []field{
		{sel: `[name="description"]`, attrs: []string{"content"}},
		{sel: `[property="og:description"]`, attrs: []string{"content"}},
		{sel: `[name="twitter:description"]`, attrs: []string{"content"}},
	}
	contentSelectors = []string{
		"article",
		`[role="main"]`,
		".article-content",
		".post-content",
		".entry-content",
		".content",
		".article-body",
		".story-body",
		".post-body",
		"main",
		".main-content",
	}
)

// ArticleExtractor scrapes title, content, author, publish date and
// description from arbitrary article pages. The zero value is ready to use.
type ArticleExtractor struct {
	// MinContentChars is the length a candidate container must exceed to be
	// accepted. Zero means DefaultMinArticleChars.
	MinContentChars int
	// Markdown additionally renders the content container as Markdown.
	Markdown bool
}

// Extract never fails on odd markup; missing fields are empty except Title and
// Content which fall back to NoTitle and NoContent.
func (e ArticleExtractor) Extract(input []byte, pageURL string) (Article, error) {
	doc, err := parse(input)
	if err != nil {
		return Article{}, err
	}
	art := Article{
		URL:         pageURL,
		Title:       sanitize(firstField(doc, titleFields)),
		Author:      sanitize(firstField(doc, authorFields)),
		PublishDate: sanitize(firstField(doc, dateFields)),
		Description: sanitize(firstField(doc, descriptionFields)),
	}

	var ra *readability.Article
	readable := func() *readability.Article {
		if ra == nil {
			ra = &readability.Article{}
			u, err := url.Parse(pageURL)
			if err != nil || u == nil {
				u = &url.URL{}
			}
			if parsed, err := readability.FromReader(bytes.NewReader(input), u); err == nil {
				*ra = parsed
			}
		}
		return ra
	}

	removeBoilerplate(doc)
	art.Content = e.content(doc, readable)
	if e.Markdown {
		art.Markdown = e.markdown(doc, readable)
	}

	if art.Title == "" {
		art.Title = sanitize(readable().Title)
	}
	if art.Title == "" {
		art.Title = NoTitle
	}
	if art.Author == "" {
		art.Author = sanitize(readable().Byline)
	}
	if art.Description == "" {
		art.Description = sanitize(readable().Excerpt)
	}
	return art, nil
}

func (e ArticleExtractor) content(doc *goquery.Document, readable func() *readability.Article) string {
	minChars := e.MinContentChars
	if minChars <= 0 {
		minChars = DefaultMinArticleChars
	}
	long := func(s string) bool { return utf8.RuneCountInString(s) > minChars }

	for _, sel := range contentSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if text := CleanText(el.Text()); long(text) {
			return text
		}
	}

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	if text := CleanText(strings.Join(parts, " ")); long(text) {
		return text
	}

	if text := CleanText(readable().TextContent); long(text) {
		return text
	}

	if text := CleanText(doc.Text()); text != "" {
		return text
	}
	return NoContent
}

// firstField walks fields in order and returns the first non-empty value.
func firstField(doc *goquery.Document, fields []field) string {
	for _, f := range fields {
		el := doc.Find(f.sel).First()
		if el.Length() == 0 {
			continue
		}
		if len(f.attrs) == 0 {
			if v := collapseSpace(el.Text()); v != "" {
				return v
			}
			continue
		}
		for _, attr := range f.attrs {
			var v string
			if attr == "" {
				v = el.Text()
			} else {
				v = el.AttrOr(attr, "")
			}
			if v = collapseSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

var strictPolicy = bluemonday.StrictPolicy()

// sanitize strips any markup smuggled into metadata and returns NFC text.
func sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	return norm.NFC.String(collapseSpace(s))
}
