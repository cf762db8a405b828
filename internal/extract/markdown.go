package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Markdown converts an HTML fragment to Markdown.
func Markdown(fragment string) (string, error) {
	md, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// markdown renders the same container content() would pick, falling back to
// the readability article HTML. Conversion failures yield "".
func (e ArticleExtractor) markdown(doc *goquery.Document, readable func() *readability.Article) string {
	minChars := e.MinContentChars
	if minChars <= 0 {
		minChars = DefaultMinArticleChars
	}
	for _, sel := range contentSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 || utf8.RuneCountInString(CleanText(el.Text())) <= minChars {
			continue
		}
		fragment, err := goquery.OuterHtml(el)
		if err != nil {
			return ""
		}
		md, _ := Markdown(fragment)
		return md
	}
	if c := readable().Content; c != "" {
		md, _ := Markdown(c)
		return md
	}
	return ""
}
