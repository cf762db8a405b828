package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Default article body bounds in characters, used when an extractor leaves
// its own bounds zero.
const (
	DefaultMinArticleChars = 200
	DefaultMaxArticleChars = 2000
)

// DefaultBodySelectors is the selector priority used by BodyExtractor.
var DefaultBodySelectors = []string{
	`div[class*="story"]`,
	`div[class*="article"]`,
	`div[class*="content"]`,
	"p",
}

// BodyExtractor picks the main text of an article page.
type BodyExtractor struct {
	Selectors []string
	// MinChars and MaxChars are measured in characters. A body shorter than
	// MinChars is reported as absent; longer ones are cut to MaxChars.
	MinChars int
	MaxChars int
}

// Extract returns the body text and true, or "" and false when no selector
// yields at least MinChars characters. The first selector that matches any
// element is the only one considered.
func (e BodyExtractor) Extract(input []byte) (string, bool, error) {
	doc, err := parse(input)
	if err != nil {
		return "", false, err
	}
	selectors := e.Selectors
	if len(selectors) == 0 {
		selectors = DefaultBodySelectors
	}
	minChars := e.MinChars
	if minChars <= 0 {
		minChars = DefaultMinArticleChars
	}
	maxChars := e.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxArticleChars
	}

	for _, sel := range selectors {
		found := doc.Find(sel)
		if found.Length() == 0 {
			continue
		}
		parts := make([]string, 0, found.Length())
		found.Each(func(_ int, s *goquery.Selection) {
			if t := collapseSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		text := strings.Join(parts, " ")
		if utf8.RuneCountInString(text) < minChars {
			return "", false, nil
		}
		return truncateRunes(text, maxChars), true, nil
	}
	return "", false, nil
}
