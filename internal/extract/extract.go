// Package extract turns fetched HTML into headlines, article bodies and
// article metadata. All extractors are pure functions of their input and
// configuration.
package extract

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func parse(input []byte) (*goquery.Document, error) {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return goquery.NewDocumentFromNode(node), nil
}

// collapseSpace trims s and folds every whitespace run into one space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)advertisement\s*`),
	regexp.MustCompile(`(?i)click here[^.]*`),
	regexp.MustCompile(`(?i)read more[^.]*`),
	regexp.MustCompile(`(?i)continue reading[^.]*`),
	regexp.MustCompile(`(?i)sign up[^.]*`),
	regexp.MustCompile(`(?i)subscribe[^.]*`),
}

// CleanText collapses whitespace and strips common call-to-action noise
// ("Advertisement", "Click here ...", "Subscribe ...") up to the end of the
// sentence it appears in.
func CleanText(s string) string {
	s = collapseSpace(s)
	for _, re := range noisePatterns {
		s = re.ReplaceAllString(s, "")
	}
	return collapseSpace(s)
}

// removeBoilerplate drops elements that never carry article text, including
// cookie and consent banners.
func removeBoilerplate(doc *goquery.Document) {
	doc.Find("script, style, noscript, nav, footer, header, aside, form, iframe").Remove()
	doc.Find("[id], [class], [role], [aria-label]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return isConsentContainer(s)
	}).Remove()
}

func isConsentContainer(s *goquery.Selection) bool {
	for _, key := range []string{"id", "class", "role", "aria-label"} {
		val, ok := s.Attr(key)
		if !ok {
			continue
		}
		val = strings.ToLower(val)
		if strings.Contains(val, "cookie") || strings.Contains(val, "consent") || strings.Contains(val, "gdpr") {
			return true
		}
	}
	return false
}
