package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxHeadlines is the candidate pool size when none is configured.
const DefaultMaxHeadlines = 10

// Headline is one listing entry: the visible anchor text and an absolute link.
type Headline struct {
	Text string `json:"headline"`
	Link string `json:"link"`
}

// AnchorMatcher decides whether an anchor is a candidate headline.
type AnchorMatcher interface {
	Match(a *goquery.Selection, href string) bool
}

// AnchorMatcherFunc adapts a function to AnchorMatcher.
type AnchorMatcherFunc func(a *goquery.Selection, href string) bool

// Match calls f.
func (f AnchorMatcherFunc) Match(a *goquery.Selection, href string) bool { return f(a, href) }

// PathContains matches anchors whose href contains any of the markers.
func PathContains(markers ...string) AnchorMatcher {
	return AnchorMatcherFunc(func(_ *goquery.Selection, href string) bool {
		for _, m := range markers {
			if m != "" && strings.Contains(href, m) {
				return true
			}
		}
		return false
	})
}

// ClassContains matches anchors whose class attribute, or the class of their
// direct parent, contains any of the substrings.
func ClassContains(substrs ...string) AnchorMatcher {
	return AnchorMatcherFunc(func(a *goquery.Selection, _ string) bool {
		classes := a.AttrOr("class", "") + " " + a.Parent().AttrOr("class", "")
		for _, s := range substrs {
			if s != "" && strings.Contains(classes, s) {
				return true
			}
		}
		return false
	})
}

// PathPattern matches anchors whose href matches re.
func PathPattern(re *regexp.Regexp) AnchorMatcher {
	return AnchorMatcherFunc(func(_ *goquery.Selection, href string) bool {
		return re.MatchString(href)
	})
}

// HeadlineExtractor pulls headline links out of a listing page.
type HeadlineExtractor struct {
	// Matchers are tried in order; the first one that selects at least one
	// anchor decides the candidates. Empty means PathContains("/news/").
	Matchers []AnchorMatcher
	// MaxHeadlines caps the candidate pool before deduplication.
	MaxHeadlines int
	// SiteBaseURL is prefixed to relative hrefs. When empty, relative hrefs
	// are resolved against the page URL.
	SiteBaseURL string
}

var schemeRE = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// Extract returns the deduplicated headlines of a listing page in document
// order. A page with no matching anchors yields an empty slice.
func (e HeadlineExtractor) Extract(input []byte, pageURL string) ([]Headline, error) {
	doc, err := parse(input)
	if err != nil {
		return nil, err
	}
	limit := e.MaxHeadlines
	if limit <= 0 {
		limit = DefaultMaxHeadlines
	}
	matchers := e.Matchers
	if len(matchers) == 0 {
		matchers = []AnchorMatcher{PathContains("/news/")}
	}

	anchors := doc.Find("a[href]")
	var candidates []*goquery.Selection
	for _, m := range matchers {
		candidates = candidates[:0]
		anchors.EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if m.Match(a, a.AttrOr("href", "")) {
				candidates = append(candidates, a)
			}
			return len(candidates) < limit
		})
		if len(candidates) > 0 {
			break
		}
	}

	out := make([]Headline, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, a := range candidates {
		text := collapseSpace(a.Text())
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, Headline{Text: text, Link: e.resolve(a.AttrOr("href", ""), pageURL)})
	}
	return out, nil
}

func (e HeadlineExtractor) resolve(href string, pageURL string) string {
	href = strings.TrimSpace(href)
	link := href
	switch {
	case schemeRE.MatchString(href):
	case e.SiteBaseURL != "":
		link = e.SiteBaseURL + href
	case pageURL != "":
		if base, err := url.Parse(pageURL); err == nil {
			if ref, err := url.Parse(href); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}
	}
	return stripTracking(link)
}

// stripTracking drops the fragment and utm_*, gclid and fbclid parameters.
func stripTracking(link string) string {
	u, err := url.Parse(link)
	if err != nil || (u.Fragment == "" && u.RawQuery == "") {
		return link
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.RawQuery != "" {
		pairs := strings.Split(u.RawQuery, "&")
		kept := pairs[:0]
		for _, pair := range pairs {
			if !isTrackingParam(pair) {
				kept = append(kept, pair)
			}
		}
		u.RawQuery = strings.Join(kept, "&")
	}
	return u.String()
}

func isTrackingParam(pair string) bool {
	key, _, _ := strings.Cut(pair, "=")
	if k, err := url.QueryUnescape(key); err == nil {
		key = k
	}
	key = strings.ToLower(key)
	return strings.HasPrefix(key, "utm_") || key == "gclid" || key == "fbclid"
}
