package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleExtractor_Metadata(t *testing.T) {
	body := strings.Repeat("Markets rallied on Tuesday as investors weighed new data. ", 6)
	page := `<html><head>
<title>Fallback title</title>
<meta name="author" content="Jane Roe">
<meta property="article:published_time" content="2024-05-01T10:00:00Z">
<meta name="description" content="Markets &amp; more">
</head><body>
<nav>Home | World</nav>
<h1>  Markets rally  </h1>
<article>` + body + `Advertisement Subscribe to our newsletter today. Final line.</article>
<footer>Copyright</footer>
</body></html>`

	art, err := ArticleExtractor{}.Extract([]byte(page), "https://news.test/a")
	require.NoError(t, err)
	assert.Equal(t, "https://news.test/a", art.URL)
	assert.Equal(t, "Markets rally", art.Title)
	assert.Equal(t, "Jane Roe", art.Author)
	assert.Equal(t, "2024-05-01T10:00:00Z", art.PublishDate)
	assert.Equal(t, "Markets & more", art.Description)
	assert.True(t, strings.HasPrefix(art.Content, "Markets rallied on Tuesday"))
	assert.NotContains(t, art.Content, "Advertisement")
	assert.NotContains(t, art.Content, "Subscribe")
	assert.NotContains(t, art.Content, "Copyright")
	assert.True(t, strings.HasSuffix(art.Content, "Final line."))
}

func TestArticleExtractor_EmptyPageFallbacks(t *testing.T) {
	art, err := ArticleExtractor{}.Extract([]byte(`<html><body></body></html>`), "https://news.test/empty")
	require.NoError(t, err)
	assert.Equal(t, NoTitle, art.Title)
	assert.Equal(t, NoContent, art.Content)
}

func TestArticleExtractor_ShortPageUsesAllText(t *testing.T) {
	art, err := ArticleExtractor{}.Extract([]byte(`<html><body><div>Just a short note</div></body></html>`), "")
	require.NoError(t, err)
	assert.Equal(t, "Just a short note", art.Content)
}

func TestArticleExtractor_DropsConsentBanner(t *testing.T) {
	page := `<body><div id="cookie-banner">We use cookies</div><div>Plain text</div></body>`
	art, err := ArticleExtractor{}.Extract([]byte(page), "")
	require.NoError(t, err)
	assert.NotContains(t, art.Content, "cookies")
}

func TestCleanText(t *testing.T) {
	got := CleanText("  Breaking\n\n news.  Click here to win a prize. Done. ADVERTISEMENT  ")
	assert.Equal(t, "Breaking news. . Done.", got)
}

func TestArticleExtractor_Markdown(t *testing.T) {
	body := strings.Repeat("The ferry service resumed after the storm passed over the bay. ", 5)
	page := `<html><body><article><h2>Harbour reopens</h2><p>` + body +
		`Officials <strong>confirmed</strong> the timetable.</p></article></body></html>`

	art, err := ArticleExtractor{Markdown: true}.Extract([]byte(page), "https://news.test/h")
	require.NoError(t, err)
	assert.Contains(t, art.Markdown, "## Harbour reopens")
	assert.Contains(t, art.Markdown, "**confirmed**")
	assert.NotContains(t, art.Content, "**")

	plain, err := ArticleExtractor{}.Extract([]byte(page), "https://news.test/h")
	require.NoError(t, err)
	assert.Empty(t, plain.Markdown)
}

func TestMarkdown_Fragment(t *testing.T) {
	md, err := Markdown(`<p>See <a href="https://news.test/x">the report</a>.</p>`)
	require.NoError(t, err)
	assert.Equal(t, "See [the report](https://news.test/x).", md)
}
