package summarize

import (
	"regexp"
	"strings"
)

var (
	webArtifacts = []*regexp.Regexp{
		regexp.MustCompile(`(?i)cookie policy[^.]*`),
		regexp.MustCompile(`(?i)privacy policy[^.]*`),
		regexp.MustCompile(`(?i)terms of service[^.]*`),
		regexp.MustCompile(`(?i)advertisement[^.]*`),
		regexp.MustCompile(`(?i)click here[^.]*`),
		regexp.MustCompile(`(?i)read more[^.]*`),
		regexp.MustCompile(`(?i)continue reading[^.]*`),
		regexp.MustCompile(`(?i)sign up[^.]*`),
		regexp.MustCompile(`(?i)subscribe[^.]*`),
		regexp.MustCompile(`(?i)share this[^.]*`),
		regexp.MustCompile(`(?i)follow us[^.]*`),
		regexp.MustCompile(`(?i)© \d{4}[^.]*`),
		regexp.MustCompile(`(?i)all rights reserved[^.]*`),
		regexp.MustCompile(`https?://\S+`),
		regexp.MustCompile(`\S+@\S+`),
	}
	ellipsisRun = regexp.MustCompile(`\.{3,}`)
	bangRun     = regexp.MustCompile(`!{2,}`)
	queryRun    = regexp.MustCompile(`\?{2,}`)
)

// Prepare builds summarizer input from an article: web artifacts, URLs and
// e-mail addresses are removed, punctuation runs squeezed and the title, when
// known, is prepended as its own sentence.
func Prepare(title, content string) string {
	content = strings.Join(strings.Fields(content), " ")
	for _, re := range webArtifacts {
		content = re.ReplaceAllString(content, "")
	}
	content = ellipsisRun.ReplaceAllString(content, "...")
	content = bangRun.ReplaceAllString(content, "!")
	content = queryRun.ReplaceAllString(content, "?")
	content = strings.Join(strings.Fields(content), " ")
	title = strings.TrimSpace(title)
	if title == "" || content == "" {
		return content
	}
	return title + ". " + content
}
