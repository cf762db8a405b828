package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL marks input that cannot be an article address.
var ErrInvalidURL = errors.New("invalid url")

// NormalizeURL trims raw, adds https:// when no scheme is given and rejects
// values without a dot or shorter than 11 characters.
func NormalizeURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	if !strings.Contains(u, ".") || len(u) <= 10 {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if _, err := url.ParseRequestURI(u); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return u, nil
}

// ValidateURLs returns the normalized form of every acceptable URL, dropping
// the rest.
func ValidateURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		if u, err := NormalizeURL(raw); err == nil {
			out = append(out, u)
		}
	}
	return out
}
