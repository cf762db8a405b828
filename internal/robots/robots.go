// Package robots fetches and evaluates robots.txt so the fetcher can skip
// disallowed article paths and honour a site's crawl-delay.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

// Rules is a parsed robots.txt file. The zero value allows everything.
type Rules struct {
	data *robotstxt.RobotsData
}

// Manager caches parsed rules per origin for EntryExpiry.
type Manager struct {
	HTTPClient  *http.Client
	UserAgent   string
	EntryExpiry time.Duration
	Logger      zerolog.Logger

	mu  sync.Mutex
	mem map[string]entry
	now func() time.Time
}

type entry struct {
	rules  Rules
	expiry time.Time
}

// Check reports whether rawURL may be fetched by userAgent and the crawl
// delay that applies to its host. A robots.txt that cannot be retrieved or
// answers with a non-2xx status allows everything.
func (m *Manager) Check(ctx context.Context, rawURL string, userAgent string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse url: %w", err)
	}
	rules := m.rulesFor(ctx, u)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return rules.IsAllowed(userAgent, path), rules.CrawlDelayFor(userAgent), nil
}

func (m *Manager) rulesFor(ctx context.Context, u *url.URL) Rules {
	origin := u.Scheme + "://" + u.Host
	m.mu.Lock()
	if m.now == nil {
		m.now = time.Now
	}
	if m.mem == nil {
		m.mem = make(map[string]entry)
	}
	if e, ok := m.mem[origin]; ok && m.now().Before(e.expiry) {
		m.mu.Unlock()
		return e.rules
	}
	m.mu.Unlock()

	rules, err := m.fetch(ctx, origin+"/robots.txt")
	if err != nil {
		m.Logger.Debug().Err(err).Str("origin", origin).Msg("robots.txt unavailable; allowing all")
	}
	exp := m.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	m.mu.Lock()
	m.mem[origin] = entry{rules: rules, expiry: m.now().Add(exp)}
	m.mu.Unlock()
	return rules
}

func (m *Manager) fetch(ctx context.Context, robotsURL string) (Rules, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return allowAll(), err
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return allowAll(), err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return allowAll(), fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return allowAll(), fmt.Errorf("read robots: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return allowAll(), fmt.Errorf("parse robots: %w", err)
	}
	return Rules{data: data}, nil
}

// Parse reads robots.txt text. Text the parser rejects allows everything.
func Parse(text string) Rules {
	data, err := robotstxt.FromString(text)
	if err != nil {
		return Rules{}
	}
	return Rules{data: data}
}

// allowAll is what an unreachable or non-2xx robots.txt means.
func allowAll() Rules {
	data, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	return Rules{data: data}
}

// IsAllowed applies the most specific rule of the best group for userAgent.
// No matching directive means allowed.
func (r Rules) IsAllowed(userAgent string, path string) bool {
	if r.data == nil {
		return true
	}
	return r.data.TestAgent(path, userAgent)
}

// CrawlDelayFor returns the crawl delay of the best group for userAgent.
func (r Rules) CrawlDelayFor(userAgent string) time.Duration {
	if r.data == nil {
		return 0
	}
	return r.data.FindGroup(userAgent).CrawlDelay
}
