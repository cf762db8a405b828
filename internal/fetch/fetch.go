// Package fetch retrieves pages over HTTP with a browser-like header set,
// a per-host request spacing and optional robots.txt and on-disk caching.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/newsdigest/internal/cache"
)

// DefaultUserAgent resembles a desktop Chrome; many news sites reject
// default client identifiers.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrDisallowed is wrapped in a FetchError when robots.txt forbids the URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// RobotsChecker decides whether a URL may be fetched and returns the host's
// crawl delay.
type RobotsChecker interface {
	Check(ctx context.Context, rawURL string, userAgent string) (bool, time.Duration, error)
}

// Client performs GET requests. The zero value is usable and sequential
// callers get one request per Get with no retry.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Headers are sent in addition to the default browser header set.
	Headers map[string]string
	// MaxAttempts includes the initial attempt. Zero means one attempt.
	MaxAttempts int
	// PerRequestTimeout bounds each attempt.
	PerRequestTimeout time.Duration
	// RateLimit is the minimum spacing between two requests to the same host.
	RateLimit time.Duration
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// MaxBodyBytes caps the body read. Zero means 8 MiB.
	MaxBodyBytes int64

	Cache  *cache.HTTPCache
	Robots RobotsChecker
	Logger zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func (c *Client) userAgent() string {
	if strings.TrimSpace(c.UserAgent) != "" {
		return c.UserAgent
	}
	return DefaultUserAgent
}

// Get returns the body of rawURL. Every failure is a *FetchError.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("parse url: %w", err)}
	}
	if !isHTTPScheme(u) {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("unsupported URL scheme: %q", u.Scheme)}
	}

	var delay time.Duration
	if c.Robots != nil {
		ok, d, err := c.Robots.Check(ctx, rawURL, c.userAgent())
		if err != nil {
			c.Logger.Debug().Err(err).Str("url", rawURL).Msg("robots check failed; continuing")
		} else if !ok {
			return nil, &FetchError{URL: rawURL, Err: ErrDisallowed}
		}
		delay = d
	}

	var entry *cache.PageEntry
	if c.Cache != nil {
		if e, err := c.Cache.Lookup(ctx, rawURL); err == nil {
			entry = e
		}
	}

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr *FetchError
	for i := 0; i < attempts; i++ {
		if err := c.wait(ctx, u.Host, delay); err != nil {
			return nil, &FetchError{URL: rawURL, Err: err}
		}
		body, ferr := c.tryOnce(ctx, rawURL, entry)
		if ferr == nil {
			return body, nil
		}
		lastErr = ferr
		if !isTransient(ferr) {
			break
		}
		c.Logger.Debug().Err(ferr).Str("url", rawURL).Int("attempt", i+1).Msg("transient fetch error")
	}
	return nil, lastErr
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, entry *cache.PageEntry) ([]byte, *FetchError) {
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	if entry.HasValidators() {
		if entry.ETag != "" {
			req.Header.Set("If-None-Match", entry.ETag)
		}
		if entry.LastModified != "" {
			req.Header.Set("If-Modified-Since", entry.LastModified)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && entry != nil {
		body, err := c.Cache.Body(ctx, rawURL)
		if err != nil {
			return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("load cached body: %w", err)}
		}
		c.Logger.Debug().Str("url", rawURL).Msg("not modified; served from cache")
		return body, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", http.StatusText(resp.StatusCode))}
	}
	ct := resp.Header.Get("Content-Type")
	if !isTextContentType(ct) {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unsupported content type: %s", ct)}
	}
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = 8 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if c.Cache != nil {
		if err := c.Cache.Store(ctx, rawURL, ct, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), body); err != nil {
			c.Logger.Debug().Err(err).Str("url", rawURL).Msg("cache store failed")
		}
	}
	return body, nil
}

// wait blocks until a request to host is permitted. The spacing is the larger
// of RateLimit and the robots.txt crawl delay.
func (c *Client) wait(ctx context.Context, host string, crawlDelay time.Duration) error {
	spacing := c.RateLimit
	if crawlDelay > spacing {
		spacing = crawlDelay
	}
	if spacing <= 0 {
		return nil
	}
	c.mu.Lock()
	if c.limiters == nil {
		c.limiters = make(map[string]*rate.Limiter)
	}
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(spacing), 1)
		c.limiters[host] = lim
	} else if lim.Limit() > rate.Every(spacing) {
		lim.SetLimit(rate.Every(spacing))
	}
	c.mu.Unlock()
	return lim.Wait(ctx)
}

func (c *Client) httpClient() *http.Client {
	hops := c.RedirectMaxHops
	if hops <= 0 {
		hops = 5
	}
	var base http.Client
	if c.HTTPClient != nil {
		base = *c.HTTPClient
	} else {
		base = http.Client{Timeout: 30 * time.Second}
	}
	base.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= hops {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
	return &base
}

// isTransient treats 5xx, 429 and deadline errors as retryable.
func isTransient(err *FetchError) bool {
	if err.StatusCode >= 500 || err.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return errors.Is(err.Err, context.DeadlineExceeded)
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

// isTextContentType accepts HTML, XHTML and plain text. A missing header is
// accepted since the body is assumed to be HTML.
func isTextContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml") ||
		strings.HasPrefix(ct, "text/plain")
}
