package summarize

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/newsdigest/internal/cache"
)

// Cached serves repeated requests from a SummaryCache. Cache failures are
// logged and never fail the call.
type Cached struct {
	Inner  Summarizer
	Cache  *cache.SummaryCache
	Logger zerolog.Logger
}

func (c *Cached) Name() string { return NameOf(c.Inner) }

func (c *Cached) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	if c.Cache == nil {
		return c.Inner.Summarize(ctx, text, maxLen, minLen)
	}
	backend := NameOf(c.Inner)
	key := cache.SummaryKey(backend, maxLen, minLen, text)
	if s, ok, err := c.Cache.Get(ctx, key); err != nil {
		c.Logger.Debug().Err(err).Msg("summary cache read failed")
	} else if ok {
		c.Logger.Debug().Str("backend", backend).Msg("summary cache hit")
		return s, nil
	}
	s, err := c.Inner.Summarize(ctx, text, maxLen, minLen)
	if err != nil {
		return "", err
	}
	if err := c.Cache.Put(ctx, key, backend, s); err != nil {
		c.Logger.Debug().Err(err).Msg("summary cache write failed")
	}
	return s, nil
}
