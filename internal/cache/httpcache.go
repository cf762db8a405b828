package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PageEntry is the metadata stored next to a cached page body. The validators
// are replayed as If-None-Match / If-Modified-Since on the next fetch.
type PageEntry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	SavedAt      time.Time `json:"saved_at"`
}

// HasValidators reports whether the entry can be revalidated conditionally.
func (e *PageEntry) HasValidators() bool {
	return e != nil && (e.ETag != "" || e.LastModified != "")
}

// HTTPCache keeps fetched pages under Dir as <sha256(url)>.page.json plus
// <sha256(url)>.body. There is no eviction beyond PurgeByAge.
type HTTPCache struct {
	Dir string
	// StrictPerms restricts the cache to 0700 directories and 0600 files.
	StrictPerms bool
}

const (
	pageMetaSuffix = ".page.json"
	pageBodySuffix = ".body"
)

func (c *HTTPCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	return mkdir(c.Dir, c.StrictPerms)
}

func urlKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (c *HTTPCache) metaPath(url string) string {
	return filepath.Join(c.Dir, urlKey(url)+pageMetaSuffix)
}

func (c *HTTPCache) bodyPath(url string) string {
	return filepath.Join(c.Dir, urlKey(url)+pageBodySuffix)
}

// Lookup returns the stored metadata for url, or nil when nothing is cached.
func (c *HTTPCache) Lookup(_ context.Context, url string) (*PageEntry, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(c.metaPath(url))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e PageEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode page entry: %w", err)
	}
	return &e, nil
}

// Body returns the cached body for url.
func (c *HTTPCache) Body(_ context.Context, url string) ([]byte, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	return os.ReadFile(c.bodyPath(url))
}

// Store writes body first and then the metadata through a rename, so a
// reader never sees metadata pointing at a missing body.
func (c *HTTPCache) Store(_ context.Context, url string, contentType string, etag string, lastModified string, body []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	if err := os.WriteFile(c.bodyPath(url), body, fileMode(c.StrictPerms)); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	meta, err := json.Marshal(PageEntry{
		URL:          url,
		ContentType:  contentType,
		ETag:         etag,
		LastModified: lastModified,
		SavedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode page entry: %w", err)
	}
	tmp := c.metaPath(url) + ".tmp"
	if err := os.WriteFile(tmp, meta, fileMode(c.StrictPerms)); err != nil {
		return fmt.Errorf("write page entry: %w", err)
	}
	return os.Rename(tmp, c.metaPath(url))
}

func mkdir(dir string, strict bool) error {
	perm := os.FileMode(0o755)
	if strict {
		perm = 0o700
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	if strict {
		if info, err := os.Stat(dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(dir, 0o700)
		}
	}
	return nil
}

func fileMode(strict bool) os.FileMode {
	if strict {
		return 0o600
	}
	return 0o644
}
