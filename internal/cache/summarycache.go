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
	"strconv"
	"time"
)

// SummaryCache stores generated summaries so re-running a digest over the
// same articles does not call the model again.
type SummaryCache struct {
	Dir         string
	StrictPerms bool
}

type summaryRecord struct {
	Backend string    `json:"backend"`
	Summary string    `json:"summary"`
	SavedAt time.Time `json:"saved_at"`
}

const summarySuffix = ".summary.json"

// SummaryKey derives the cache key from the backend identity, the output
// length bounds and the exact input text.
func SummaryKey(backend string, maxLen, minLen int, text string) string {
	h := sha256.New()
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(maxLen) + ":" + strconv.Itoa(minLen)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *SummaryCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+summarySuffix)
}

// Get returns the cached summary for key.
func (c *SummaryCache) Get(_ context.Context, key string) (string, bool, error) {
	if c == nil || c.Dir == "" {
		return "", false, errors.New("cache dir not configured")
	}
	b, err := os.ReadFile(c.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var rec summaryRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return "", false, fmt.Errorf("decode summary: %w", err)
	}
	return rec.Summary, true, nil
}

// Put stores summary under key.
func (c *SummaryCache) Put(_ context.Context, key string, backend string, summary string) error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	if err := mkdir(c.Dir, c.StrictPerms); err != nil {
		return err
	}
	b, err := json.Marshal(summaryRecord{Backend: backend, Summary: summary, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return os.WriteFile(c.pathFor(key), b, fileMode(c.StrictPerms))
}
