// Package api exposes the headline and article pipelines over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/newsdigest/internal/pipeline"
)

// DefaultMaxURLs bounds /scrape-articles/ and /summarize/ requests.
const DefaultMaxURLs = 10

const maxRequestBytes = 1 << 20

// HeadlineRunner runs the listing page pipeline.
type HeadlineRunner interface {
	RunMany(ctx context.Context, urls []string) []pipeline.HeadlineResult
}

// ArticleRunner runs the article pipeline.
type ArticleRunner interface {
	ProcessMany(ctx context.Context, urls []string) []pipeline.ArticleResult
}

// Recorder persists finished runs. Optional.
type Recorder interface {
	RecordHeadlines(ctx context.Context, res pipeline.HeadlineResult) (int64, error)
	RecordArticles(ctx context.Context, source string, results []pipeline.ArticleResult) (int64, error)
}

// Server holds the handlers. Headlines and Articles must be set.
type Server struct {
	Headlines HeadlineRunner
	Articles  ArticleRunner
	History   Recorder
	MaxURLs   int
	// Backend names the summarizer for /stats.
	Backend   string
	RateLimit time.Duration
	Logger    zerolog.Logger

	now func() time.Time
}

type urlsRequest struct {
	URLs []string `json:"urls"`
}

// SummarizeResponse is returned by POST /summarize-urls/.
type SummarizeResponse struct {
	TotalURLs  int                       `json:"total_urls"`
	Successful int                       `json:"successful"`
	Failed     int                       `json:"failed"`
	Results    []pipeline.HeadlineResult `json:"results"`
}

// ArticleResponse is returned by POST /scrape-articles/.
type ArticleResponse struct {
	Results               []pipeline.ArticleResult `json:"results"`
	TotalURLs             int                      `json:"total_urls"`
	Successful            int                      `json:"successful"`
	Failed                int                      `json:"failed"`
	ProcessingTimeSeconds float64                  `json:"processing_time_seconds"`
	Timestamp             string                   `json:"timestamp"`
	Stats                 pipeline.Stats           `json:"stats"`
}

type simpleArticle struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Summary string `json:"summary"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Handler returns the routed, CORS-enabled and request-logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /summarize-urls/", s.handleSummarizeURLs)
	mux.HandleFunc("POST /scrape-articles/", s.handleScrapeArticles)
	mux.HandleFunc("POST /summarize/", s.handleSummarizeSimple)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return s.logRequests(withCORS(mux))
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Server) maxURLs() int {
	if s.MaxURLs > 0 {
		return s.MaxURLs
	}
	return DefaultMaxURLs
}

func (s *Server) handleSummarizeURLs(w http.ResponseWriter, r *http.Request) {
	req, err := decodeURLs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "At least one URL is required")
		return
	}
	start := s.clock()
	s.Logger.Info().Int("urls", len(req.URLs)).Msg("summarize-urls started")

	results := s.Headlines.RunMany(r.Context(), req.URLs)
	resp := SummarizeResponse{TotalURLs: len(req.URLs), Results: results}
	for _, res := range results {
		if res.Status == pipeline.StatusSuccess {
			resp.Successful++
		} else {
			resp.Failed++
		}
		if s.History != nil {
			if _, err := s.History.RecordHeadlines(r.Context(), res); err != nil {
				s.Logger.Warn().Err(err).Str("url", res.URL).Msg("history write failed")
			}
		}
	}
	s.Logger.Info().Int("successful", resp.Successful).Int("failed", resp.Failed).
		Dur("took", s.clock().Sub(start)).Msg("summarize-urls complete")
	writeJSON(w, http.StatusOK, resp)
}

// articleURLs applies the shared request validation of the article endpoints.
func (s *Server) articleURLs(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	req, err := decodeURLs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	switch {
	case len(req.URLs) == 0:
		writeError(w, http.StatusBadRequest, "At least one URL is required")
		return nil, false
	case len(req.URLs) > s.maxURLs():
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d URLs allowed per request", s.maxURLs()))
		return nil, false
	case len(pipeline.ValidateURLs(req.URLs)) == 0:
		writeError(w, http.StatusBadRequest, "No valid URLs provided")
		return nil, false
	}
	return req.URLs, true
}

func (s *Server) processArticles(ctx context.Context, urls []string) []pipeline.ArticleResult {
	results := s.Articles.ProcessMany(ctx, urls)
	if s.History != nil {
		if _, err := s.History.RecordArticles(ctx, "api", results); err != nil {
			s.Logger.Warn().Err(err).Msg("history write failed")
		}
	}
	return results
}

func (s *Server) handleScrapeArticles(w http.ResponseWriter, r *http.Request) {
	urls, ok := s.articleURLs(w, r)
	if !ok {
		return
	}
	start := s.clock()
	results := s.processArticles(r.Context(), urls)
	st := pipeline.ComputeStats(results)
	elapsed := s.clock().Sub(start)
	s.Logger.Info().Int("successful", st.Successful).Int("failed", st.Failed).Dur("took", elapsed).Msg("scrape-articles complete")

	writeJSON(w, http.StatusOK, ArticleResponse{
		Results:               results,
		TotalURLs:             len(urls),
		Successful:            st.Successful,
		Failed:                st.Failed,
		ProcessingTimeSeconds: math.Round(elapsed.Seconds()*100) / 100,
		Timestamp:             s.clock().Format(time.RFC3339),
		Stats:                 st,
	})
}

func (s *Server) handleSummarizeSimple(w http.ResponseWriter, r *http.Request) {
	urls, ok := s.articleURLs(w, r)
	if !ok {
		return
	}
	results := s.processArticles(r.Context(), urls)
	out := make([]simpleArticle, len(results))
	for i, res := range results {
		out[i] = simpleArticle{URL: res.URL, Title: res.Title, Content: res.Content, Summary: res.Summary}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"service":        "newsdigest",
		"timestamp":      s.clock().Format(time.RFC3339),
		"pipeline_ready": s.Headlines != nil && s.Articles != nil,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	if s.Headlines == nil || s.Articles == nil {
		status = "not_ready"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"api_info": map[string]any{
			"name":       "newsdigest",
			"backend":    s.Backend,
			"rate_limit": s.RateLimit.String(),
		},
		"pipeline_status": status,
		"limits": map[string]any{
			"max_urls_per_request": s.maxURLs(),
		},
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "News digest: headline and article summarization API",
		"endpoints": map[string]string{
			"POST /summarize-urls/":  "summarize the headlines of listing pages",
			"POST /scrape-articles/": "scrape and summarize article URLs",
			"POST /summarize/":       "article summaries in a compact format",
			"GET /health":            "health check",
			"GET /stats":             "limits and backend information",
		},
		"example_request": urlsRequest{URLs: []string{"https://example.com/article1"}},
	})
}

func decodeURLs(r *http.Request) (urlsRequest, error) {
	var req urlsRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.New("request body is empty")
		}
		return req, fmt.Errorf("invalid JSON body: %v", err)
	}
	trimmed := req.URLs[:0]
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			trimmed = append(trimmed, u)
		}
	}
	req.URLs = trimmed
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Detail: msg})
}
