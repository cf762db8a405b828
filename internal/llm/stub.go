package llm

import (
	"encoding/json"
	"net/http"
	"strings"
)

type stubRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// NewStubHandler serves a minimal OpenAI-compatible API under /v1 for local
// runs and tests. Chat completions answer with the leading sentence of the
// text that follows the first blank line of the last user message, capped at
// max_tokens words.
func NewStubHandler(model string) http.Handler {
	if strings.TrimSpace(model) == "" {
		model = "stub-model"
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model", "owned_by": "stub"}},
		})
	})
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req stubRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		user := ""
		for _, m := range req.Messages {
			if m.Role == "user" {
				user = m.Content
			}
		}
		if _, text, ok := strings.Cut(user, "\n\n"); ok {
			user = text
		}
		content := leadSentence(user, req.MaxTokens)
		if content == "" {
			http.Error(w, "empty input", http.StatusBadRequest)
			return
		}
		writeStubJSON(w, map[string]any{
			"id":     "stub-1",
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})
	return mux
}

func leadSentence(text string, maxWords int) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		text = text[:i+1]
	}
	words := strings.Fields(text)
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}

func writeStubJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
