// Package testutil holds fakes shared by package tests.
package testutil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
)

// ChatCompletionServer is an httptest server speaking the minimal
// chat/completions protocol. It records every request body it receives.
type ChatCompletionServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []map[string]any
	headers  []http.Header
}

// NewChatCompletionServer answers POST /chat/completions with content as the
// assistant message. A non-zero status short-circuits with that status.
// Caller must call Close or register t.Cleanup(server.Close).
func NewChatCompletionServer(content string, status int) *ChatCompletionServer {
	s := &ChatCompletionServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" && r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.requests = append(s.requests, body)
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()

		if status != 0 && status != http.StatusOK {
			http.Error(w, `{"error":{"message":"mock failure"}}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	return s
}

// Requests returns the decoded request bodies received so far.
func (s *ChatCompletionServer) Requests() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.requests...)
}

// Headers returns the request headers received so far.
func (s *ChatCompletionServer) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Header(nil), s.headers...)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
