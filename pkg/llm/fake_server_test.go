package llm_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role string `json:"role"`
	} `json:"messages"`
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// fakeOpenAI serves /chat/completions and /embeddings with canned bodies and
// records the decoded requests.
type fakeOpenAI struct {
	*httptest.Server
	chatBody      string
	embeddingBody string
	status        int
	hits          atomic.Int32
	lastChat      chatRequest
	lastEmbedding embeddingRequest
}

func newFakeOpenAI(t *testing.T) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{status: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
			return
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			json.NewDecoder(r.Body).Decode(&f.lastChat)
			w.Write([]byte(f.chatBody))
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			json.NewDecoder(r.Body).Decode(&f.lastEmbedding)
			w.Write([]byte(f.embeddingBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

const twoChoices = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-3.5-turbo",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": "Sweden won the men's curling gold."}, "finish_reason": "stop"},
    {"index": 1, "message": {"role": "assistant", "content": "Great Britain"}, "finish_reason": "stop"}
  ],
  "usage": {"prompt_tokens": 20, "completion_tokens": 8, "total_tokens": 28}
}`

const noChoices = `{"id": "chatcmpl-2", "object": "chat.completion", "created": 1700000000, "model": "gpt-3.5-turbo", "choices": []}`

const outOfOrderEmbeddings = `{
  "object": "list",
  "model": "text-embedding-ada-002",
  "data": [
    {"object": "embedding", "index": 1, "embedding": [0.0, 1.0, 0.5]},
    {"object": "embedding", "index": 0, "embedding": [1.0, 0.0, 0.25]}
  ],
  "usage": {"prompt_tokens": 4, "total_tokens": 4}
}`

const inOrderEmbeddings = `{
  "object": "list",
  "model": "text-embedding-ada-002",
  "data": [
    {"object": "embedding", "index": 0, "embedding": [1.0, 0.0, 0.25]},
    {"object": "embedding", "index": 1, "embedding": [0.0, 1.0, 0.5]}
  ],
  "usage": {"prompt_tokens": 4, "total_tokens": 4}
}`
