package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"food-analyzer/internal/analyzer"
)

var testImage = analyzer.Image{Base64: "aGVsbG8=", MediaType: "image/png"}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     url + "/",
		Model:       "gpt-4o",
		MaxTokens:   1000,
		Temperature: 0.5,
	}, zaptest.NewLogger(t))
}

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": %q}}],
  "usage": {"prompt_tokens": 900, "completion_tokens": 80, "total_tokens": 980}
}`

func TestComplete_SendsImageAndPrompts(t *testing.T) {
	var body map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, fmt.Sprintf(completion, `{"meal":[]}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv.URL).Complete(context.Background(), testImage)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if reply.Content != `{"meal":[]}` {
		t.Errorf("Content = %q", reply.Content)
	}
	if reply.PromptTokens != 900 || reply.CompletionTokens != 80 {
		t.Errorf("usage = %d/%d, want 900/80", reply.PromptTokens, reply.CompletionTokens)
	}
	if auth != "Bearer test-key" {
		t.Errorf("Authorization = %q", auth)
	}
	if body["model"] != "gpt-4o" {
		t.Errorf("model = %v", body["model"])
	}
	if body["max_tokens"] != float64(1000) {
		t.Errorf("max_tokens = %v, want 1000", body["max_tokens"])
	}
	if body["temperature"] != 0.5 {
		t.Errorf("temperature = %v, want 0.5", body["temperature"])
	}

	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v, want 2 entries", body["messages"])
	}
	system := messages[0].(map[string]any)
	if system["role"] != "system" || system["content"] != SystemPrompt {
		t.Errorf("system message = %v", system)
	}
	user := messages[1].(map[string]any)
	parts, _ := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("user content = %v, want text and image parts", user["content"])
	}
	text := parts[0].(map[string]any)
	if text["type"] != "text" || text["text"] != UserPrompt {
		t.Errorf("text part = %v", text)
	}
	image := parts[1].(map[string]any)
	imageURL, _ := image["image_url"].(map[string]any)
	if image["type"] != "image_url" || imageURL["url"] != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("image part = %v", image)
	}
}

func TestComplete_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		kind        analyzer.Kind
		httpStatus  int
	}{
		{
			name:        "rate limited",
			status:      http.StatusTooManyRequests,
			contentType: "application/json",
			body:        `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`,
			kind:        analyzer.KindUpstreamRejected,
			httpStatus:  http.StatusTooManyRequests,
		},
		{
			name:        "bad key",
			status:      http.StatusUnauthorized,
			contentType: "application/json",
			body:        `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`,
			kind:        analyzer.KindUpstreamRejected,
			httpStatus:  http.StatusUnauthorized,
		},
		{
			name:        "html error page",
			status:      http.StatusInternalServerError,
			contentType: "text/html",
			body:        `<html>oops</html>`,
			kind:        analyzer.KindUpstreamRejected,
			httpStatus:  http.StatusInternalServerError,
		},
		{
			name:        "no choices",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"id":"x","object":"chat.completion","model":"gpt-4o","choices":[]}`,
			kind:        analyzer.KindUpstreamMalformed,
			httpStatus:  http.StatusInternalServerError,
		},
		{
			name:        "empty content",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        fmt.Sprintf(completion, ""),
			kind:        analyzer.KindUpstreamMalformed,
			httpStatus:  http.StatusInternalServerError,
		},
		{
			name:        "not json",
			status:      http.StatusOK,
			contentType: "text/plain",
			body:        `hello`,
			kind:        analyzer.KindUpstreamMalformed,
			httpStatus:  http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).Complete(context.Background(), testImage)

			if got := analyzer.KindOf(err); got != tt.kind {
				t.Fatalf("kind = %v, want %v (err %v)", got, tt.kind, err)
			}
			e := err.(*analyzer.Error)
			if e.HTTPStatus() != tt.httpStatus {
				t.Errorf("HTTPStatus() = %d, want %d", e.HTTPStatus(), tt.httpStatus)
			}
		})
	}
}

func TestComplete_RejectedKeepsBodySnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream proxy down")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Complete(context.Background(), testImage)

	e, ok := err.(*analyzer.Error)
	if !ok {
		t.Fatalf("err = %v, want *analyzer.Error", err)
	}
	if !strings.Contains(e.Message, "upstream proxy down") {
		t.Errorf("Message = %q, want body snippet", e.Message)
	}
	if e.PublicMessage() != "OpenAI API error: 502" {
		t.Errorf("PublicMessage() = %q", e.PublicMessage())
	}
}

func TestComplete_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).Complete(context.Background(), testImage)

	if got := analyzer.KindOf(err); got != analyzer.KindUpstreamUnavailable {
		t.Fatalf("kind = %v, want upstream_unavailable (err %v)", got, err)
	}
}
