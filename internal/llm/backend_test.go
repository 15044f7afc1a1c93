package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptforge/agent-departments/internal/config"
)

func sampleRequest() *Request {
	return &Request{
		Model: "test-model",
		Messages: []Message{
			{Role: RoleSystem, Content: "be helpful"},
			{Role: RoleUser, Content: "hi", Name: "sam"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "numbers?"},
		},
		Temperature: 0.7,
		MaxTokens:   300,
		Format:      FormatText,
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem(sampleRequest().Messages)
	assert.Equal(t, "be helpful", system)
	require.Len(t, rest, 3)
	assert.Equal(t, RoleUser, rest[0].Role)
	assert.Equal(t, "numbers?", rest[2].Content)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: "openai"})
	require.Error(t, err)

	_, err = New(context.Background(), config.LLMConfig{Provider: "mistral", APIKey: "k", MaxTokens: 1, Temperature: 0.5})
	require.Error(t, err)

	b, err := New(context.Background(), config.LLMConfig{Provider: "anthropic", APIKey: "k", MaxTokens: 1, Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, config.ProviderAnthropic, b.Name())
}

func TestOpenAIBackendComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Revenue is up."}}]}`)
	}))
	defer srv.Close()

	b := NewOpenAIBackend(config.LLMConfig{APIKey: "secret", BaseURL: srv.URL + "/"})
	out, err := b.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "Revenue is up.", out.Candidates[0].Content)

	assert.Equal(t, "test-model", body["model"])
	assert.InDelta(t, 0.7, body["temperature"], 1e-9)
	assert.EqualValues(t, 300, body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "text"}, body["response_format"])

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	roles := make([]string, 0, len(msgs))
	for _, m := range msgs {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, "sam", msgs[1].(map[string]any)["name"])
}

func TestOpenAIBackendDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	b := NewOpenAIBackend(config.LLMConfig{APIKey: "secret", BaseURL: srv.URL + "/"})
	_, err := b.Complete(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestAnthropicBackendComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"m1","type":"message","role":"assistant","model":"test-model",
			"content":[{"type":"text","text":"Part one. "},{"type":"text","text":"Part two."}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":4}}`)
	}))
	defer srv.Close()

	b := NewAnthropicBackend(config.LLMConfig{APIKey: "secret", BaseURL: srv.URL + "/"})
	out, err := b.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "Part one. Part two.", out.Candidates[0].Content)

	system, ok := body["system"].([]any)
	require.True(t, ok)
	assert.Equal(t, "be helpful", system[0].(map[string]any)["text"])
	assert.EqualValues(t, 300, body["max_tokens"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
}
