package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ipv4Server struct {
	URL string
	srv *http.Server
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	s := &ipv4Server{URL: "http://" + ln.Addr().String(), srv: srv}
	t.Cleanup(s.Close)
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"id": "cmpl-1",
		"choices": []any{map[string]any{
			"index":   0,
			"message": map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
	}
}

func fastConfig(url string) RuntimeConfig {
	return RuntimeConfig{
		APIKey:      "test-key",
		BaseURL:     url,
		HTTPTimeout: 2 * time.Second,
		RetryMax:    3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func userReq(json bool) GenerateRequest {
	return GenerateRequest{
		Model:    "gpt-4o-mini",
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		JSON:     json,
	}
}

func TestOpenAIGenerateSuccess(t *testing.T) {
	var body map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(chatCompletion(`{"ok":true}`))
	}))

	c, err := NewOpenAIClient(ProviderOpenAI, fastConfig(srv.URL))
	require.NoError(t, err)
	resp, err := c.Generate(context.Background(), userReq(true))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	msgs, _ := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	rf, _ := body["response_format"].(map[string]any)
	assert.Equal(t, "json_object", rf["type"])
}

func TestOpenAIGenerateRetriesOn429(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited", "type": "requests"}})
			return
		}
		_ = json.NewEncoder(w).Encode(chatCompletion("hello"))
	}))

	c, err := NewOpenAIClient(ProviderOpenRouter, fastConfig(srv.URL))
	require.NoError(t, err)
	resp, err := c.Generate(context.Background(), userReq(false))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestOpenAIGenerateAuthErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad key"}})
	}))

	c, err := NewOpenAIClient(ProviderOpenAI, fastConfig(srv.URL))
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), userReq(false))
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestOpenAIGenerateServerErrorExhaustsRetries(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "upstream"}})
	}))

	c, err := NewOpenAIClient(ProviderOpenAI, fastConfig(srv.URL))
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), userReq(false))
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestOllamaUsesV1Surface(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(chatCompletion("hello from ollama"))
	}))

	c, err := NewOllamaClient(RuntimeConfig{Host: srv.URL, HTTPTimeout: 2 * time.Second, RetryMax: 1})
	require.NoError(t, err)
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "hello from ollama", resp.Text)
}

func TestGenerateValidatesRequest(t *testing.T) {
	c, err := NewOllamaClient(RuntimeConfig{})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), GenerateRequest{Model: "m"})
	assert.EqualError(t, err, "messages cannot be empty")
	_, err = c.Generate(context.Background(), GenerateRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.EqualError(t, err, "model cannot be empty")
}

func TestRegistry(t *testing.T) {
	rt, err := GetRuntime("none", RuntimeConfig{})
	assert.NoError(t, err)
	assert.Nil(t, rt)

	_, err = GetRuntime("openai", RuntimeConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = GetRuntime("bard", RuntimeConfig{})
	assert.ErrorContains(t, err, "unknown provider")

	rt, err = GetRuntime("Ollama", RuntimeConfig{})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, rt)

	assert.Equal(t, []string{"anthropic", "ollama", "openai", "openrouter"}, Providers())
}

func TestClassifyError(t *testing.T) {
	notFound := &openai.APIError{HTTPStatusCode: 404, Message: "The model `x` does not exist or model not found"}
	var mnf *ModelNotFoundError
	assert.ErrorAs(t, classifyError("openai", "", notFound), &mnf)

	quota := &openai.APIError{HTTPStatusCode: 403, Message: "billing"}
	var auth *AuthError
	assert.ErrorAs(t, classifyError("openai", "", quota), &auth)

	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	var ue *UnreachableError
	assert.ErrorAs(t, classifyError("ollama", "http://127.0.0.1:11434", refused), &ue)
	assert.Contains(t, ue.Error(), "127.0.0.1:11434")

	anthropicText := errors.New("anthropic api error type: overloaded_error, message: Overloaded")
	var se *ServerError
	assert.ErrorAs(t, classifyError("anthropic", "", anthropicText), &se)
}

func TestRetryStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second}.Do(ctx, zap.NewNop(), func(context.Context) error {
		calls++
		cancel()
		return &ServerError{APIError: &APIError{StatusCode: 503}}
	})
	var se *ServerError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, 1, calls)
}
