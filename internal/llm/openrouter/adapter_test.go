package openrouter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loopline/concierge/internal/llm"
	"github.com/loopline/concierge/internal/llm/openrouter"
	"github.com/loopline/concierge/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messages = []api.ChatMessage{{Role: api.RoleUser, Content: "Hi"}}

func TestComplete_Success(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Hello there"}}]}`))
	}))
	defer server.Close()

	adapter := openrouter.New(openrouter.Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Referer: "https://loopline.app",
		Title:   "Loopline",
	})

	content, err := adapter.Complete(context.Background(), llm.CompletionRequest{
		Messages: messages,
		Model:    "meta-llama/llama-3.1-70b-instruct",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello there", content)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "meta-llama/llama-3.1-70b-instruct", gotBody["model"])
	assert.Equal(t, float64(1024), gotBody["max_tokens"])
}

func TestComplete_NotConfigured(t *testing.T) {
	adapter := openrouter.New(openrouter.Config{})

	_, err := adapter.Complete(context.Background(), llm.CompletionRequest{Messages: messages})

	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestComplete_ClassifiesAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid API key"}}`))
	}))
	defer server.Close()

	adapter := openrouter.New(openrouter.Config{APIKey: "bad", BaseURL: server.URL})

	_, err := adapter.Complete(context.Background(), llm.CompletionRequest{Messages: messages})

	var cf *llm.ClassifiedFailure
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, llm.FailureAuth, cf.Kind)
	assert.Equal(t, "openrouter", cf.Provider)
	assert.Equal(t, "Invalid API key", cf.Message)
}

func TestComplete_ClassifiesMissingModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No endpoints found for bogus/model"}}`))
	}))
	defer server.Close()

	adapter := openrouter.New(openrouter.Config{APIKey: "k", BaseURL: server.URL})

	_, err := adapter.Complete(context.Background(), llm.CompletionRequest{
		Messages: messages,
		Model:    "bogus/model",
	})

	var cf *llm.ClassifiedFailure
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, llm.FailureModelUnavailable, cf.Kind)
}

func TestComplete_StringCodeInErrorBody(t *testing.T) {
	// Some upstream errors carry the code as a JSON string.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"code":"429","message":"Provider rate limited","metadata":{"raw":"rate-limit hit"}}}`))
	}))
	defer server.Close()

	adapter := openrouter.New(openrouter.Config{APIKey: "k", BaseURL: server.URL})

	_, err := adapter.Complete(context.Background(), llm.CompletionRequest{Messages: messages})

	var cf *llm.ClassifiedFailure
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, llm.FailureRateLimited, cf.Kind)
}

func TestComplete_EmptyChoicesIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	adapter := openrouter.New(openrouter.Config{APIKey: "k", BaseURL: server.URL})

	_, err := adapter.Complete(context.Background(), llm.CompletionRequest{Messages: messages})

	var cf *llm.ClassifiedFailure
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, llm.FailureFatal, cf.Kind)
}
