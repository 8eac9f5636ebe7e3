package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"forge/internal/models"
)

func TestOpenAIClientComplete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth, path string
	var decodeErr error

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		decodeErr = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama3-70b-8192",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "hello there"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, srv.Client())
	out, err := c.Complete(context.Background(), Request{
		Model:       "llama3-70b-8192",
		Temperature: 0.7,
		APIKey:      "sk-test",
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: "sys"},
			{Role: models.RoleUser, Content: "hi"},
			{Role: models.RoleAssistant, Content: "yo"},
			{Role: models.RoleUser, Content: "Tool result:\n[]"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "hello there", out.Content)
	require.EqualValues(t, 12, out.PromptTokens)
	require.EqualValues(t, 3, out.CompletionTokens)

	require.NoError(t, decodeErr)
	require.Equal(t, "/chat/completions", path)
	require.Equal(t, "Bearer sk-test", auth)
	require.Equal(t, "llama3-70b-8192", got.Model)
	require.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 4)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "assistant", got.Messages[2].Role)
	require.Equal(t, "user", got.Messages[3].Role)
	require.Equal(t, "Tool result:\n[]", got.Messages[3].Content)
}

func TestOpenAIClientSurfacesRemoteErrorWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached for model", "type": "tokens"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, srv.Client())
	_, err := c.Complete(context.Background(), Request{Model: "m", APIKey: "k", Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}}})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, "Rate limit reached for model", apiErr.Message)
	require.EqualValues(t, 1, calls.Load())
}

func TestOpenAIClientEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 0, "model": "m", "choices": []}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, srv.Client())
	_, err := c.Complete(context.Background(), Request{Model: "m", APIKey: "k"})
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestEnvelopeMessage(t *testing.T) {
	require.Equal(t, "bad key", envelopeMessage([]byte(`{"error":{"message":"bad key"}}`)))
	require.Equal(t, "flat", envelopeMessage([]byte(`{"message":"flat"}`)))
	require.Equal(t, "Failed to get response from API", envelopeMessage([]byte(`<html>`)))
}
