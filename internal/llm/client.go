// Package llm talks to the remote OpenAI-compatible chat completion
// endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"forge/internal/models"
)

const DefaultBaseURL = "https://api.groq.com/openai/v1"

type Request struct {
	Model       string
	Messages    []models.Message
	Temperature float64
	APIKey      string
}

type Completion struct {
	Content          string
	PromptTokens     int64
	CompletionTokens int64
}

// Completer sends a transcript and returns the assistant text.
type Completer interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// APIError is a non-success answer from the endpoint. Message carries the
// remote error text verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

var ErrEmptyResponse = errors.New("empty response from model")

type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient builds a client for baseURL. The bearer token is supplied
// per request so a changed credential takes effect immediately.
func NewOpenAIClient(baseURL string, httpClient *http.Client) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithHeader("X-Title", "Forge"),
		option.WithMiddleware(errorEnvelope),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Completion, error) {
	history := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			history = append(history, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			history = append(history, openai.AssistantMessage(m.Content))
		default:
			history = append(history, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    history,
		Temperature: openai.Float(req.Temperature),
	}, option.WithAPIKey(req.APIKey))
	if err != nil {
		var remote *APIError
		if errors.As(err, &remote) {
			return Completion{}, remote
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = "Failed to get response from API"
			}
			return Completion{}, &APIError{StatusCode: apiErr.StatusCode, Message: msg}
		}
		return Completion{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, ErrEmptyResponse
	}

	return Completion{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// errorEnvelope turns a non-success response into an *APIError carrying the
// envelope's human-readable message.
func errorEnvelope(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	res, err := next(req)
	if err != nil || res.StatusCode < 300 {
		return res, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	return nil, &APIError{StatusCode: res.StatusCode, Message: envelopeMessage(body)}
}

func envelopeMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return "Failed to get response from API"
}
