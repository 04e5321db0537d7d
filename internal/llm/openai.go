package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kwren/emissary/internal/httpkit"
)

// ErrMissingAPIKey is returned by NewOpenAI when no credential is
// configured. It is a configuration failure and should stop startup.
var ErrMissingAPIKey = errors.New("openai api key is not configured")

// OpenAIClient talks to an OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAI creates a chat-completions client. baseURL defaults to the
// hosted OpenAI API; override it to point at a proxy or a test server.
func NewOpenAI(baseURL, apiKey string, logger *slog.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(60 * time.Second),
		),
		logger: logger,
	}, nil
}

// errorResponse is the provider's error envelope.
type errorResponse struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// Chat sends one chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Log(ctx, LevelTrace, "chat completion request",
		"model", req.Model,
		"payload", string(body),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw := httpkit.ReadErrorBody(resp.Body, 4096)
		var errResp errorResponse
		if err := json.Unmarshal([]byte(raw), &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("chat completion API error %d: %s (type %s)",
				resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("chat completion API error %d: %s", resp.StatusCode, raw)
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	c.logger.Debug("chat completion response",
		"model", result.Model,
		"finish_reason", result.Choices[0].FinishReason,
		"tool_calls", len(result.Choices[0].Message.ToolCalls),
	)

	return &result, nil
}
