package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/barkeephq/barkeep/pkg/types"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"

	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

// AnthropicClient implements Client against the Anthropic Messages API
type AnthropicClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// AnthropicOption configures an AnthropicClient
type AnthropicOption func(*AnthropicClient)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(url string) AnthropicOption {
	return func(c *AnthropicClient) { c.baseURL = url }
}

// WithModel overrides the model id
func WithModel(model string) AnthropicOption {
	return func(c *AnthropicClient) { c.model = model }
}

// NewAnthropicClient creates a Messages API client
func NewAnthropicClient(apiKey string, opts ...AnthropicOption) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for Anthropic client")
	}
	c := &AnthropicClient{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		model:   defaultModel,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// anthropicRequest is the Messages API request body
type anthropicRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Tools     []types.ToolDef `json:"tools,omitempty"`
	Messages  []types.Message `json:"messages"`
}

// anthropicResponse is the Messages API response body
type anthropicResponse struct {
	StopReason string               `json:"stop_reason"`
	Content    []types.ContentBlock `json:"content"`
	Error      *anthropicError      `json:"error,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Call performs one non-streaming model turn
func (c *AnthropicClient) Call(ctx context.Context, req CallRequest) (*types.ModelResponse, error) {
	body := anthropicRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  req.Messages,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultMaxTokens
	}
	if req.ToolsEnabled {
		body.Tools = req.Tools
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiResp anthropicResponse
		if json.Unmarshal(data, &apiResp) == nil && apiResp.Error != nil {
			return nil, fmt.Errorf("API error: status %d: %s", resp.StatusCode, apiResp.Error.Message)
		}
		return nil, fmt.Errorf("API error: status %d: %s", resp.StatusCode, string(data))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &types.ModelResponse{
		StopReason: mapStopReason(apiResp.StopReason),
		Content:    apiResp.Content,
	}, nil
}

// mapStopReason folds the API's stop reasons into the engine's two-valued
// contract: anything other than a tool request means the turn is final.
func mapStopReason(reason string) types.StopReason {
	if reason == "tool_use" {
		return types.StopToolUse
	}
	return types.StopEndTurn
}
