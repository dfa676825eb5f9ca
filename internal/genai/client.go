// Package genai owns every call to the external text-generation backend:
// concurrency bounding, per-attempt timeouts, classified retries, and the
// fallback replies returned when the backend cannot produce one.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseSize limits the backend response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Message represents one chat message sent to the backend.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // Message content
}

// ClientConfig configures the wire client for an OpenAI-compatible backend.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client speaks the OpenAI-compatible chat completions protocol.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient creates a wire client. The http.Client carries no timeout of
// its own; callers bound each request through the context.
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 400
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// chatRequest is the OpenAI-compatible request format.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// chatResponse is the OpenAI-compatible response format.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete executes a single chat completion request. Errors are wrapped
// with the class the retry loop needs: rate-limit, transient, or fatal.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	url := c.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network errors and attempt timeouts are transient
		return "", NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return "", NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", classifyHTTPError(httpResp.StatusCode, respBody)
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", NewFatalError(fmt.Errorf("parse response: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", NewFatalError(fmt.Errorf("no choices in response"))
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyHTTPError sorts an HTTP error into the retry loop's classes.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("generation API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(err)
	case statusCode >= 500:
		// Server-side errors are transient
		return NewTransientError(err)
	default:
		// Auth errors, bad requests, and anything unknown are fatal
		return NewFatalError(err)
	}
}
