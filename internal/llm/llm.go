package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopchat/shopchat/internal/errs"
)

// Message represents a message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the consumer-side contract for a chat-completion provider.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Client talks to an OpenAI-compatible chat-completions endpoint. It carries
// no retry policy of its own; retry decisions belong to callers.
type Client struct {
	apiKey     string
	url        string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates a chat-completion client. Missing credentials are not an
// error here; Complete fails with a config error on first use.
func NewClient(apiKey, url, model string, maxTokens int, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		url:        url,
		model:      model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete sends the conversation and returns the generated text.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" || c.url == "" || c.model == "" {
		return "", fmt.Errorf("llm api key, url and model are required: %w", errs.ErrConfig)
	}

	jsonData, err := json.Marshal(request{Model: c.model, Messages: messages, MaxTokens: c.maxTokens})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		ue := &errs.UpstreamError{Service: "llm", Status: resp.StatusCode, Body: snippet(body)}
		if resp.StatusCode == http.StatusTooManyRequests {
			ue.Retryable = true
			ue.RetryAfter = retryAfter(resp.Header.Get("Retry-After"))
		}
		return "", ue
	}

	var llmResp response
	if err := json.Unmarshal(body, &llmResp); err != nil {
		return "", &errs.UpstreamError{Service: "llm", Status: resp.StatusCode, Body: "invalid response body"}
	}
	if len(llmResp.Choices) == 0 {
		return "", &errs.UpstreamError{Service: "llm", Status: resp.StatusCode, Body: "no choices in response"}
	}
	content := llmResp.Choices[0].Message.Content
	if content == "" {
		return "", &errs.UpstreamError{Service: "llm", Status: resp.StatusCode, Body: "empty message content"}
	}
	return content, nil
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func snippet(body []byte) string {
	const max = 256
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
