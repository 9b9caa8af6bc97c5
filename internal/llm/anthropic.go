package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const messagesEndpoint = "https://api.anthropic.com/v1/messages"

// Turn is one prior exchange entry sent as conversation context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicClient calls the Anthropic messages API. One request per Generate
// call; failures propagate to the caller without retries.
type AnthropicClient struct {
	HTTPClient *http.Client
	Model      string
	System     string
	MaxTokens  int
}

type messagesRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    string `json:"system,omitempty"`
	Messages  []Turn `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	ID      string         `json:"id"`
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewAnthropicClient(model, system string) *AnthropicClient {
	if model == "" {
		model = "claude-3-5-haiku-20241022"
	}
	return &AnthropicClient{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Model:      model,
		System:     system,
		MaxTokens:  80,
	}
}

// Generate sends the conversation turns and returns the single reply text.
// The last turn must be the user's current message.
func (c *AnthropicClient) Generate(ctx context.Context, apiKey string, turns []Turn) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("anthropic api key missing")
	}
	if len(turns) == 0 {
		return "", fmt.Errorf("anthropic: no messages to send")
	}

	reqBody, _ := json.Marshal(messagesRequest{
		Model:     c.Model,
		MaxTokens: c.MaxTokens,
		System:    c.System,
		Messages:  turns,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messagesEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		var ae apiError
		if json.Unmarshal(b, &ae) == nil && ae.Error.Message != "" {
			return "", fmt.Errorf("anthropic error: status=%d message=%s", resp.StatusCode, ae.Error.Message)
		}
		return "", fmt.Errorf("anthropic error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var mr messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return "", err
	}
	if len(mr.Content) == 0 || mr.Content[0].Text == "" {
		return "", fmt.Errorf("anthropic: empty content")
	}
	return strings.TrimSpace(mr.Content[0].Text), nil
}
