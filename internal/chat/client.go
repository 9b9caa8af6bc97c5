package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/llm"
)

// ErrNoAPIKey is returned when a message is sent without a usable key.
var ErrNoAPIKey = errors.New("chat: no API key available")

const defaultHistoryWindow = 10

// Client sends conversation turns to the chat proxy and returns the reply.
// One request per call; failures surface to the caller without retry.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	// Window bounds how many trailing history turns accompany a message.
	Window int
}

// NewClient targets the proxy at baseURL, e.g. "http://localhost:3002".
func NewClient(baseURL string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    baseURL,
		Window:     defaultHistoryWindow,
	}
}

type chatRequest struct {
	Message          string     `json:"message"`
	APIKey           string     `json:"apiKey"`
	PreviousMessages []llm.Turn `json:"previousMessages"`
}

type chatResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error"`
}

// SendMessage posts the message with a trailing window of history and
// returns the assistant reply.
func (c *Client) SendMessage(ctx context.Context, message string, history []llm.Turn, apiKey string) (string, error) {
	if apiKey == "" {
		return "", ErrNoAPIKey
	}
	window := c.Window
	if window <= 0 {
		window = defaultHistoryWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	payload, err := json.Marshal(chatRequest{
		Message:          message,
		APIKey:           apiKey,
		PreviousMessages: history,
	})
	if err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: request failed: %w", err)
	}
	defer resp.Body.Close()

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if body.Error != "" {
			return "", fmt.Errorf("chat: server error: %s", body.Error)
		}
		return "", fmt.Errorf("chat: server returned status %d", resp.StatusCode)
	}
	return body.Reply, nil
}
