package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/voices"
)

// KeySentinel is the placeholder the proxy returns for keys it holds
// server-side. It is forwarded back verbatim instead of a literal key.
const KeySentinel = "ENVIRONMENT_PROVIDED"

// Keys holds what the proxy is willing to reveal about its credentials.
// A field is the sentinel when the server has the key, empty when it
// does not.
type Keys struct {
	DeepgramAPIKey string `json:"deepgramApiKey"`
	ClaudeAPIKey   string `json:"claudeApiKey"`
}

// FetchKeys asks the proxy which credentials are available.
func (c *Client) FetchKeys(ctx context.Context) (Keys, error) {
	var keys Keys
	if err := c.getJSON(ctx, "/api/keys", &keys); err != nil {
		return Keys{}, err
	}
	return keys, nil
}

// FetchVoices retrieves the voice catalog from the proxy.
func (c *Client) FetchVoices(ctx context.Context) ([]voices.Model, error) {
	var body struct {
		Voices []voices.Model `json:"voices"`
	}
	if err := c.getJSON(ctx, "/api/voices", &body); err != nil {
		return nil, err
	}
	return body.Voices, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("chat: build request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat: %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chat: decode %s response: %w", path, err)
	}
	return nil
}
