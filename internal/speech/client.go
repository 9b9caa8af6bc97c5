package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Fetcher retrieves synthesized audio for text in the given voice.
type Fetcher interface {
	Synthesize(ctx context.Context, text, voice, apiKey string) ([]byte, error)
}

// ProxyClient fetches synthesized audio from the proxy's /api/tts endpoint.
type ProxyClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

func NewProxyClient(baseURL string) *ProxyClient {
	return &ProxyClient{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    baseURL,
	}
}

type ttsRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	APIKey string `json:"apiKey"`
}

type ttsResponse struct {
	Audio  string `json:"audio"`
	Format string `json:"format"`
	Error  string `json:"error"`
}

// Synthesize posts text to the proxy and decodes the base64 audio payload.
func (p *ProxyClient) Synthesize(ctx context.Context, text, voice, apiKey string) ([]byte, error) {
	payload, err := json.Marshal(ttsRequest{Text: text, Voice: voice, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("speech: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("speech: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: request failed: %w", err)
	}
	defer resp.Body.Close()

	var body ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("speech: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if body.Error != "" {
			return nil, fmt.Errorf("speech: server error: %s", body.Error)
		}
		return nil, fmt.Errorf("speech: server returned status %d", resp.StatusCode)
	}
	audio, err := base64.StdEncoding.DecodeString(body.Audio)
	if err != nil {
		return nil, fmt.Errorf("speech: decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech: empty audio response")
	}
	return audio, nil
}
