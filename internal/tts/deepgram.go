package tts

import (
	"context"
	"fmt"
	"log"

	speakv1 "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	speak "github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

// MimeType is the container the Aura voices emit with default options.
const MimeType = "audio/mpeg"

// DeepgramClient synthesizes speech through the Deepgram speak REST API.
type DeepgramClient struct {
	model string
}

func NewDeepgramClient(model string) *DeepgramClient {
	if model == "" {
		model = "aura-luna-en"
	}
	return &DeepgramClient{model: model}
}

// Synthesize converts text into audio bytes using the given voice model (the
// client default when empty). The whole response is buffered; callers receive
// a complete, playable file.
func (d *DeepgramClient) Synthesize(ctx context.Context, apiKey, text, model string) ([]byte, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram: API key missing")
	}
	if text == "" {
		return nil, fmt.Errorf("deepgram: empty text")
	}
	if model == "" {
		model = d.model
	}

	c := speak.NewREST(apiKey, &interfaces.ClientOptions{})
	dg := speakv1.New(c)

	options := &interfaces.SpeakOptions{
		Model: model,
	}

	buf := new(interfaces.RawResponse)
	if _, err := dg.ToStream(ctx, text, options, buf); err != nil {
		return nil, fmt.Errorf("deepgram: speak request: %w", err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("deepgram: empty audio response")
	}
	log.Printf("tts: synthesized %d bytes with voice %s", buf.Len(), model)
	return buf.Bytes(), nil
}
