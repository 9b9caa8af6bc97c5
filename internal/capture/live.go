package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Segment is one transcription result from the live stream.
type Segment struct {
	Text    string
	IsFinal bool
}

// Stream is a live speech-to-text session. Implementations deliver results
// until closed; SendAudio accepts PCM 16kHz little-endian mono.
type Stream interface {
	Results() <-chan Segment
	SendAudio(pcm []byte) error
	Close() error
}

// Dialer opens a transcription stream with the given API key.
type Dialer func(ctx context.Context, apiKey string) (Stream, error)

const listenEndpoint = "wss://api.deepgram.com/v1/listen"

// LiveSession is a Deepgram streaming transcription session over WebSocket.
type LiveSession struct {
	conn    *websocket.Conn
	results chan Segment
	audio   chan []byte
	stopCh  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Deepgram live message shapes. Only the fields the session reads.
type resultsMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type metadataMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
}

// DialDeepgram connects to the Deepgram live transcription API.
func DialDeepgram(ctx context.Context, apiKey string) (Stream, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram API key is empty")
	}

	params := url.Values{}
	params.Set("model", "nova-3")
	params.Set("interim_results", "true")
	params.Set("smart_format", "true")
	params.Set("encoding", "linear16")
	params.Set("sample_rate", "16000")
	params.Set("channels", "1")

	wsURL := fmt.Sprintf("%s?%s", listenEndpoint, params.Encode())
	headers := map[string][]string{
		"Authorization": {"Token " + apiKey},
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			log.Printf("Deepgram connection failed with status: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect to Deepgram: %w", err)
	}

	s := &LiveSession{
		conn:    conn,
		results: make(chan Segment, 100),
		audio:   make(chan []byte, 1000),
		stopCh:  make(chan struct{}),
	}
	go s.readLoop()
	go s.writeLoop()

	log.Println("Connected to Deepgram live transcription")
	return s, nil
}

// Results returns the channel of live transcription segments. It is closed
// when the session ends.
func (s *LiveSession) Results() <-chan Segment { return s.results }

// SendAudio queues a PCM chunk for delivery. Full buffers drop the chunk
// rather than blocking capture.
func (s *LiveSession) SendAudio(pcm []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("transcription session closed")
	}
	select {
	case s.audio <- pcm:
		return nil
	default:
		log.Println("Audio buffer full, dropping packet")
		return nil
	}
}

// Close terminates the stream. It tells Deepgram to flush and close, then
// tears the connection down. Safe to call once.
func (s *LiveSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.stopCh)
	_ = s.conn.WriteJSON(map[string]string{"type": "CloseStream"})
	_ = s.conn.Close()
	log.Println("Deepgram connection closed")
	return nil
}

func (s *LiveSession) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in readLoop: %v", r)
		}
	}()
	defer close(s.results)
	for {
		select {
		case <-s.stopCh:
			return
		default:
			_, message, err := s.conn.ReadMessage()
			if err != nil {
				select {
				case <-s.stopCh:
				default:
					log.Printf("Error reading message: %v", err)
				}
				return
			}
			s.processMessage(message)
		}
	}
}

func (s *LiveSession) processMessage(message []byte) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &base); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}
	switch base.Type {
	case "Results":
		var msg resultsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling Results message: %v", err)
			return
		}
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		text := msg.Channel.Alternatives[0].Transcript
		if text == "" {
			return
		}
		select {
		case s.results <- Segment{Text: text, IsFinal: msg.IsFinal}:
		default:
		}
	case "Metadata":
		var msg metadataMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			log.Printf("Deepgram session metadata: request_id=%s", msg.RequestID)
		}
	case "UtteranceEnd", "SpeechStarted":
		// informational only
	default:
		log.Printf("Unknown message type: %s", base.Type)
	}
}

// writeLoop ships queued audio and periodic keepalives so Deepgram does not
// drop the socket during user silence.
func (s *LiveSession) writeLoop() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in writeLoop: %v", r)
		}
	}()
	keepalive := time.NewTicker(5 * time.Second)
	defer keepalive.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case pcm := <-s.audio:
			if err := s.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
				log.Printf("Error sending audio data: %v", err)
				return
			}
		case <-keepalive.C:
			if err := s.conn.WriteJSON(map[string]string{"type": "KeepAlive"}); err != nil {
				log.Printf("Error sending keepalive: %v", err)
				return
			}
		}
	}
}
