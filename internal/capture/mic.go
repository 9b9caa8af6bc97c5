package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate      = 16000
	framesPerBuffer = 1024
)

// MicSource reads mono 16kHz PCM from the default input device.
type MicSource struct {
	stream *portaudio.Stream
	frames []int16
}

// AudioSource produces raw PCM chunks until its context is cancelled.
type AudioSource interface {
	Start(ctx context.Context) (<-chan []byte, error)
	Close() error
}

// NewMicSource initializes portaudio and opens the default input stream.
func NewMicSource() (*MicSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	frames := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(frames), frames)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	return &MicSource{stream: stream, frames: frames}, nil
}

// Start begins capture and returns a channel of little-endian PCM chunks.
// The channel closes when ctx is cancelled or the device errors.
func (m *MicSource) Start(ctx context.Context) (<-chan []byte, error) {
	if err := m.stream.Start(); err != nil {
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}
	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				_ = m.stream.Stop()
				return
			default:
			}
			if err := m.stream.Read(); err != nil {
				log.Printf("Error reading microphone: %v", err)
				_ = m.stream.Stop()
				return
			}
			chunk := make([]byte, len(m.frames)*2)
			for i, s := range m.frames {
				binary.LittleEndian.PutUint16(chunk[i*2:], uint16(s))
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				_ = m.stream.Stop()
				return
			}
		}
	}()
	return out, nil
}

// Close releases the stream and the portaudio runtime.
func (m *MicSource) Close() error {
	err := m.stream.Close()
	portaudio.Terminate()
	return err
}
