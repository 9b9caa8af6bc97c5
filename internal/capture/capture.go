package capture

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

const (
	defaultSilenceWindow = 3 * time.Second
	// settleDelay lets a trailing final result land before the transcript
	// is handed off.
	defaultSettleDelay = 500 * time.Millisecond
)

// Recognizer turns microphone audio into an accumulated transcript. Final
// segments are joined with spaces; the current interim segment is appended
// for display but replaced by the next result. After the transcript is
// non-empty, a silence window with no new results ends the session and
// delivers the transcript once.
type Recognizer struct {
	dial    Dialer
	source  AudioSource
	silence time.Duration
	settle  time.Duration

	// OnTranscript receives the current combined transcript after every
	// result, for live display.
	OnTranscript func(text string)
	// OnComplete receives the finished transcript exactly once per
	// session, after the settle delay.
	OnComplete func(text string)

	mu        sync.Mutex
	listening bool
	finals    []string
	interim   string
	stream    Stream
	cancel    context.CancelFunc
	silencer  *time.Timer
	delivered bool
	session   uint64
}

// NewRecognizer wires a transcription dialer to an audio source. A zero
// silence window uses the default.
func NewRecognizer(dial Dialer, source AudioSource, silence time.Duration) *Recognizer {
	if silence <= 0 {
		silence = defaultSilenceWindow
	}
	return &Recognizer{
		dial:    dial,
		source:  source,
		silence: silence,
		settle:  defaultSettleDelay,
	}
}

// IsListening reports whether a capture session is active.
func (r *Recognizer) IsListening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

// Transcript returns the current combined transcript.
func (r *Recognizer) Transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.combinedLocked()
}

func (r *Recognizer) combinedLocked() string {
	parts := r.finals
	if r.interim != "" {
		parts = append(append([]string{}, r.finals...), r.interim)
	}
	return strings.Join(parts, " ")
}

// StartListening opens the transcription stream and begins pumping audio.
// Calling it while already listening is a no-op. The previous transcript is
// discarded.
func (r *Recognizer) StartListening(ctx context.Context, apiKey string) error {
	r.mu.Lock()
	if r.listening {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	stream, err := r.dial(ctx, apiKey)
	if err != nil {
		log.Printf("Failed to start transcription: %v", err)
		return fmt.Errorf("start transcription: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	audio, err := r.source.Start(sessionCtx)
	if err != nil {
		cancel()
		_ = stream.Close()
		log.Printf("Failed to start audio capture: %v", err)
		return fmt.Errorf("start audio capture: %w", err)
	}

	r.mu.Lock()
	r.listening = true
	r.delivered = false
	r.session++
	r.finals = nil
	r.interim = ""
	r.stream = stream
	r.cancel = cancel
	r.mu.Unlock()

	go r.pumpAudio(audio, stream)
	go r.consumeResults(stream)
	return nil
}

func (r *Recognizer) pumpAudio(audio <-chan []byte, stream Stream) {
	for chunk := range audio {
		if err := stream.SendAudio(chunk); err != nil {
			return
		}
	}
}

func (r *Recognizer) consumeResults(stream Stream) {
	for seg := range stream.Results() {
		r.mu.Lock()
		if !r.listening || r.stream != stream {
			r.mu.Unlock()
			continue
		}
		if seg.IsFinal {
			if t := strings.TrimSpace(seg.Text); t != "" {
				r.finals = append(r.finals, t)
			}
			r.interim = ""
		} else {
			r.interim = seg.Text
		}
		combined := r.combinedLocked()
		notify := r.OnTranscript
		if combined != "" {
			r.resetSilenceLocked()
		}
		r.mu.Unlock()
		if notify != nil {
			notify(combined)
		}
	}
}

// resetSilenceLocked restarts the silence countdown. Called with r.mu held.
func (r *Recognizer) resetSilenceLocked() {
	if r.silencer != nil {
		r.silencer.Stop()
	}
	r.silencer = time.AfterFunc(r.silence, func() {
		log.Println("Silence window elapsed, stopping capture")
		r.StopListening()
	})
}

// StopListening ends the capture session and, if the transcript is
// non-empty, delivers it to OnComplete after the settle delay. Safe to call
// when not listening.
func (r *Recognizer) StopListening() {
	r.stop(true)
}

// ClearTranscript drops the accumulated transcript and suppresses any
// pending delivery for the current session.
func (r *Recognizer) ClearTranscript() {
	r.mu.Lock()
	r.finals = nil
	r.interim = ""
	r.delivered = true
	r.mu.Unlock()
}

func (r *Recognizer) stop(deliver bool) {
	r.mu.Lock()
	if !r.listening {
		r.mu.Unlock()
		return
	}
	r.listening = false
	if r.silencer != nil {
		r.silencer.Stop()
		r.silencer = nil
	}
	cancel := r.cancel
	stream := r.stream
	r.cancel = nil
	r.stream = nil

	text := r.combinedLocked()
	fire := deliver && !r.delivered && text != ""
	session := r.session
	complete := r.OnComplete
	settle := r.settle
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		_ = stream.Close()
	}
	if fire && complete != nil {
		// Delivery is decided again after the settle delay; a clear in the
		// meantime (or a new session) wins.
		time.AfterFunc(settle, func() {
			r.mu.Lock()
			if r.delivered || r.session != session {
				r.mu.Unlock()
				return
			}
			r.delivered = true
			r.mu.Unlock()
			complete(text)
		})
	}
}
