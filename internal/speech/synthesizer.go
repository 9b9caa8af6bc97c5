package speech

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrBusy is returned when Speak is called while a previous request is
// still fetching or playing.
var ErrBusy = errors.New("speech: synthesis already in progress")

const (
	// safetyMargin pads the decoded duration before the watchdog fires.
	safetyMargin = 2 * time.Second
	// fallbackTimeout bounds playback when the duration is unknown.
	fallbackTimeout = 10 * time.Second
)

// Synthesizer speaks one utterance at a time: fetch (or reuse cached)
// audio, play it, and report lifecycle events through the hooks. A watchdog
// ends the session even if the player never signals completion.
type Synthesizer struct {
	fetch  Fetcher
	player Player
	cache  *Cache

	OnPlaybackStarted  func()
	OnPlaybackFinished func()

	mu       sync.Mutex
	inflight bool
	speaking bool
	voice    string
	apiKey   string
	active   *sync.Once
	margin   time.Duration
	gen      uint64
	stopGen  uint64
}

// NewSynthesizer builds a synthesizer with a bounded audio cache.
func NewSynthesizer(fetch Fetcher, player Player, voice string) *Synthesizer {
	return &Synthesizer{
		fetch:  fetch,
		player: player,
		cache:  NewCache(defaultCacheCap),
		voice:  voice,
		margin: safetyMargin,
	}
}

// SetVoice selects the voice for subsequent utterances.
func (s *Synthesizer) SetVoice(voice string) {
	s.mu.Lock()
	s.voice = voice
	s.mu.Unlock()
}

// SetAPIKey sets the key forwarded with synthesis requests.
func (s *Synthesizer) SetAPIKey(key string) {
	s.mu.Lock()
	s.apiKey = key
	s.mu.Unlock()
}

// IsSpeaking reports whether audio is currently playing.
func (s *Synthesizer) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Speak fetches audio for text and plays it. A second call before the first
// finishes returns ErrBusy. Speak returns once playback has started; the
// finished hook fires later from a background goroutine.
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return ErrBusy
	}
	s.inflight = true
	s.gen++
	gen := s.gen
	voice := s.voice
	apiKey := s.apiKey
	s.mu.Unlock()

	audio, ok := s.cache.Get(text, voice)
	if !ok {
		fetched, err := s.fetch.Synthesize(ctx, text, voice, apiKey)
		if err != nil {
			s.mu.Lock()
			s.inflight = false
			s.mu.Unlock()
			return err
		}
		s.cache.Put(text, voice, fetched)
		audio = fetched
	} else {
		log.Printf("speech: cache hit for %d chars", len(text))
	}

	// A Stop that arrived while fetching means nobody wants this audio.
	s.mu.Lock()
	if s.stopGen >= gen {
		s.inflight = false
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	once := &sync.Once{}
	done, d, err := s.player.Play(audio, func() {
		s.mu.Lock()
		s.speaking = true
		s.active = once
		started := s.OnPlaybackStarted
		s.mu.Unlock()
		if started != nil {
			started()
		}
	})
	if err != nil {
		s.mu.Lock()
		s.inflight = false
		s.speaking = false
		s.active = nil
		s.mu.Unlock()
		return err
	}

	timeout := fallbackTimeout
	if d > 0 {
		timeout = d + s.margin
	}
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			log.Printf("speech: playback watchdog fired after %s", timeout)
			s.player.Stop()
		}
		s.finish(once)
	}()
	return nil
}

// Stop halts playback immediately and cancels a fetch still in flight.
// Calling it when idle is a no-op.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	s.stopGen = s.gen
	once := s.active
	s.mu.Unlock()
	s.player.Stop()
	if once != nil {
		s.finish(once)
	}
}

// finish ends the playback session exactly once.
func (s *Synthesizer) finish(once *sync.Once) {
	once.Do(func() {
		s.mu.Lock()
		s.speaking = false
		s.inflight = false
		if s.active == once {
			s.active = nil
		}
		finished := s.OnPlaybackFinished
		s.mu.Unlock()
		if finished != nil {
			finished()
		}
	})
}
