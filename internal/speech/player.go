package speech

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Player plays one audio buffer at a time. Play reports the decoded duration
// and a channel closed when playback runs to completion. Stop cuts playback
// short; the done channel does not fire in that case.
type Player interface {
	Play(audio []byte, onStarted func()) (done <-chan struct{}, d time.Duration, err error)
	Stop()
}

// BeepPlayer plays MP3 buffers through the system speaker.
type BeepPlayer struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
}

func NewBeepPlayer() *BeepPlayer {
	return &BeepPlayer{}
}

// Play decodes the MP3 buffer and starts playback. The speaker is
// (re)initialized when the sample rate changes between files.
func (p *BeepPlayer) Play(audio []byte, onStarted func()) (<-chan struct{}, time.Duration, error) {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(audio)))
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}

	p.mu.Lock()
	if p.sampleRate != format.SampleRate {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			p.mu.Unlock()
			return nil, 0, fmt.Errorf("init speaker: %w", err)
		}
		p.sampleRate = format.SampleRate
	}
	p.mu.Unlock()

	d := format.SampleRate.D(streamer.Len())
	done := make(chan struct{})
	if onStarted != nil {
		onStarted()
	}
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	return done, d, nil
}

// Stop silences the speaker. The pending done callback never fires, so
// callers track termination themselves after calling Stop.
func (p *BeepPlayer) Stop() {
	speaker.Clear()
}
