package conversation

import (
	"sync"
	"time"
)

const revealInterval = 10 * time.Millisecond

// Typewriter reveals text one character at a time while the matching audio
// plays. Start replaces any reveal in progress.
type Typewriter struct {
	mu     sync.Mutex
	text   []rune
	shown  int
	ticker *time.Ticker
	stop   chan struct{}
	// OnUpdate receives the visible prefix after each reveal step.
	OnUpdate func(visible string)
}

func NewTypewriter() *Typewriter {
	return &Typewriter{}
}

// Start begins revealing text from the first character.
func (t *Typewriter) Start(text string) {
	t.Stop()
	t.mu.Lock()
	t.text = []rune(text)
	t.shown = 0
	stop := make(chan struct{})
	t.stop = stop
	update := t.OnUpdate
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(revealInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.mu.Lock()
				if t.stop != stop || t.shown >= len(t.text) {
					t.mu.Unlock()
					return
				}
				t.shown++
				visible := string(t.text[:t.shown])
				t.mu.Unlock()
				if update != nil {
					update(visible)
				}
			}
		}
	}()
}

// Current returns the currently visible prefix.
func (t *Typewriter) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.text[:t.shown])
}

// Stop halts the reveal, leaving the visible prefix where it is.
func (t *Typewriter) Stop() {
	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.mu.Unlock()
}

// Finish stops the reveal and shows the full text.
func (t *Typewriter) Finish() {
	t.Stop()
	t.mu.Lock()
	t.shown = len(t.text)
	t.mu.Unlock()
}

// Reset stops the reveal and clears the text.
func (t *Typewriter) Reset() {
	t.Stop()
	t.mu.Lock()
	t.text = nil
	t.shown = 0
	t.mu.Unlock()
}
