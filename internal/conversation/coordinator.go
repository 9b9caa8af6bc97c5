package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/llm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the conversation. A thinking message is the
// placeholder shown while the reply is in flight; it has no content.
type Message struct {
	Role       string
	Content    string
	IsThinking bool
}

// State is a point-in-time snapshot for rendering. ActivePlayingIndex is -1
// unless audio is playing right now.
type State struct {
	Messages           []Message
	Transcript         string
	IsListening        bool
	IsProcessing       bool
	IsSpeaking         bool
	ActivePlayingIndex int
}

var (
	ErrEmptyUtterance = errors.New("conversation: nothing to send")
	ErrNoAPIKey       = errors.New("conversation: missing API key")
	ErrBusy           = errors.New("conversation: a reply is already in flight")
)

// Listener captures speech and exposes the accumulated transcript.
type Listener interface {
	StartListening(ctx context.Context, apiKey string) error
	StopListening()
	ClearTranscript()
	Transcript() string
	IsListening() bool
}

// Sender delivers a message plus history and returns the reply.
type Sender interface {
	SendMessage(ctx context.Context, message string, history []llm.Turn, apiKey string) (string, error)
}

// Speaker plays synthesized replies.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
	IsSpeaking() bool
}

// Coordinator owns the conversation loop: capture a transcript, send it,
// append the reply, and speak it. At most one reply is in flight; overlapping
// requests are rejected with a user-facing notice rather than queued.
type Coordinator struct {
	listener Listener
	sender   Sender
	speaker  Speaker
	typer    *Typewriter

	// Alert surfaces user-facing notices such as a missing key.
	Alert func(msg string)
	// OnChange fires after every state change, for redraws.
	OnChange func()

	mu          sync.Mutex
	messages    []Message
	transcript  string
	processing  bool
	activeIdx   int
	epoch       uint64
	deepgramKey string
	claudeKey   string
}

func NewCoordinator(listener Listener, sender Sender, speaker Speaker) *Coordinator {
	return &Coordinator{
		listener:  listener,
		sender:    sender,
		speaker:   speaker,
		typer:     NewTypewriter(),
		activeIdx: -1,
	}
}

// Typewriter exposes the reveal driven by playback events.
func (c *Coordinator) Typewriter() *Typewriter { return c.typer }

// SetKeys installs the credentials used for capture and chat.
func (c *Coordinator) SetKeys(deepgramKey, claudeKey string) {
	c.mu.Lock()
	c.deepgramKey = deepgramKey
	c.claudeKey = claudeKey
	c.mu.Unlock()
}

func (c *Coordinator) alert(msg string) {
	if c.Alert != nil {
		c.Alert(msg)
	}
}

func (c *Coordinator) notify() {
	if c.OnChange != nil {
		c.OnChange()
	}
}

// StartListening interrupts any playback and opens a capture session.
func (c *Coordinator) StartListening(ctx context.Context) error {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		c.alert("Hold on, I'm still working on the last one.")
		return ErrBusy
	}
	key := c.deepgramKey
	c.transcript = ""
	c.mu.Unlock()

	if key == "" {
		c.alert("Please add your Deepgram API key first!")
		return ErrNoAPIKey
	}
	c.StopSpeaking()
	if err := c.listener.StartListening(ctx, key); err != nil {
		c.alert("Could not start the microphone.")
		return err
	}
	c.notify()
	return nil
}

// StopListening ends the capture session. The transcript, if any, arrives
// through the listener's completion callback.
func (c *Coordinator) StopListening() {
	c.listener.StopListening()
	c.notify()
}

// HandleTranscript records the live transcript for display.
func (c *Coordinator) HandleTranscript(text string) {
	c.mu.Lock()
	c.transcript = text
	c.mu.Unlock()
	c.notify()
}

func (c *Coordinator) historyLocked() []llm.Turn {
	turns := make([]llm.Turn, 0, len(c.messages))
	for _, m := range c.messages {
		if m.IsThinking {
			continue
		}
		turns = append(turns, llm.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// ProcessTranscript sends the finished transcript and speaks the reply. The
// user message and a thinking placeholder are appended immediately; the
// placeholder becomes the reply on success and is dropped on failure.
func (c *Coordinator) ProcessTranscript(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		c.alert("Please say something first!")
		return ErrEmptyUtterance
	}

	c.mu.Lock()
	if c.claudeKey == "" {
		c.mu.Unlock()
		c.alert("Please add your Claude API key first!")
		return ErrNoAPIKey
	}
	if c.processing {
		c.mu.Unlock()
		c.alert("Hold on, I'm still working on the last one.")
		return ErrBusy
	}
	c.processing = true
	epoch := c.epoch
	history := c.historyLocked()
	c.messages = append(c.messages, Message{Role: RoleUser, Content: text})
	c.messages = append(c.messages, Message{Role: RoleAssistant, IsThinking: true})
	c.transcript = ""
	key := c.claudeKey
	c.mu.Unlock()
	c.notify()

	reply, err := c.sender.SendMessage(ctx, text, history, key)

	c.mu.Lock()
	if c.epoch != epoch {
		// Conversation was cleared while the request was in flight.
		c.mu.Unlock()
		return nil
	}
	c.processing = false
	idx := len(c.messages) - 1
	if err != nil {
		if idx >= 0 && c.messages[idx].IsThinking {
			c.messages = c.messages[:idx]
		}
		c.mu.Unlock()
		c.notify()
		c.alert("Failed to get a reply. Try again.")
		return err
	}
	c.messages[idx] = Message{Role: RoleAssistant, Content: reply}
	prevActive := c.activeIdx
	c.activeIdx = idx
	c.mu.Unlock()
	c.notify()

	if err := c.speaker.Speak(ctx, reply); err != nil {
		// Playback never started; the index must not claim it did.
		c.mu.Lock()
		if c.activeIdx == idx {
			c.activeIdx = prevActive
		}
		c.mu.Unlock()
		c.notify()
		log.Printf("conversation: speech failed: %v", err)
	}
	return nil
}

// ReplayMessage speaks an existing assistant message again.
func (c *Coordinator) ReplayMessage(ctx context.Context, index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.messages) {
		c.mu.Unlock()
		return fmt.Errorf("conversation: no message at index %d", index)
	}
	m := c.messages[index]
	if m.Role != RoleAssistant || m.IsThinking {
		c.mu.Unlock()
		return fmt.Errorf("conversation: message %d is not a spoken reply", index)
	}
	prevActive := c.activeIdx
	c.activeIdx = index
	c.mu.Unlock()

	if err := c.speaker.Speak(ctx, m.Content); err != nil {
		c.mu.Lock()
		if c.activeIdx == index {
			c.activeIdx = prevActive
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// StopSpeaking cuts playback short. Safe to call when nothing plays.
func (c *Coordinator) StopSpeaking() {
	c.speaker.Stop()
	c.notify()
}

// ClearConversation resets everything: history, transcript, capture and
// playback. A reply still in flight is discarded when it lands.
func (c *Coordinator) ClearConversation() {
	c.mu.Lock()
	c.epoch++
	c.messages = nil
	c.transcript = ""
	c.processing = false
	c.activeIdx = -1
	c.mu.Unlock()

	// Clearing first suppresses the listener's pending completion callback.
	c.listener.ClearTranscript()
	c.listener.StopListening()
	c.speaker.Stop()
	c.typer.Reset()
	c.notify()
}

// HandlePlaybackStarted begins the typewriter reveal for the active message.
// Wire it to the synthesizer's started hook.
func (c *Coordinator) HandlePlaybackStarted() {
	c.mu.Lock()
	var text string
	if c.activeIdx >= 0 && c.activeIdx < len(c.messages) {
		text = c.messages[c.activeIdx].Content
	}
	c.mu.Unlock()
	if text != "" {
		c.typer.Start(text)
	}
	c.notify()
}

// HandlePlaybackFinished completes the reveal. Wire it to the synthesizer's
// finished hook.
func (c *Coordinator) HandlePlaybackFinished() {
	c.typer.Finish()
	c.notify()
}

// Snapshot returns the current conversation state.
func (c *Coordinator) Snapshot() State {
	speaking := c.speaker.IsSpeaking()
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]Message, len(c.messages))
	copy(msgs, c.messages)
	active := -1
	if speaking {
		active = c.activeIdx
	}
	return State{
		Messages:           msgs,
		Transcript:         c.transcript,
		IsListening:        c.listener.IsListening(),
		IsProcessing:       c.processing,
		IsSpeaking:         speaking,
		ActivePlayingIndex: active,
	}
}
