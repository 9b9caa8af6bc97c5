package capture

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fakeStream struct {
	results chan Segment
	closed  atomic.Bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{results: make(chan Segment, 16)}
}

func (f *fakeStream) Results() <-chan Segment    { return f.results }
func (f *fakeStream) SendAudio(pcm []byte) error { return nil }
func (f *fakeStream) Close() error {
	if f.closed.CompareAndSwap(false, true) {
		close(f.results)
	}
	return nil
}

type fakeSource struct{}

func (fakeSource) Start(ctx context.Context) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (fakeSource) Close() error { return nil }

func newTestRecognizer(stream *fakeStream, silence time.Duration) (*Recognizer, *atomic.Int32) {
	dials := &atomic.Int32{}
	dial := func(ctx context.Context, apiKey string) (Stream, error) {
		dials.Add(1)
		return stream, nil
	}
	r := NewRecognizer(dial, fakeSource{}, silence)
	r.settle = 20 * time.Millisecond
	return r, dials
}

func TestRecognizer_JoinsFinalsWithSpaces(t *testing.T) {
	stream := newFakeStream()
	r, _ := newTestRecognizer(stream, time.Hour)
	if err := r.StartListening(context.Background(), "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.stop(false)

	stream.results <- Segment{Text: "My boss", IsFinal: true}
	stream.results <- Segment{Text: "yelled at", IsFinal: false}
	stream.results <- Segment{Text: "yelled at me", IsFinal: true}
	time.Sleep(50 * time.Millisecond)

	if got := r.Transcript(); got != "My boss yelled at me" {
		t.Fatalf("expected joined transcript, got %q", got)
	}
}

func TestRecognizer_InterimIsReplaced(t *testing.T) {
	stream := newFakeStream()
	r, _ := newTestRecognizer(stream, time.Hour)
	if err := r.StartListening(context.Background(), "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.stop(false)

	stream.results <- Segment{Text: "I fe", IsFinal: false}
	stream.results <- Segment{Text: "I feel", IsFinal: false}
	time.Sleep(50 * time.Millisecond)

	if got := r.Transcript(); got != "I feel" {
		t.Fatalf("expected latest interim only, got %q", got)
	}
}

func TestRecognizer_SilenceDeliversTranscriptOnce(t *testing.T) {
	stream := newFakeStream()
	r, _ := newTestRecognizer(stream, 100*time.Millisecond)

	var calls atomic.Int32
	var got atomic.Value
	r.OnComplete = func(text string) {
		calls.Add(1)
		got.Store(text)
	}
	if err := r.StartListening(context.Background(), "key"); err != nil {
		t.Fatalf("start: %v", err)
	}

	stream.results <- Segment{Text: "I feel", IsFinal: false}
	time.Sleep(300 * time.Millisecond)

	if r.IsListening() {
		t.Fatalf("expected capture stopped after silence window")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one delivery, got %d", n)
	}
	if got.Load().(string) != "I feel" {
		t.Fatalf("expected transcript delivered, got %q", got.Load())
	}
}

func TestRecognizer_ManualStopDelivers(t *testing.T) {
	stream := newFakeStream()
	r, _ := newTestRecognizer(stream, time.Hour)

	var calls atomic.Int32
	r.OnComplete = func(string) { calls.Add(1) }
	if err := r.StartListening(context.Background(), "key"); err != nil {
		t.Fatalf("start: %v", err)
	}

	stream.results <- Segment{Text: "hello there", IsFinal: true}
	time.Sleep(50 * time.Millisecond)

	r.StopListening()
	r.StopListening()
	time.Sleep(100 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one delivery, got %d", n)
	}
}

func TestRecognizer_EmptyTranscriptNoDelivery(t *testing.T) {
	stream := newFakeStream()
	r, _ := newTestRecognizer(stream, time.Hour)

	var calls atomic.Int32
	r.OnComplete = func(string) { calls.Add(1) }
	if err := r.StartListening(context.Background(), "key"); err != nil {
		t.Fatalf("start: %v", err)
	}

	r.StopListening()
	time.Sleep(100 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Fatalf("expected no delivery for empty transcript, got %d", n)
	}
}

func TestRecognizer_ClearSuppressesDelivery(t *testing.T) {
	stream := newFakeStream()
	r, _ := newTestRecognizer(stream, time.Hour)

	var calls atomic.Int32
	r.OnComplete = func(string) { calls.Add(1) }
	if err := r.StartListening(context.Background(), "key"); err != nil {
		t.Fatalf("start: %v", err)
	}

	stream.results <- Segment{Text: "forget this", IsFinal: true}
	time.Sleep(50 * time.Millisecond)

	r.ClearTranscript()
	r.StopListening()
	time.Sleep(100 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Fatalf("expected cleared transcript to suppress delivery, got %d", n)
	}
	if got := r.Transcript(); got != "" {
		t.Fatalf("expected empty transcript after clear, got %q", got)
	}
}

func TestRecognizer_ClearDuringSettleSuppressesDelivery(t *testing.T) {
	stream := newFakeStream()
	r, _ := newTestRecognizer(stream, time.Hour)
	r.settle = 100 * time.Millisecond

	var calls atomic.Int32
	r.OnComplete = func(string) { calls.Add(1) }
	if err := r.StartListening(context.Background(), "key"); err != nil {
		t.Fatalf("start: %v", err)
	}

	stream.results <- Segment{Text: "forget this", IsFinal: true}
	time.Sleep(50 * time.Millisecond)

	// Delivery is pending behind the settle delay when the clear lands.
	r.StopListening()
	r.ClearTranscript()
	time.Sleep(300 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Fatalf("expected clear during settle to suppress delivery, got %d", n)
	}
}

func TestRecognizer_StartWhileListeningIsNoop(t *testing.T) {
	stream := newFakeStream()
	r, dials := newTestRecognizer(stream, time.Hour)
	if err := r.StartListening(context.Background(), "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.stop(false)

	if err := r.StartListening(context.Background(), "key"); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if n := dials.Load(); n != 1 {
		t.Fatalf("expected a single dial, got %d", n)
	}
}

func TestRecognizer_NotifiesLiveTranscript(t *testing.T) {
	stream := newFakeStream()
	r, _ := newTestRecognizer(stream, time.Hour)

	updates := make(chan string, 8)
	r.OnTranscript = func(text string) { updates <- text }
	if err := r.StartListening(context.Background(), "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.stop(false)

	stream.results <- Segment{Text: "hi", IsFinal: false}

	select {
	case got := <-updates:
		if got != "hi" {
			t.Fatalf("expected live transcript %q, got %q", "hi", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for transcript notification")
	}
}
