package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/capture"
	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/chat"
	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/config"
	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/conversation"
	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/speech"
	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/voices"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg := config.Load()
	ctx := context.Background()

	proxy := chat.NewClient(cfg.ProxyURL)
	proxy.Window = cfg.HistoryWindow

	keys, err := proxy.FetchKeys(ctx)
	if err != nil {
		log.Fatalf("Cannot reach proxy at %s: %v", cfg.ProxyURL, err)
	}

	// Live transcription dials Deepgram directly, so the sentinel is no use
	// there; a local key is required for the microphone.
	if cfg.DeepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set, microphone capture disabled")
	}
	claudeKey := keys.ClaudeAPIKey
	if claudeKey == "" {
		claudeKey = cfg.ClaudeKey
	}
	ttsKey := keys.DeepgramAPIKey
	if ttsKey == "" {
		ttsKey = cfg.DeepgramKey
	}

	catalog, err := proxy.FetchVoices(ctx)
	if err != nil {
		log.Printf("Voice catalog unavailable: %v", err)
		catalog = voices.All()
	}

	mic, err := capture.NewMicSource()
	if err != nil {
		log.Fatalf("Microphone unavailable: %v", err)
	}
	defer mic.Close()

	recognizer := capture.NewRecognizer(capture.DialDeepgram, mic, cfg.SilenceWindow)
	synth := speech.NewSynthesizer(speech.NewProxyClient(cfg.ProxyURL), speech.NewBeepPlayer(), cfg.DefaultVoice)
	synth.SetAPIKey(ttsKey)

	coord := conversation.NewCoordinator(recognizer, proxy, synth)
	coord.SetKeys(cfg.DeepgramKey, claudeKey)
	coord.Alert = func(msg string) { fmt.Println("! " + msg) }

	recognizer.OnTranscript = func(text string) {
		coord.HandleTranscript(text)
		fmt.Printf("\r  hearing: %s", text)
	}
	recognizer.OnComplete = func(text string) {
		fmt.Printf("\nyou: %s\n", text)
		if err := coord.ProcessTranscript(ctx, text); err != nil {
			log.Printf("Send failed: %v", err)
		}
	}
	synth.OnPlaybackStarted = coord.HandlePlaybackStarted
	synth.OnPlaybackFinished = func() {
		coord.HandlePlaybackFinished()
		fmt.Println()
	}
	coord.Typewriter().OnUpdate = func(visible string) {
		fmt.Printf("\rtherapist: %s", visible)
	}

	fmt.Println("Commands: listen, stop, quiet, clear, replay <n>, voice <id>, voices, quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "listen", "l":
			if err := coord.StartListening(ctx); err != nil {
				log.Printf("Listen failed: %v", err)
			}
		case "stop", "s":
			coord.StopListening()
		case "quiet", "x":
			coord.StopSpeaking()
		case "clear", "c":
			coord.ClearConversation()
			fmt.Println("Conversation cleared")
		case "replay", "r":
			if len(fields) < 2 {
				fmt.Println("usage: replay <message-index>")
				continue
			}
			idx, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("usage: replay <message-index>")
				continue
			}
			if err := coord.ReplayMessage(ctx, idx); err != nil {
				log.Printf("Replay failed: %v", err)
			}
		case "voice", "v":
			if len(fields) < 2 {
				fmt.Println("usage: voice <voice-id>")
				continue
			}
			model := voices.Find(fields[1])
			synth.SetVoice(model.ID)
			fmt.Printf("Voice set to %s\n", model.Name)
		case "voices":
			for _, m := range catalog {
				fmt.Printf("  %-16s %s\n", m.ID, m.Name)
			}
		case "quit", "q":
			coord.ClearConversation()
			return
		default:
			fmt.Println("Unknown command")
		}
	}
}
