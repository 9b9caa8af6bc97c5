package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSystemPrompt is the persona used for every chat request. Callers never
// supply a prompt per call; the proxy owns it.
const DefaultSystemPrompt = `You are a therapist who gives terrible, absurd advice while maintaining a conversational tone. Keep in mind:

1. CRITICAL: Respond with EXACTLY ONE sentence, never more than 15-20 words.
2. Remember previous messages and refer back to them naturally to maintain conversation flow.
3. Sound like a real person having a conversation - use casual language, contractions, and natural speech patterns.
4. Your advice should be comically bad but delivered with earnest conviction.
5. Acknowledge the emotional content of what the user is saying.
6. Occasionally ask follow-up questions that build on previous context.
7. Make your bad advice feel spontaneous, not formulaic.`

// Config holds application configuration.
type Config struct {
	HTTPAddress   string
	ProxyURL      string
	DeepgramKey   string
	ClaudeKey     string
	ClaudeModel   string
	SystemPrompt  string
	DefaultVoice  string
	SilenceWindow time.Duration
	HistoryWindow int
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":3002"
	}

	proxyURL := os.Getenv("PROXY_URL")
	if proxyURL == "" {
		proxyURL = "http://localhost:3002"
	}

	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if deepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - transcription and TTS will not work")
	}

	claudeKey := os.Getenv("CLAUDE_API_KEY")
	if claudeKey == "" {
		log.Println("Warning: CLAUDE_API_KEY not set - chat will not work")
	}

	claudeModel := os.Getenv("CLAUDE_MODEL_ID")
	if claudeModel == "" {
		claudeModel = "claude-3-5-haiku-20241022"
	}

	systemPrompt := os.Getenv("SYSTEM_PROMPT")
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	voice := os.Getenv("DEFAULT_VOICE")
	if voice == "" {
		voice = "aura-luna-en"
	}

	silence := 3 * time.Second
	if v := os.Getenv("SILENCE_WINDOW_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			silence = time.Duration(ms) * time.Millisecond
		}
	}

	history := 10
	if v := os.Getenv("HISTORY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			history = n
		}
	}

	log.Printf("config: HTTP_ADDRESS=%s", addr)
	return Config{
		HTTPAddress:   addr,
		ProxyURL:      proxyURL,
		DeepgramKey:   deepgramKey,
		ClaudeKey:     claudeKey,
		ClaudeModel:   claudeModel,
		SystemPrompt:  systemPrompt,
		DefaultVoice:  voice,
		SilenceWindow: silence,
		HistoryWindow: history,
	}
}
