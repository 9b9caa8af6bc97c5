package httpserver

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/config"
	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/llm"
	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/voices"
)

// KeySentinel is returned by /api/keys in place of a configured key so the
// literal secret never leaves the server. Clients send it back verbatim and
// the server substitutes the real key at call time.
const KeySentinel = "ENVIRONMENT_PROVIDED"

// ChatProvider generates a single reply for a conversation.
type ChatProvider interface {
	Generate(ctx context.Context, apiKey string, turns []llm.Turn) (string, error)
}

// SpeechProvider turns text into audio bytes with the named voice model.
type SpeechProvider interface {
	Synthesize(ctx context.Context, apiKey, text, model string) ([]byte, error)
}

// Server bundles the echo router and its provider dependencies.
type Server struct {
	Echo   *echo.Echo
	cfg    config.Config
	chat   ChatProvider
	speech SpeechProvider
}

// New constructs the proxy server with routes registered.
func New(cfg config.Config, chat ChatProvider, speech SpeechProvider) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{Echo: e, cfg: cfg, chat: chat, speech: speech}

	e.GET("/api/health", s.health)
	e.GET("/api/voices", s.voices)
	e.GET("/api/keys", s.keys)
	e.POST("/api/chat", s.chatHandler)
	e.POST("/api/tts", s.ttsHandler)
	e.POST("/api/download-audio", s.downloadAudio)

	return s
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) voices(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]voices.Model{"voices": voices.All()})
}

func (s *Server) keys(c echo.Context) error {
	masked := func(key string) string {
		if key == "" {
			return ""
		}
		return KeySentinel
	}
	return c.JSON(http.StatusOK, map[string]string{
		"deepgramApiKey": masked(s.cfg.DeepgramKey),
		"claudeApiKey":   masked(s.cfg.ClaudeKey),
	})
}

// resolveKey prefers a caller-supplied literal key, falling back to the server
// key when the caller sent nothing or the sentinel.
func resolveKey(requestKey, serverKey string) string {
	if requestKey == "" || requestKey == KeySentinel {
		return serverKey
	}
	return requestKey
}

type chatRequest struct {
	Message          string     `json:"message"`
	APIKey           string     `json:"apiKey"`
	PreviousMessages []llm.Turn `json:"previousMessages"`
}

func (s *Server) chatHandler(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Message is required"})
	}
	apiKey := resolveKey(req.APIKey, s.cfg.ClaudeKey)
	if apiKey == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Claude API key is required"})
	}

	turns := req.PreviousMessages
	// The current message closes the conversation; append it unless the
	// caller already did.
	if n := len(turns); n == 0 || turns[n-1].Role != "user" || turns[n-1].Content != req.Message {
		turns = append(turns, llm.Turn{Role: "user", Content: req.Message})
	}

	c.Echo().Logger.Infof("chat: sending conversation with %d messages", len(turns))
	reply, err := s.chat.Generate(c.Request().Context(), apiKey, turns)
	if err != nil {
		c.Echo().Logger.Errorf("chat: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to get response from Claude"})
	}
	return c.JSON(http.StatusOK, map[string]string{"reply": reply})
}

type ttsRequest struct {
	Text   string `json:"text"`
	APIKey string `json:"apiKey"`
	Voice  string `json:"voice"`
}

func (s *Server) ttsHandler(c echo.Context) error {
	var req ttsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Text is required"})
	}
	apiKey := resolveKey(req.APIKey, s.cfg.DeepgramKey)
	if apiKey == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Deepgram API key is required"})
	}

	voice := voices.Find(req.Voice)
	c.Echo().Logger.Infof("tts: request with voice %s", voice.Name)
	audio, err := s.speech.Synthesize(c.Request().Context(), apiKey, req.Text, voice.ID)
	if err != nil {
		c.Echo().Logger.Errorf("tts: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to generate speech"})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"audio":  base64.StdEncoding.EncodeToString(audio),
		"format": "audio/mpeg",
	})
}

type downloadRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (s *Server) downloadAudio(c echo.Context) error {
	var req downloadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Text is required"})
	}
	if s.cfg.DeepgramKey == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Deepgram API key is required"})
	}

	voice := voices.Find(req.Voice)
	audio, err := s.speech.Synthesize(c.Request().Context(), s.cfg.DeepgramKey, req.Text, voice.ID)
	if err != nil {
		c.Echo().Logger.Errorf("download-audio: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to generate speech"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="therapy-session.mp3"`)
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}
