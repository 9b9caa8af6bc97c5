package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/config"
	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/httpserver"
	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/llm"
	"github.com/FilipGrebowski/deepgram-bad-therapist/internal/tts"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg := config.Load()

	chatProvider := llm.NewAnthropicClient(cfg.ClaudeModel, cfg.SystemPrompt)
	speechProvider := tts.NewDeepgramClient(cfg.DefaultVoice)
	srv := httpserver.New(cfg, chatProvider, speechProvider)

	go func() {
		log.Printf("Proxy listening on %s", cfg.HTTPAddress)
		if err := srv.Echo.Start(cfg.HTTPAddress); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Echo.Shutdown(ctx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}
