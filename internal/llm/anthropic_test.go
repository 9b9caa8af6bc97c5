package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerate_MissingKey(t *testing.T) {
	c := NewAnthropicClient("", "")
	_, err := c.Generate(context.Background(), "", []Turn{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatalf("expected error when api key missing")
	}
}

func TestGenerate_EmptyTurns(t *testing.T) {
	c := NewAnthropicClient("", "")
	_, err := c.Generate(context.Background(), "key", nil)
	if err == nil {
		t.Fatalf("expected error when no messages")
	}
}

// The endpoint URL is fixed, so route through a test server via the transport.
type rewriteTransport struct{ base string }

func (rt rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r.URL.Scheme = "http"
	r.URL.Host = strings.TrimPrefix(rt.base, "http://")
	return http.DefaultTransport.RoundTrip(r)
}

func TestGenerate_ParsesReplyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "sk-test" {
			t.Errorf("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing anthropic-version header")
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.System == "" {
			t.Errorf("expected system prompt in request")
		}
		json.NewEncoder(w).Encode(messagesResponse{
			Content: []contentBlock{{Type: "text", Text: "  Try yelling back.  "}},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient("claude-3-5-haiku-20241022", "persona")
	c.HTTPClient = &http.Client{Transport: rewriteTransport{base: srv.URL}}
	reply, err := c.Generate(context.Background(), "sk-test", []Turn{{Role: "user", Content: "my boss yelled at me"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != "Try yelling back." {
		t.Fatalf("expected trimmed reply, got %q", reply)
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("", "")
	c.HTTPClient = &http.Client{Transport: rewriteTransport{base: srv.URL}}
	_, err := c.Generate(context.Background(), "bad", []Turn{{Role: "user", Content: "hi"}})
	if err == nil || !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Fatalf("expected provider error message, got %v", err)
	}
}

func TestGenerate_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("", "")
	c.HTTPClient = &http.Client{Transport: rewriteTransport{base: srv.URL}}
	_, err := c.Generate(context.Background(), "key", []Turn{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatalf("expected error on empty content")
	}
}
