package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mailassist/internal/config"
)

func TestOpenAIGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi there"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAI(Options{APIKey: "sk-test", BaseURL: srv.URL + "/"})
	out, err := client.Generate(context.Background(), "sys", "prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "Hi there" {
		t.Fatalf("out = %q", out)
	}
	if got.Model != "gpt-4" || got.MaxTokens != 500 || got.Temperature != 0.7 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "prompt" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestOpenAIErrors(t *testing.T) {
	if _, err := NewOpenAI(Options{}).Generate(context.Background(), "", "p"); err == nil || err.Error() != "OpenAI API key not configured" {
		t.Fatalf("expected missing key error, got %v", err)
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "with message", body: `{"error":{"message":"rate limited"}}`, want: "OpenAI API error: rate limited"},
		{name: "without message", body: `oops`, want: "OpenAI API error: Unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAI(Options{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), "", "p")
			if err == nil || err.Error() != tt.want {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestAnthropicGenerate(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak" || r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Errorf("unexpected headers: %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Thanks, "},{"type":"text","text":"Ana"}]}`))
	}))
	defer srv.Close()

	out, err := NewAnthropic(Options{APIKey: "ak", BaseURL: srv.URL}).Generate(context.Background(), "sys", "prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "Thanks, Ana" {
		t.Fatalf("out = %q", out)
	}
	if got.System != "sys" || got.Model != "claude-3-5-sonnet-20241022" || len(got.Messages) != 1 {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestAnthropicError(t *testing.T) {
	if _, err := NewAnthropic(Options{}).Generate(context.Background(), "", "p"); err == nil || err.Error() != "Anthropic API key not configured" {
		t.Fatalf("expected missing key error, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropic(Options{APIKey: "bad", BaseURL: srv.URL}).Generate(context.Background(), "", "p")
	if err == nil || !strings.Contains(err.Error(), "Anthropic API error: invalid x-api-key") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{provider: "", want: "openai"},
		{provider: "openai", want: "openai"},
		{provider: "Anthropic", want: "anthropic"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(config.AIConfig{Provider: tt.provider})
			if err != nil {
				t.Fatalf("new provider: %v", err)
			}
			if p.Name() != tt.want {
				t.Fatalf("name = %q", p.Name())
			}
		})
	}

	_, err := NewProvider(config.AIConfig{Provider: "gemini"})
	if !errors.Is(err, ErrInvalidProvider) || err.Error() != "Invalid AI provider: gemini" {
		t.Fatalf("err = %v", err)
	}
}
