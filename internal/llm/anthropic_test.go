package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnthropicInvoke_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key test-key, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("expected anthropic-version 2023-06-01, got %q", r.Header.Get("anthropic-version"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %q", req.Model)
		}
		if req.System != "you are confucius\n\nan introduction" {
			t.Errorf("expected system prompt with folded introduction, got %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.Temperature == nil || *req.Temperature != 0.8 {
			t.Errorf("expected temperature 0.8, got %v", req.Temperature)
		}
		if req.TopP != nil {
			t.Errorf("expected top_p omitted when 1, got %v", *req.TopP)
		}
		if req.MaxTokens != anthropicMaxTokens {
			t.Errorf("expected default max_tokens, got %d", req.MaxTokens)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "world"}},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	c := NewAnthropic("test-key", 5*time.Second)
	c.SetTestTransport(server.URL)

	messages := []Message{
		{Role: RoleSystem, Content: "you are confucius"},
		{Role: RoleAssistant, Content: "an introduction"},
		{Role: RoleUser, Content: "hello"},
	}
	result, err := c.Invoke(context.Background(), messages, DefaultParams("test-model"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "world" {
		t.Errorf("expected 'world', got %q", result)
	}
}

func TestAnthropicInvoke_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":    "rate_limit_error",
				"message": "slow down",
			},
		})
	}))
	defer server.Close()

	c := NewAnthropic("test-key", 5*time.Second)
	c.SetTestTransport(server.URL)

	_, err := c.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, DefaultParams("m"))
	if err == nil {
		t.Fatal("expected error for API error response")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T", err)
	}
	if te.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", te.StatusCode)
	}
	if !te.Temporary() {
		t.Error("expected rate limit to be temporary")
	}
}

func TestAnthropicInvoke_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"content": nil, "stop_reason": "end_turn"})
	}))
	defer server.Close()

	c := NewAnthropic("test-key", 5*time.Second)
	c.SetTestTransport(server.URL)

	_, err := c.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, DefaultParams("m"))
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestSplitSystem_KeepsLaterAssistantTurns(t *testing.T) {
	system, turns := splitSystem([]Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleAssistant, Content: "intro"},
		{Role: RoleUser, Content: "worry"},
		{Role: RoleAssistant, Content: "context"},
		{Role: RoleUser, Content: "advice prompt"},
	})
	if system != "persona\n\nintro" {
		t.Errorf("unexpected system %q", system)
	}
	if len(turns) != 3 || turns[1].Role != RoleAssistant || turns[1].Content != "context" {
		t.Errorf("unexpected turns: %+v", turns)
	}
}
