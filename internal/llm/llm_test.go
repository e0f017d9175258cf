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

func TestAnthropicComplete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"claude-test","stop_reason":"end_turn",
			"content":[{"type":"text","text":"add_task"}],
			"usage":{"input_tokens":12,"output_tokens":3}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", nil)
	c.url = srv.URL

	resp, err := c.Complete(context.Background(), Request{
		Model:       "claude-test",
		System:      "classify",
		Messages:    []Message{{Role: RoleSystem, Content: "extra"}, {Role: RoleUser, Content: "hi"}},
		Temperature: Temp(0.1),
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "add_task" || resp.InputTokens != 12 || resp.OutputTokens != 3 {
		t.Errorf("resp = %+v", resp)
	}
	if got.System != "classify\n\nextra" {
		t.Errorf("system = %q", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != RoleUser {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", got.MaxTokens, defaultMaxTokens)
	}
	if got.Temperature == nil || *got.Temperature != 0.1 {
		t.Errorf("temperature = %v", got.Temperature)
	}
}

func TestAnthropicCompleteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", nil)
	c.url = srv.URL
	if _, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}}); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestAnthropicRequiresMessages(t *testing.T) {
	c := NewAnthropicClient("k", nil)
	if _, err := c.Complete(context.Background(), Request{System: "only system"}); err == nil {
		t.Fatal("expected error for empty conversation")
	}
}

func TestOllamaComplete(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			w.Write([]byte(`{"model":"qwen3:4b","message":{"role":"assistant","content":"{\"title\":\"x\"}"},"done":true,"prompt_eval_count":5,"eval_count":7}`))
		case "/api/tags":
			w.Write([]byte(`{"models":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", nil)
	resp, err := c.Complete(context.Background(), Request{
		Model:     "qwen3:4b",
		System:    "extract",
		Messages:  []Message{{Role: RoleUser, Content: "add a task"}},
		MaxTokens: 200,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != `{"title":"x"}` || resp.InputTokens != 5 || resp.OutputTokens != 7 {
		t.Errorf("resp = %+v", resp)
	}
	if got.Stream {
		t.Error("stream = true, want false")
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Options == nil || got.Options.NumPredict != 200 {
		t.Errorf("options = %+v", got.Options)
	}

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

type fakeClient struct {
	name  string
	text  string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeClient) Complete(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Response{Model: req.Model, Text: f.text}, nil
}

func (f *fakeClient) Ping(context.Context) error { return f.err }

func TestMultiClientRouting(t *testing.T) {
	local := &fakeClient{name: "ollama", text: "local"}
	remote := &fakeClient{name: "anthropic", text: "remote"}

	m := NewMultiClient(local)
	m.AddProvider("ollama", local)
	m.AddProvider("anthropic", remote)
	m.AddModel("claude-test", "anthropic")
	m.AddModel("orphan", "missing-provider")

	tests := []struct {
		model string
		want  string
	}{
		{"claude-test", "remote"},
		{"qwen3:4b", "local"},
		{"orphan", "local"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			resp, err := m.Complete(context.Background(), Request{Model: tt.model})
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if resp.Text != tt.want {
				t.Errorf("text = %q, want %q", resp.Text, tt.want)
			}
		})
	}

	if len(m.Providers()) != 2 {
		t.Errorf("Providers() = %v", m.Providers())
	}
}

func TestMultiClientNoFallback(t *testing.T) {
	m := NewMultiClient(nil)
	if _, err := m.Complete(context.Background(), Request{Model: "x"}); err == nil {
		t.Error("expected error with no provider")
	}
	if err := m.Ping(context.Background()); err == nil {
		t.Error("expected Ping error with no fallback")
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		want   string
	}{
		{"success", &fakeClient{text: "add_task"}, "add_task"},
		{"error", &fakeClient{err: errors.New("boom")}, "fallback"},
		{"timeout", &fakeClient{text: "late", delay: time.Second}, "fallback"},
		{"nil client", nil, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(context.Background(), tt.client, Request{Model: "m"}, 20*time.Millisecond, "fallback", nil)
			if got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}
