package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/blueplan/linviz-go/internal/linviz/config"
	"github.com/google/generative-ai-go/genai"
)

func TestNewClient(t *testing.T) {
	if _, err := NewClient(config.LLMConfig{Provider: "gemini"}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("gemini without key error = %v", err)
	}
	c, err := NewClient(config.LLMConfig{Provider: "gemini", APIKey: " k ", Model: "gemini-2.5-flash"})
	if err != nil {
		t.Fatal(err)
	}
	if g, ok := c.(*Gemini); !ok || g.APIKey != "k" || g.MaxRetries != 3 {
		t.Errorf("client = %#v", c)
	}
	if c, err := NewClient(config.LLMConfig{Provider: "MOCK"}); err != nil || c == nil {
		t.Errorf("mock client = %v, %v", c, err)
	}
	if _, err := NewClient(config.LLMConfig{Provider: "openai"}); err == nil {
		t.Error("unsupported provider should fail")
	}
}

func TestMockReplaysInOrder(t *testing.T) {
	m := NewMock("a", "b")
	ctx := context.Background()
	for _, want := range []string{"a", "b", "b"} {
		got, err := m.Complete(ctx, "sys", []Message{{Role: RoleUser, Content: "q"}})
		if err != nil || got != want {
			t.Errorf("Complete = %q, %v; want %q", got, err, want)
		}
	}
	if calls := m.Calls(); len(calls) != 3 || calls[0].System != "sys" {
		t.Errorf("calls = %+v", calls)
	}

	m.FailWith(errors.New("quota"))
	if _, err := m.Complete(ctx, "", nil); err == nil {
		t.Error("expected failure")
	}
}

func TestGeminiRequiresKeyAndMessages(t *testing.T) {
	if _, err := (&Gemini{}).Complete(context.Background(), "", []Message{{Content: "x"}}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("error = %v", err)
	}
	if _, err := NewGemini("k", "m", 0, 0).Complete(context.Background(), "", nil); err == nil {
		t.Error("expected error for empty messages")
	}
}

func TestToHistoryRoles(t *testing.T) {
	h := toHistory([]Message{{Role: RoleUser, Content: "q"}, {Role: RoleAssistant, Content: "a"}})
	if len(h) != 2 || h[0].Role != "user" || h[1].Role != "model" {
		t.Errorf("history = %+v", h)
	}
}

func TestFirstText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"operation":"eigen"}`)}}},
	}}
	if got := firstText(resp); got != `{"operation":"eigen"}` {
		t.Errorf("firstText = %q", got)
	}
	if firstText(nil) != "" {
		t.Error("nil response should give empty text")
	}
}
