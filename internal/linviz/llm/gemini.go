package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 基于 generative-ai-go 的客户端，强制 JSON 输出
type Gemini struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxRetries  int
}

// NewGemini 创建 Gemini 客户端
func NewGemini(apiKey, model string, temperature float64, maxRetries int) *Gemini {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Gemini{
		APIKey:      strings.TrimSpace(apiKey),
		Model:       strings.TrimSpace(model),
		Temperature: float32(temperature),
		MaxRetries:  maxRetries,
	}
}

// Complete 发送对话，最后一条消息作为本轮输入，其余作为历史
func (g *Gemini) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	if g.APIKey == "" {
		return "", ErrNoAPIKey
	}
	if len(messages) == 0 {
		return "", errors.New("gemini: no messages")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(g.Temperature),
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := m.StartChat()
	cs.History = toHistory(messages[:len(messages)-1])
	last := messages[len(messages)-1]

	// 重试瞬时错误
	var lastErr error
	for attempt := 1; attempt <= g.MaxRetries; attempt++ {
		resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return "", fmt.Errorf("gemini: empty response")
		}
		return txt, nil
	}
	return "", lastErr
}

func toHistory(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return out
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
