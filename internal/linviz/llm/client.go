package llm

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/blueplan/linviz-go/internal/linviz/config"
)

// 角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoAPIKey 未配置密钥
var ErrNoAPIKey = errors.New("llm: api key is empty")

// Message 对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client LLM 客户端
type Client interface {
	// Complete 发送系统提示和消息，返回模型文本
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

// NewClient 根据配置创建客户端；provider 为 mock 时返回空脚本的 Mock
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "mock":
		return NewMock(), nil
	case "gemini", "":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, ErrNoAPIKey
		}
		return NewGemini(cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxRetries), nil
	}
	return nil, errors.New("llm: unsupported provider " + cfg.Provider)
}

// Call Mock 记录的一次调用
type Call struct {
	System   string
	Messages []Message
}

// Mock 按顺序回放预设回复，用完后重复最后一条
type Mock struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []Call
}

// NewMock 创建 Mock
func NewMock(replies ...string) *Mock {
	return &Mock{replies: replies}
}

// FailWith 之后的调用都返回 err
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Complete 返回下一条预设回复
func (m *Mock) Complete(_ context.Context, system string, messages []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{System: system, Messages: append([]Message(nil), messages...)})
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return `{"operation":"math_problem","explanation":"mock reply"}`, nil
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

// Calls 返回调用记录
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}
