// Package tutor asks the language model for the next agent message.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blueplan/linviz-go/internal/linviz/agent"
	"github.com/blueplan/linviz-go/internal/linviz/llm"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
)

// ErrEmptyMessage 学生消息为空
var ErrEmptyMessage = errors.New("tutor: empty message")

// Agent 把学生问题转成结构化 agent 消息
type Agent struct {
	client llm.Client
	system string
	logger *logx.Logger
}

// New 创建 Agent
func New(client llm.Client, logger *logx.Logger) *Agent {
	return &Agent{client: client, system: SystemPrompt(), logger: logger}
}

// Reply 返回解析后的 JSON 对象；对象是否合法由路由器判断
func (a *Agent) Reply(ctx context.Context, message string, history ...llm.Message) (map[string]any, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	msgs := append(append([]llm.Message(nil), history...), llm.Message{Role: llm.RoleUser, Content: message})
	text, err := a.client.Complete(ctx, a.system, msgs)
	if err != nil {
		return nil, fmt.Errorf("tutor: llm call failed: %w", err)
	}

	raw, err := agent.ParseReply(text)
	if err != nil {
		a.logger.Warn(ctx, "model reply is not a JSON object", logx.KV("reply", truncate(text, 200)))
		return nil, err
	}
	a.logger.Debug(ctx, "agent reply", logx.KV("operation", raw["operation"]))
	return raw, nil
}

// truncate 按字符截断
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
