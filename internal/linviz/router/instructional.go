package router

import (
	"context"

	"github.com/blueplan/linviz-go/internal/linviz/agent"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
)

// CardRenderer 把讲解内容渲染成卡片
type CardRenderer interface {
	RenderCard(ctx context.Context, content agent.InstructionalContent) Card
}

// InstructionalHandler 处理指令类消息
type InstructionalHandler interface {
	RenderInstructional(ctx context.Context, msg agent.Message) (Card, bool)
}

// Instructional 默认指令处理器，同时提供卡片渲染
type Instructional struct {
	logger *logx.Logger
}

// NewInstructional 创建指令处理器
func NewInstructional(logger *logx.Logger) *Instructional {
	return &Instructional{logger: logger}
}

// RenderInstructional lean 缺失或不完整时返回 false
func (h *Instructional) RenderInstructional(ctx context.Context, msg agent.Message) (Card, bool) {
	content, ok := msg.Lean.Get()
	if !ok {
		h.logger.Debug(ctx, "instructional message without usable lean content", logx.KV("operation", msg.Operation))
		return Card{}, false
	}
	return h.RenderCard(ctx, content), true
}

// RenderCard 构造卡片
func (h *Instructional) RenderCard(_ context.Context, content agent.InstructionalContent) Card {
	return Card{
		Statement: content.StatementCN,
		Informal:  content.StatementInformal,
		LeanCode:  content.LeanCode,
		Hint:      content.Hint,
	}
}
