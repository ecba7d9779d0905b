// Package router classifies agent messages by operation and dispatches them
// to the visualization or instructional handler.
package router

import (
	"context"

	"github.com/blueplan/linviz-go/internal/linviz/agent"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
)

// Router 消息路由器，无状态，可并发使用
type Router struct {
	viz    VisualizationHandler
	ins    InstructionalHandler
	logger *logx.Logger
}

// New 使用默认处理器创建路由器
func New(logger *logx.Logger) *Router {
	ins := NewInstructional(logger)
	return NewWithHandlers(NewVisualization(ins, logger), ins, logger)
}

// NewWithHandlers 使用自定义处理器创建路由器
func NewWithHandlers(viz VisualizationHandler, ins InstructionalHandler, logger *logx.Logger) *Router {
	return &Router{viz: viz, ins: ins, logger: logger}
}

// Route 解码并路由一条消息
func (r *Router) Route(ctx context.Context, raw map[string]any) Outcome {
	msg, err := agent.Decode(raw)
	if err != nil {
		return r.invalid(ctx, err)
	}
	return r.Dispatch(ctx, msg)
}

// Dispatch 路由已解码的消息
func (r *Router) Dispatch(ctx context.Context, msg agent.Message) Outcome {
	if msg.Operation == "" {
		return r.invalid(ctx, agent.ErrMissingOperation)
	}

	op, ok := msg.Op()
	if !ok {
		r.logger.Warn(ctx, "unknown agent operation", logx.KV("operation", msg.Operation))
		return Outcome{
			Kind:      OutcomeUnknownOperation,
			Operation: msg.Operation,
			Notices:   []Notice{warning(NoticeUnknownOperation, "unknown operation %q", msg.Operation)},
		}
	}

	out := Outcome{Operation: msg.Operation, Explanation: msg.Explanation}
	switch op.Class() {
	case agent.ClassVisualization:
		res := r.viz.RenderVisualization(ctx, msg)
		out.Kind = OutcomeVisualization
		out.Visualization = agent.Some(res.Instruction)
		out.Card = res.Card
		out.Notices = res.Notices
	case agent.ClassInstructional:
		out.Kind = OutcomeInstructional
		if card, ok := r.ins.RenderInstructional(ctx, msg); ok {
			out.Card = agent.Some(card)
		}
	}

	r.logger.Debug(ctx, "agent message routed",
		logx.KV("operation", msg.Operation),
		logx.KV("class", op.Class().String()),
		logx.KV("card", out.Card.Present()))
	return out
}

func (r *Router) invalid(ctx context.Context, err error) Outcome {
	r.logger.Warn(ctx, "invalid agent message", logx.KV("error", err))
	return Outcome{
		Kind:    OutcomeInvalidMessage,
		Notices: []Notice{warning(NoticeInvalidMessage, "%v", err)},
	}
}
