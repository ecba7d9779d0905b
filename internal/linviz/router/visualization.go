package router

import (
	"context"

	"github.com/blueplan/linviz-go/internal/linviz/agent"
	"github.com/blueplan/linviz-go/internal/linviz/geometry"
	"github.com/blueplan/linviz-go/internal/linviz/linalg"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
)

// VisualizationHandler 处理可视化类消息
type VisualizationHandler interface {
	RenderVisualization(ctx context.Context, msg agent.Message) VisualizationResult
}

// Visualization 默认可视化处理器
type Visualization struct {
	cards  CardRenderer
	logger *logx.Logger
}

// NewVisualization 创建可视化处理器，cards 用于附带的讲解内容
func NewVisualization(cards CardRenderer, logger *logx.Logger) *Visualization {
	return &Visualization{cards: cards, logger: logger}
}

// RenderVisualization 生成可视化指令；消息带 lean.statement_cn 时同时生成卡片
func (h *Visualization) RenderVisualization(ctx context.Context, msg agent.Message) VisualizationResult {
	op, _ := msg.Op()
	res := VisualizationResult{
		Instruction: VisualizationInstruction{
			Operation: msg.Operation,
			ShowGrid:  msg.ShowGrid(),
		},
	}

	switch op {
	case agent.OpMatMul:
		t, notice, ok := extractTransform(msg)
		if !ok {
			res.Notices = append(res.Notices, notice)
			h.logger.Warn(ctx, "mat_mul without usable matrix", logx.KV("reason", notice.Message))
			break
		}
		if notice.Code != "" {
			res.Notices = append(res.Notices, notice)
		}
		res.Instruction.Transform = agent.Some(t)
		res.Instruction.Geometry = append(geometry.BasisTransform(t.Matrix), geometry.Transformed(t.Matrix, t.Vectors.OrElse(nil))...)
	case agent.OpEigen:
		res.Instruction.EigenView = true
		if raw, ok := msg.Input("matrix"); ok {
			if m, err := linalg.ParseMat2(raw); err == nil {
				res.Instruction.Transform = agent.Some(Transform{Matrix: m})
			}
		}
	default:
		res.Instruction.Inputs = msg.Inputs
		if op == agent.OpVectorAdd {
			res.Instruction.Geometry = vectorSumGeometry(msg)
		}
	}

	if content, ok := msg.Lean.Get(); ok && h.cards != nil {
		res.Card = agent.Some(h.cards.RenderCard(ctx, content))
	}
	return res
}

// extractTransform 解析 inputs.matrix 和可选的 inputs.vectors
func extractTransform(msg agent.Message) (Transform, Notice, bool) {
	raw, ok := msg.Input("matrix")
	if !ok {
		return Transform{}, warning(NoticeMalformedInputs, "mat_mul requires inputs.matrix"), false
	}
	m, err := linalg.ParseMat2(raw)
	if err != nil {
		return Transform{}, warning(NoticeMalformedInputs, "mat_mul inputs.matrix: %v", err), false
	}

	t := Transform{Matrix: m}
	rawVectors, ok := msg.Input("vectors")
	if !ok || rawVectors == nil {
		return t, Notice{}, true
	}
	vectors, err := linalg.ParseVectors(rawVectors)
	if err != nil {
		return t, warning(NoticeMalformedInputs, "mat_mul inputs.vectors ignored: %v", err), true
	}
	t.Vectors = agent.Some(vectors)
	t.Images = make([]linalg.Vec2, len(vectors))
	for i, v := range vectors {
		t.Images[i] = m.Apply(v)
	}
	return t, Notice{}, true
}

func vectorSumGeometry(msg agent.Message) []geometry.Shape {
	rawU, okU := msg.Input("u")
	rawV, okV := msg.Input("v")
	if !okU || !okV {
		return nil
	}
	u, err := linalg.ParseVec2(rawU)
	if err != nil {
		return nil
	}
	v, err := linalg.ParseVec2(rawV)
	if err != nil {
		return nil
	}
	return geometry.VectorSum(u, v)
}
