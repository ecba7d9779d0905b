package router

import (
	"fmt"

	"github.com/blueplan/linviz-go/internal/linviz/agent"
	"github.com/blueplan/linviz-go/internal/linviz/geometry"
	"github.com/blueplan/linviz-go/internal/linviz/linalg"
)

// OutcomeKind 路由结果类型
type OutcomeKind int

const (
	OutcomeInvalidMessage OutcomeKind = iota + 1
	OutcomeUnknownOperation
	OutcomeVisualization
	OutcomeInstructional
)

var outcomeNames = map[OutcomeKind]string{
	OutcomeInvalidMessage:   "invalid_message",
	OutcomeUnknownOperation: "unknown_operation",
	OutcomeVisualization:    "visualization",
	OutcomeInstructional:    "instructional",
}

// String 返回结果类型名称
func (k OutcomeKind) String() string {
	if s, ok := outcomeNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText 以名称序列化
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 解析名称
func (k *OutcomeKind) UnmarshalText(b []byte) error {
	for kind, name := range outcomeNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("router: unknown outcome kind %q", b)
}

// Notice 非阻塞提示
type Notice struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	NoticeInvalidMessage   = "invalid_message"
	NoticeUnknownOperation = "unknown_operation"
	NoticeMalformedInputs  = "malformed_inputs"
)

func warning(code, format string, args ...any) Notice {
	return Notice{Level: "warning", Code: code, Message: fmt.Sprintf(format, args...)}
}

// Card 讲解卡片
type Card struct {
	Statement string                 `json:"statement"`
	Informal  agent.Optional[string] `json:"informal,omitzero"`
	LeanCode  string                 `json:"lean_code"`
	Hint      agent.Optional[string] `json:"hint,omitzero"`
}

// Transform 矩阵乘法视图的数据。Vectors 缺失与空列表是两种状态
type Transform struct {
	Matrix  linalg.Mat2                   `json:"matrix"`
	Vectors agent.Optional[[]linalg.Vec2] `json:"vectors,omitzero"`
	Images  []linalg.Vec2                 `json:"images,omitempty"`
}

// VisualizationInstruction 可视化指令
type VisualizationInstruction struct {
	Operation string                    `json:"operation"`
	ShowGrid  bool                      `json:"show_grid"`
	EigenView bool                      `json:"eigen_view,omitempty"`
	Transform agent.Optional[Transform] `json:"transform,omitzero"`
	Inputs    map[string]any            `json:"inputs,omitempty"`
	Geometry  []geometry.Shape          `json:"geometry,omitempty"`
}

// VisualizationResult 可视化处理器的输出，可能附带一张卡片
type VisualizationResult struct {
	Instruction VisualizationInstruction
	Card        agent.Optional[Card]
	Notices     []Notice
}

// Outcome 单条消息的路由结果
type Outcome struct {
	Kind          OutcomeKind                              `json:"kind"`
	Operation     string                                   `json:"operation,omitempty"`
	Explanation   string                                   `json:"explanation,omitempty"`
	Visualization agent.Optional[VisualizationInstruction] `json:"visualization,omitzero"`
	Card          agent.Optional[Card]                     `json:"card,omitzero"`
	Notices       []Notice                                 `json:"notices,omitempty"`
}

// NoOp 指令类消息没有可用内容
func (o Outcome) NoOp() bool {
	return o.Kind == OutcomeInstructional && !o.Card.Present()
}
