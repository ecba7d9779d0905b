package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InstructionalContent 是 lean 字段里的讲解内容
type InstructionalContent struct {
	StatementCN       string           `json:"statement_cn"`
	StatementInformal Optional[string] `json:"statement_informal,omitzero"`
	LeanCode          string           `json:"lean_code"`
	Hint              Optional[string] `json:"hint,omitzero"`
}

// Message 是解码后的 agent 消息
type Message struct {
	Operation           string                         `json:"operation"`
	Explanation         string                         `json:"explanation,omitempty"`
	Inputs              map[string]any                 `json:"inputs,omitempty"`
	VisualizationConfig map[string]any                 `json:"visualization_config,omitempty"`
	Lean                Optional[InstructionalContent] `json:"lean,omitzero"`
}

// Op 解析 Operation 字段
func (m Message) Op() (Operation, bool) {
	return ParseOperation(m.Operation)
}

// ShowGrid 读取 visualization_config.show_grid，缺失或非布尔值时为 false
func (m Message) ShowGrid() bool {
	if m.VisualizationConfig == nil {
		return false
	}
	v, _ := m.VisualizationConfig["show_grid"].(bool)
	return v
}

// Input 读取 inputs 中的字段
func (m Message) Input(key string) (any, bool) {
	if m.Inputs == nil {
		return nil, false
	}
	v, ok := m.Inputs[key]
	return v, ok
}

// Decode 从已解析的 JSON 对象构造消息
//
// operation 缺失、为空或不是字符串时返回 ErrMissingOperation。
// lean 不是对象或缺少 statement_cn 时视为缺失，不影响其余字段。
func Decode(raw map[string]any) (Message, error) {
	if raw == nil {
		return Message{}, ErrMissingOperation
	}
	op, ok := raw["operation"].(string)
	if !ok || strings.TrimSpace(op) == "" {
		return Message{}, ErrMissingOperation
	}

	msg := Message{Operation: op}
	msg.Explanation, _ = raw["explanation"].(string)
	msg.Inputs, _ = raw["inputs"].(map[string]any)
	msg.VisualizationConfig, _ = raw["visualization_config"].(map[string]any)

	if lean, present := raw["lean"]; present {
		if content, err := DecodeContent(lean); err == nil {
			msg.Lean = Some(content)
		}
	}
	return msg, nil
}

// DecodeContent 解析 lean 对象
func DecodeContent(v any) (InstructionalContent, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return InstructionalContent{}, fmt.Errorf("%w: lean is %T", ErrMalformedContent, v)
	}
	statement := nonEmptyString(obj["statement_cn"])
	cn, ok := statement.Get()
	if !ok {
		return InstructionalContent{}, fmt.Errorf("%w: statement_cn missing", ErrMalformedContent)
	}
	code, _ := obj["lean_code"].(string)
	return InstructionalContent{
		StatementCN:       cn,
		StatementInformal: nonEmptyString(obj["statement_informal"]),
		LeanCode:          code,
		Hint:              nonEmptyString(obj["hint"]),
	}, nil
}

// nonEmptyString 把空串和非字符串都视为缺失
func nonEmptyString(v any) Optional[string] {
	s, ok := v.(string)
	if !ok || s == "" {
		return None[string]()
	}
	return Some(s)
}

// ParseReply 解析 LLM 返回文本，去掉 ```json 代码块包裹
func ParseReply(text string) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(StripCodeFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if raw == nil {
		return nil, ErrInvalidJSON
	}
	return raw, nil
}

// StripCodeFences 去掉模型常见的 markdown 代码块包裹
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
