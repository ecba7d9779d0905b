package tutor

import (
	"strings"

	"github.com/blueplan/linviz-go/internal/linviz/agent"
)

const promptHeader = `你是一个线性代数可视化助教。根据学生的问题选择一个操作，并且只输出一个 JSON 对象，不要输出任何其他文字。

JSON 字段:
- "operation" (必填): 下列之一
`

const promptBody = `- "explanation": 面向学生的中文讲解
- "inputs": 操作参数，例如 {"matrix": [[a, b], [c, d]], "vectors": [[x, y], ...]} 或 {"u": [x, y], "v": [x, y]}
- "visualization_config": 显示选项，例如 {"show_grid": true}
- "lean" (可选): {"statement_cn": 题目陈述, "statement_informal": 符号化陈述, "lean_code": Lean 4 代码, "hint": 提示}

可视化操作也可以附带 "lean"，此时会同时显示讲解卡片。矩阵一律是 2x2。`

// SystemPrompt 列出全部操作及其类别
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for _, op := range agent.Operations() {
		b.WriteString("  - ")
		b.WriteString(op.String())
		b.WriteString(" (")
		b.WriteString(op.Class().String())
		b.WriteString(")\n")
	}
	b.WriteString(promptBody)
	return b.String()
}
