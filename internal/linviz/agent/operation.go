package agent

// Operation 是 agent 消息的判别字段
type Operation int

const (
	OpVectorAdd Operation = iota + 1
	OpLinComb
	OpMatMul
	OpEigen
	OpCustomMatrix
	OpLeanIntro
	OpLeanStatement
	OpMathProblem
)

// Class 操作分类
type Class int

const (
	ClassVisualization Class = iota + 1
	ClassInstructional
)

var operationNames = map[Operation]string{
	OpVectorAdd:     "vector_add",
	OpLinComb:       "lin_comb",
	OpMatMul:        "mat_mul",
	OpEigen:         "eigen",
	OpCustomMatrix:  "custom_matrix",
	OpLeanIntro:     "lean_intro",
	OpLeanStatement: "lean_statement",
	OpMathProblem:   "math_problem",
}

var operationsByName = func() map[string]Operation {
	m := make(map[string]Operation, len(operationNames))
	for op, name := range operationNames {
		m[name] = op
	}
	return m
}()

// Operations 返回全部已知操作，按声明顺序
func Operations() []Operation {
	return []Operation{
		OpVectorAdd, OpLinComb, OpMatMul, OpEigen, OpCustomMatrix,
		OpLeanIntro, OpLeanStatement, OpMathProblem,
	}
}

// ParseOperation 解析线上名称，未知名称返回 false
func ParseOperation(name string) (Operation, bool) {
	op, ok := operationsByName[name]
	return op, ok
}

// String 返回线上名称
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "unknown"
}

// Class 返回操作所属分类
func (o Operation) Class() Class {
	switch o {
	case OpVectorAdd, OpLinComb, OpMatMul, OpEigen, OpCustomMatrix:
		return ClassVisualization
	case OpLeanIntro, OpLeanStatement, OpMathProblem:
		return ClassInstructional
	}
	return 0
}

// String 返回分类名称
func (c Class) String() string {
	switch c {
	case ClassVisualization:
		return "visualization"
	case ClassInstructional:
		return "instructional"
	}
	return "none"
}
