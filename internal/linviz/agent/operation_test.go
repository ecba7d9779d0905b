package agent

import "testing"

func TestEveryOperationHasAClass(t *testing.T) {
	for _, op := range Operations() {
		switch op.Class() {
		case ClassVisualization, ClassInstructional:
		default:
			t.Errorf("operation %s has no class", op)
		}
		parsed, ok := ParseOperation(op.String())
		if !ok || parsed != op {
			t.Errorf("ParseOperation(%q) = %v, %v", op.String(), parsed, ok)
		}
	}
	if len(Operations()) != len(operationNames) {
		t.Errorf("Operations() lists %d, names table has %d", len(Operations()), len(operationNames))
	}
}

func TestOperationClasses(t *testing.T) {
	tests := []struct {
		name string
		want Class
	}{
		{"vector_add", ClassVisualization},
		{"lin_comb", ClassVisualization},
		{"mat_mul", ClassVisualization},
		{"eigen", ClassVisualization},
		{"custom_matrix", ClassVisualization},
		{"lean_intro", ClassInstructional},
		{"lean_statement", ClassInstructional},
		{"math_problem", ClassInstructional},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := ParseOperation(tt.name)
			if !ok {
				t.Fatalf("ParseOperation(%q) not recognized", tt.name)
			}
			if got := op.Class(); got != tt.want {
				t.Errorf("Class() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseOperationUnknown(t *testing.T) {
	for _, name := range []string{"", "determinant", "EIGEN", " eigen"} {
		if _, ok := ParseOperation(name); ok {
			t.Errorf("ParseOperation(%q) should not be recognized", name)
		}
	}
	var zero Operation
	if zero.Class() != 0 || zero.String() != "unknown" {
		t.Errorf("zero operation = %s/%v", zero, zero.Class())
	}
}
