package linalg

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

const tol = 1e-9

func TestApply(t *testing.T) {
	m := Mat2{A: 2, B: 1, C: 1, D: 2}
	got := m.Apply(Vec2{X: 1, Y: -1})
	if got != (Vec2{X: 1, Y: -1}) {
		t.Errorf("Apply = %v, want (1, -1)", got)
	}
	if m.Col(0) != (Vec2{X: 2, Y: 1}) || m.Col(1) != (Vec2{X: 1, Y: 2}) {
		t.Errorf("columns = %v %v", m.Col(0), m.Col(1))
	}
	if m.Det() != 3 || m.Trace() != 4 {
		t.Errorf("det/trace = %v/%v", m.Det(), m.Trace())
	}
}

func TestParseMat2(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Mat2
		wantErr error
	}{
		{"json numbers", []any{[]any{2.0, 0.0}, []any{0.0, 3.0}}, Mat2{A: 2, D: 3}, nil},
		{"ints from yaml", []any{[]any{1, 2}, []any{3, 4}}, Mat2{A: 1, B: 2, C: 3, D: 4}, nil},
		{"typed", [][]float64{{1, 0}, {0, 1}}, Identity(), nil},
		{"one row", []any{[]any{1.0, 2.0}}, Mat2{}, ErrShape},
		{"3 columns", []any{[]any{1.0, 2.0, 3.0}, []any{1.0, 2.0, 3.0}}, Mat2{}, ErrShape},
		{"string element", []any{[]any{"1", 2.0}, []any{3.0, 4.0}}, Mat2{}, ErrNotNumber},
		{"not an array", "[[1,0],[0,1]]", Mat2{}, ErrShape},
		{"nil", nil, Mat2{}, ErrShape},
		{"huge element", []any{[]any{1e308, 0.0}, []any{0.0, 1.0}}, Mat2{}, ErrRange},
		{"typed huge element", [][]float64{{1, 0}, {0, -1e101}}, Mat2{}, ErrRange},
		{"at magnitude bound", []any{[]any{MaxMagnitude, 0.0}, []any{0.0, -MaxMagnitude}}, Mat2{A: MaxMagnitude, D: -MaxMagnitude}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMat2(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMat2 = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseVec2AndVectors(t *testing.T) {
	v, err := ParseVec2(map[string]any{"x": 1.5, "y": -2.0})
	if err != nil || v != (Vec2{X: 1.5, Y: -2}) {
		t.Errorf("ParseVec2(object) = %v, %v", v, err)
	}

	vs, err := ParseVectors([]any{})
	if err != nil || vs == nil || len(vs) != 0 {
		t.Errorf("ParseVectors(empty) = %#v, %v; want non-nil empty", vs, err)
	}

	vs, err = ParseVectors([]any{[]any{1.0, 0.0}, []any{0.0, 1.0}})
	if err != nil || len(vs) != 2 || vs[1] != (Vec2{Y: 1}) {
		t.Errorf("ParseVectors = %v, %v", vs, err)
	}

	if _, err := ParseVec2([]any{1e200, 0.0}); !errors.Is(err, ErrRange) {
		t.Errorf("ParseVec2(huge) error = %v, want ErrRange", err)
	}

	if _, err := ParseVectors([]any{[]any{1.0}}); !errors.Is(err, ErrShape) {
		t.Errorf("ParseVectors(bad) error = %v", err)
	}
}

func TestMat2JSON(t *testing.T) {
	m := Mat2{A: 2, B: 0.5, C: -1, D: 3}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[[2,0.5],[-1,3]]" {
		t.Errorf("Marshal = %s", b)
	}
	var back Mat2
	if err := json.Unmarshal(b, &back); err != nil || back != m {
		t.Errorf("Unmarshal = %v, %v", back, err)
	}
	if err := json.Unmarshal([]byte("[[1,2,3]]"), &back); !errors.Is(err, ErrShape) {
		t.Errorf("Unmarshal(bad shape) error = %v", err)
	}
}

func TestDecomposeDiagonal(t *testing.T) {
	d, err := Decompose(Mat2{A: 2, D: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !d.Real() {
		t.Fatal("diagonal matrix should have a real spectrum")
	}
	vals := d.RealValues()
	if len(vals) != 2 {
		t.Fatalf("got %d eigenvalues", len(vals))
	}
	for i, dir := range d.Directions() {
		// each eigenvector must satisfy M·v = λ·v
		mv := Mat2{A: 2, D: 3}.Apply(dir)
		lv := dir.Scale(vals[i])
		if math.Abs(mv.X-lv.X) > tol || math.Abs(mv.Y-lv.Y) > tol {
			t.Errorf("column %d: M·v = %v, λv = %v", i, mv, lv)
		}
		if math.Abs(dir.Norm()-1) > tol {
			t.Errorf("column %d not unit length: %v", i, dir.Norm())
		}
	}
}

func TestDecomposeSymmetric(t *testing.T) {
	m := Mat2{A: 2, B: 1, C: 1, D: 2}
	d, err := Decompose(m)
	if err != nil {
		t.Fatal(err)
	}
	vals := d.RealValues()
	seen := map[int]bool{}
	for _, v := range vals {
		seen[int(math.Round(v))] = true
	}
	if !seen[1] || !seen[3] {
		t.Errorf("eigenvalues = %v, want {1, 3}", vals)
	}
	for i, dir := range d.Directions() {
		if c := dir.Cross(m.Apply(dir)); math.Abs(c) > tol {
			t.Errorf("column %d is not an eigenvector, cross = %v", i, c)
		}
	}
}

func TestDecomposeRotationIsComplex(t *testing.T) {
	d, err := Decompose(Mat2{A: 0, B: -1, C: 1, D: 0})
	if err != nil {
		t.Fatal(err)
	}
	if d.Real() {
		t.Error("rotation should have a complex spectrum")
	}
	if d.Eigenvectors != nil || d.Directions() != nil {
		t.Errorf("complex spectrum should omit eigenvectors, got %v", d.Eigenvectors)
	}
}
