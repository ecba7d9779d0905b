// Package linalg holds the 2-D vector and matrix types shared by the probe,
// the geometry builders and the ground-truth service.
package linalg

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrShape     = errors.New("linalg: unexpected shape")
	ErrNotNumber = errors.New("linalg: element is not a finite number")
	ErrRange     = errors.New("linalg: element magnitude out of range")
)

// MaxMagnitude bounds every accepted element, so M·x and x × M·x stay finite.
const MaxMagnitude = 1e100

func checkElement(x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ErrNotNumber
	}
	if math.Abs(x) > MaxMagnitude {
		return fmt.Errorf("%w: |%g| > %g", ErrRange, x, MaxMagnitude)
	}
	return nil
}

// Vec2 is a 2-D column vector.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Mat2 is a 2×2 matrix in row-major order: [[A, B], [C, D]].
type Mat2 struct {
	A, B, C, D float64
}

// Identity returns the 2×2 identity.
func Identity() Mat2 {
	return Mat2{A: 1, D: 1}
}

// Apply returns M·v.
func (m Mat2) Apply(v Vec2) Vec2 {
	return Vec2{
		X: m.A*v.X + m.B*v.Y,
		Y: m.C*v.X + m.D*v.Y,
	}
}

// Col returns column i (0 or 1), the image of the i-th basis vector.
func (m Mat2) Col(i int) Vec2 {
	if i == 0 {
		return Vec2{X: m.A, Y: m.C}
	}
	return Vec2{X: m.B, Y: m.D}
}

// Rows returns the matrix as nested slices.
func (m Mat2) Rows() [][]float64 {
	return [][]float64{{m.A, m.B}, {m.C, m.D}}
}

// Det returns the determinant.
func (m Mat2) Det() float64 {
	return m.A*m.D - m.B*m.C
}

// Trace returns A + D.
func (m Mat2) Trace() float64 {
	return m.A + m.D
}

// Add returns u + v.
func (v Vec2) Add(u Vec2) Vec2 {
	return Vec2{X: v.X + u.X, Y: v.Y + u.Y}
}

// Scale returns k·v.
func (v Vec2) Scale(k float64) Vec2 {
	return Vec2{X: k * v.X, Y: k * v.Y}
}

// Cross returns the z-component of v × u.
func (v Vec2) Cross(u Vec2) float64 {
	return v.X*u.Y - v.Y*u.X
}

// Norm returns the Euclidean length.
func (v Vec2) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Slice returns [x, y].
func (v Vec2) Slice() []float64 {
	return []float64{v.X, v.Y}
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y)
}

func (m Mat2) String() string {
	return fmt.Sprintf("[[%g, %g], [%g, %g]]", m.A, m.B, m.C, m.D)
}

// MarshalJSON encodes the matrix as nested arrays.
func (m Mat2) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[[%s,%s],[%s,%s]]",
		formatNumber(m.A), formatNumber(m.B), formatNumber(m.C), formatNumber(m.D))), nil
}

// UnmarshalJSON decodes nested arrays.
func (m *Mat2) UnmarshalJSON(data []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	parsed, err := FromRows(rows)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// FromRows builds a Mat2 from a 2×2 nested slice.
func FromRows(rows [][]float64) (Mat2, error) {
	if len(rows) != 2 || len(rows[0]) != 2 || len(rows[1]) != 2 {
		return Mat2{}, fmt.Errorf("%w: want 2x2 matrix", ErrShape)
	}
	m := Mat2{A: rows[0][0], B: rows[0][1], C: rows[1][0], D: rows[1][1]}
	for _, x := range []float64{m.A, m.B, m.C, m.D} {
		if err := checkElement(x); err != nil {
			return Mat2{}, err
		}
	}
	return m, nil
}
