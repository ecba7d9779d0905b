// Package probe decides whether a user-placed vector is (approximately) an
// eigenvector of a 2×2 matrix.
//
// Evaluate is pure. Callers pass an immutable snapshot of the matrix and the
// vector and get a fresh Result; nothing here talks to services or keeps state.
package probe

import (
	"encoding/json"
	"math"

	"github.com/blueplan/linviz-go/internal/linviz/linalg"
)

const (
	// EpsParallel bounds |x × Ax| for x and Ax to count as parallel.
	EpsParallel = 0.1
	// EpsZero bounds each component of x for x to count as the zero vector.
	EpsZero = 0.1
)

// Thresholds are the comparison tolerances. Both comparisons are strict:
// |cross| must be below Parallel, and a component must exceed Zero.
type Thresholds struct {
	Parallel float64 `json:"parallel" yaml:"parallel"`
	Zero     float64 `json:"zero" yaml:"zero"`
}

// DefaultThresholds returns EpsParallel and EpsZero.
func DefaultThresholds() Thresholds {
	return Thresholds{Parallel: EpsParallel, Zero: EpsZero}
}

// Ratio is the estimated eigenvalue. It is absent when x is within the zero
// tolerance, in which case no division took place.
type Ratio struct {
	Value float64
	Valid bool
}

// MarshalJSON encodes an absent ratio as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// Result is the derived state for one (matrix, vector) snapshot.
type Result struct {
	Matrix     linalg.Mat2 `json:"matrix"`
	X          linalg.Vec2 `json:"x"`
	Ax         linalg.Vec2 `json:"ax"`
	Cross      float64     `json:"cross"`
	IsParallel bool        `json:"is_parallel"`
	IsNonZero  bool        `json:"is_non_zero"`
	IsEigen    bool        `json:"is_eigen"`
	Ratio      Ratio       `json:"ratio"`
}

// Evaluate runs the probe with the default thresholds.
func Evaluate(m linalg.Mat2, x linalg.Vec2) Result {
	return EvaluateWith(DefaultThresholds(), m, x)
}

// EvaluateWith runs the probe with explicit thresholds.
func EvaluateWith(th Thresholds, m linalg.Mat2, x linalg.Vec2) Result {
	ax := m.Apply(x)
	cross := x.X*ax.Y - x.Y*ax.X

	r := Result{
		Matrix: m,
		X:      x,
		Ax:     ax,
		Cross:  cross,
	}
	r.IsParallel = math.Abs(cross) < th.Parallel
	r.IsNonZero = math.Abs(x.X) > th.Zero || math.Abs(x.Y) > th.Zero
	r.IsEigen = r.IsParallel && r.IsNonZero

	switch {
	case math.Abs(x.X) > th.Zero:
		r.Ratio = ratio(ax.X, x.X)
	case math.Abs(x.Y) > th.Zero:
		r.Ratio = ratio(ax.Y, x.Y)
	}
	return r
}

// ratio is absent when the quotient overflows.
func ratio(num, den float64) Ratio {
	q := num / den
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return Ratio{}
	}
	return Ratio{Value: q, Valid: true}
}

// Finite reports whether Ax and the cross product are finite numbers.
func (r Result) Finite() bool {
	for _, v := range []float64{r.Ax.X, r.Ax.Y, r.Cross} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Eigenvalue returns the ratio when x is an eigenvector.
func (r Result) Eigenvalue() (float64, bool) {
	if !r.IsEigen || !r.Ratio.Valid {
		return 0, false
	}
	return r.Ratio.Value, true
}
