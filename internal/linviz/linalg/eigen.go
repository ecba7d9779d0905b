package linalg

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// ErrDecompose is returned when the eigen factorization does not converge.
var ErrDecompose = errors.New("linalg: eigen decomposition failed")

// imagTolerance below which an eigenvalue is treated as real.
const imagTolerance = 1e-12

// Eigenvalue is a possibly complex eigenvalue.
type Eigenvalue struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

// Decomposition is the ground-truth eigen decomposition of a 2×2 matrix.
// Eigenvectors is row-major with eigenvector i in column i, normalized to
// unit length. It is nil when the spectrum is complex.
type Decomposition struct {
	Eigenvalues  []Eigenvalue `json:"eigenvalues"`
	Eigenvectors [][]float64  `json:"eigenvectors,omitempty"`
}

// Real reports whether all eigenvalues are real.
func (d Decomposition) Real() bool {
	for _, ev := range d.Eigenvalues {
		if math.Abs(ev.Imag) > imagTolerance {
			return false
		}
	}
	return true
}

// Directions returns the eigenvectors as Vec2 values.
func (d Decomposition) Directions() []Vec2 {
	if len(d.Eigenvectors) != 2 {
		return nil
	}
	out := make([]Vec2, 0, 2)
	for col := 0; col < len(d.Eigenvectors[0]); col++ {
		out = append(out, Vec2{X: d.Eigenvectors[0][col], Y: d.Eigenvectors[1][col]})
	}
	return out
}

// RealValues returns the real parts of the eigenvalues.
func (d Decomposition) RealValues() []float64 {
	out := make([]float64, len(d.Eigenvalues))
	for i, ev := range d.Eigenvalues {
		out[i] = ev.Real
	}
	return out
}

// Decompose computes eigenvalues and right eigenvectors of m.
func Decompose(m Mat2) (Decomposition, error) {
	a := mat.NewDense(2, 2, []float64{m.A, m.B, m.C, m.D})

	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenRight); !ok {
		return Decomposition{}, ErrDecompose
	}

	values := eig.Values(nil)
	d := Decomposition{Eigenvalues: make([]Eigenvalue, len(values))}
	for i, v := range values {
		d.Eigenvalues[i] = Eigenvalue{Real: real(v), Imag: imag(v)}
	}
	if !d.Real() {
		return d, nil
	}

	var vecs mat.CDense
	eig.VectorsTo(&vecs)
	rows, cols := vecs.Dims()
	d.Eigenvectors = make([][]float64, rows)
	for r := 0; r < rows; r++ {
		d.Eigenvectors[r] = make([]float64, cols)
	}
	for c := 0; c < cols; c++ {
		norm := 0.0
		for r := 0; r < rows; r++ {
			norm += math.Pow(cmplx.Abs(vecs.At(r, c)), 2)
		}
		norm = math.Sqrt(norm)
		for r := 0; r < rows; r++ {
			x := real(vecs.At(r, c))
			if norm > 0 {
				x /= norm
			}
			d.Eigenvectors[r][c] = x
		}
	}
	return d, nil
}
