package probe

import (
	"math"

	"github.com/blueplan/linviz-go/internal/linviz/linalg"
)

// Sample is one point of a sweep around the unit circle.
type Sample struct {
	Angle  float64
	Result Result
}

// Sweep evaluates unit vectors at n evenly spaced angles in [0, π).
// Directions where the cross product changes sign bracket eigen directions.
func Sweep(th Thresholds, m linalg.Mat2, n int) []Sample {
	if n <= 0 {
		return nil
	}
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		angle := math.Pi * float64(i) / float64(n)
		x := linalg.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
		out[i] = Sample{Angle: angle, Result: EvaluateWith(th, m, x)}
	}
	return out
}

// Crossings returns the angles of samples that are eigen or where the cross
// product changes sign relative to the previous sample.
func Crossings(samples []Sample) []float64 {
	var out []float64
	for i, s := range samples {
		if s.Result.IsEigen {
			out = append(out, s.Angle)
			continue
		}
		if i > 0 {
			prev := samples[i-1].Result.Cross
			if (prev < 0) != (s.Result.Cross < 0) && !samples[i-1].Result.IsEigen {
				out = append(out, s.Angle)
			}
		}
	}
	return out
}
