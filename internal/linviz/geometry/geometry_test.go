package geometry

import (
	"testing"

	"github.com/blueplan/linviz-go/internal/linviz/linalg"
)

func TestVectorSum(t *testing.T) {
	u := linalg.Vec2{X: 1, Y: 2}
	v := linalg.Vec2{X: 3, Y: -1}
	shapes := VectorSum(u, v)

	if len(shapes) != 5 {
		t.Fatalf("got %d shapes, want 5", len(shapes))
	}
	sum := shapes[4]
	if sum.Tip != (linalg.Vec2{X: 4, Y: 1}) || sum.Label != "u + v" || sum.Color != ColorGreen {
		t.Errorf("sum shape = %+v", sum)
	}
	for _, ghost := range shapes[:2] {
		if ghost.Style != StyleDashed || ghost.Opacity != 0.5 || ghost.Tip != sum.Tip {
			t.Errorf("ghost = %+v", ghost)
		}
	}
}

func TestBasisTransform(t *testing.T) {
	m := linalg.Mat2{A: 1, B: 1, C: 0, D: 1}
	shapes := BasisTransform(m)
	if len(shapes) != 3 {
		t.Fatalf("got %d shapes", len(shapes))
	}
	square := shapes[0]
	if square.Kind != KindPolygon || len(square.Points) != 4 {
		t.Fatalf("square = %+v", square)
	}
	if square.Points[2] != (linalg.Vec2{X: 2, Y: 1}) {
		t.Errorf("far corner = %v, want (2, 1)", square.Points[2])
	}
	if shapes[1].Tip != (linalg.Vec2{X: 1, Y: 0}) || shapes[2].Tip != (linalg.Vec2{X: 1, Y: 1}) {
		t.Errorf("basis tips = %v %v", shapes[1].Tip, shapes[2].Tip)
	}
}

func TestTransformed(t *testing.T) {
	m := linalg.Mat2{A: 0, B: -1, C: 1, D: 0}
	shapes := Transformed(m, []linalg.Vec2{{X: 1}})
	if len(shapes) != 2 {
		t.Fatalf("got %d shapes", len(shapes))
	}
	if shapes[1].Tip != (linalg.Vec2{X: 0, Y: 1}) {
		t.Errorf("image = %v, want (0, 1)", shapes[1].Tip)
	}
	if got := Transformed(m, nil); len(got) != 0 {
		t.Errorf("Transformed(nil) = %v", got)
	}
}

func TestProbeViewSkipsZeroSpan(t *testing.T) {
	shapes := ProbeView(linalg.Vec2{}, linalg.Vec2{}, nil)
	if len(shapes) != 2 {
		t.Fatalf("zero x should produce only the two arrows, got %d", len(shapes))
	}

	truth := []linalg.Vec2{{X: 1}, {Y: 1}}
	shapes = ProbeView(linalg.Vec2{X: 1, Y: 1}, linalg.Vec2{X: 2, Y: 3}, truth)
	if len(shapes) != 5 {
		t.Fatalf("got %d shapes, want 2 truth lines + span + 2 arrows", len(shapes))
	}
	if shapes[0].Kind != KindLine || shapes[0].Tip != (linalg.Vec2{X: spanExtent}) {
		t.Errorf("truth line = %+v", shapes[0])
	}
}
