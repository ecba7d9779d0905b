// Package geometry builds the drawable primitives handed to display clients.
package geometry

import "github.com/blueplan/linviz-go/internal/linviz/linalg"

// Kind 图元类型
type Kind string

const (
	KindVector  Kind = "vector"
	KindLine    Kind = "line"
	KindPolygon Kind = "polygon"
)

// Style 线型
type Style string

const (
	StyleSolid  Style = "solid"
	StyleDashed Style = "dashed"
)

// 颜色与前端保持一致
const (
	ColorBlue   = "#3b82f6"
	ColorRed    = "#ef4444"
	ColorGreen  = "#22c55e"
	ColorOrange = "#f97316"
	ColorPurple = "#a855f7"
	ColorGray   = "#9ca3af"
)

// spanExtent 是直线图元两端延伸的长度
const spanExtent = 10.0

// Shape 单个图元
type Shape struct {
	Kind    Kind          `json:"kind"`
	Tail    linalg.Vec2   `json:"tail"`
	Tip     linalg.Vec2   `json:"tip"`
	Points  []linalg.Vec2 `json:"points,omitempty"`
	Color   string        `json:"color"`
	Style   Style         `json:"style"`
	Opacity float64       `json:"opacity"`
	Label   string        `json:"label,omitempty"`
}

// Arrow 从 tail 指向 tip 的向量
func Arrow(tail, tip linalg.Vec2, color, label string) Shape {
	return Shape{Kind: KindVector, Tail: tail, Tip: tip, Color: color, Style: StyleSolid, Opacity: 1, Label: label}
}

// Ghost 半透明虚线向量
func Ghost(tail, tip linalg.Vec2, color string) Shape {
	return Shape{Kind: KindVector, Tail: tail, Tip: tip, Color: color, Style: StyleDashed, Opacity: 0.5}
}

// Span 过原点、方向为 dir 的虚线
func Span(dir linalg.Vec2, color string, opacity float64) (Shape, bool) {
	n := dir.Norm()
	if n == 0 {
		return Shape{}, false
	}
	unit := dir.Scale(spanExtent / n)
	return Shape{
		Kind:    KindLine,
		Tail:    unit.Scale(-1),
		Tip:     unit,
		Color:   color,
		Style:   StyleDashed,
		Opacity: opacity,
	}, true
}

// VectorSum u、v 及其和，并画出平移后的虚影
func VectorSum(u, v linalg.Vec2) []Shape {
	var origin linalg.Vec2
	sum := u.Add(v)
	return []Shape{
		Ghost(u, sum, ColorRed),
		Ghost(v, sum, ColorBlue),
		Arrow(origin, u, ColorBlue, "u"),
		Arrow(origin, v, ColorRed, "v"),
		Arrow(origin, sum, ColorGreen, "u + v"),
	}
}

// BasisTransform 变换后的 î、ĵ 和单位正方形
func BasisTransform(m linalg.Mat2) []Shape {
	var origin linalg.Vec2
	i, j := m.Col(0), m.Col(1)
	square := Shape{
		Kind:    KindPolygon,
		Points:  []linalg.Vec2{origin, i, i.Add(j), j},
		Color:   ColorGreen,
		Style:   StyleSolid,
		Opacity: 0.2,
	}
	return []Shape{
		square,
		Arrow(origin, i, ColorBlue, "î"),
		Arrow(origin, j, ColorRed, "ĵ"),
	}
}

// Transformed 输入向量及其在 m 下的像
func Transformed(m linalg.Mat2, vectors []linalg.Vec2) []Shape {
	var origin linalg.Vec2
	out := make([]Shape, 0, 2*len(vectors))
	for _, v := range vectors {
		out = append(out, Ghost(origin, v, ColorOrange), Arrow(origin, m.Apply(v), ColorPurple, ""))
	}
	return out
}

// ProbeView 探针视图：x 的张成直线、x、Ax，以及真实特征向量方向
func ProbeView(x, ax linalg.Vec2, truth []linalg.Vec2) []Shape {
	var origin linalg.Vec2
	var out []Shape
	for _, dir := range truth {
		if s, ok := Span(dir, ColorGray, 0.5); ok {
			out = append(out, s)
		}
	}
	if s, ok := Span(x, ColorOrange, 0.3); ok {
		out = append(out, s)
	}
	return append(out,
		Arrow(origin, x, ColorOrange, "x"),
		Arrow(origin, ax, ColorPurple, "Ax"),
	)
}
