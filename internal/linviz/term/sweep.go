package term

import (
	"fmt"
	"math"
	"strings"

	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/guptarohit/asciigraph"
)

// Sweep 画出单位圆上 x × Ax 随角度的变化，并列出过零的角度
func Sweep(samples []probe.Sample, width, height int) string {
	if len(samples) == 0 {
		return dimStyle.Render("(no samples)")
	}
	data := make([]float64, len(samples))
	eigen := 0
	for i, s := range samples {
		data[i] = s.Result.Cross
		if s.Result.IsEigen {
			eigen++
		}
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("x × Ax over angle θ ∈ [0, π)"),
	)

	var b strings.Builder
	b.WriteString(graph)
	b.WriteString("\n\n")
	crossings := probe.Crossings(samples)
	if len(crossings) == 0 {
		b.WriteString(dimStyle.Render("no real eigen directions"))
		return b.String()
	}
	angles := make([]string, len(crossings))
	for i, a := range crossings {
		angles[i] = fmt.Sprintf("%.1f°", a*180/math.Pi)
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("crossings"), valueStyle.Render(strings.Join(angles, ", ")))
	fmt.Fprintf(&b, "%s %d/%d", labelStyle.Render("eigen hits"), eigen, len(samples))
	return b.String()
}
