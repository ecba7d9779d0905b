package term

import (
	"fmt"
	"strings"

	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/blueplan/linviz-go/internal/linviz/router"
	"github.com/charmbracelet/lipgloss"
)

// Card 渲染讲解卡片；缺失的字段不显示
func Card(c router.Card) string {
	lines := []string{titleStyle.Render(c.Statement)}
	if informal, ok := c.Informal.Get(); ok {
		lines = append(lines, informal)
	}
	if c.LeanCode != "" {
		lines = append(lines, "", codeStyle.Render(strings.TrimSpace(c.LeanCode)))
	}
	if hint, ok := c.Hint.Get(); ok {
		lines = append(lines, "", hintStyle.Render("提示: "+hint))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// Notice 渲染一条提示
func Notice(n router.Notice) string {
	return warnStyle.Render("["+n.Code+"]") + " " + n.Message
}

// Outcome 渲染一次路由结果
func Outcome(out router.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("kind"), valueStyle.Render(out.Kind.String()))
	if out.Operation != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("operation"), valueStyle.Render(out.Operation))
	}
	if out.Explanation != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("explanation"), valueStyle.Render(out.Explanation))
	}
	if inst, ok := out.Visualization.Get(); ok {
		fmt.Fprintf(&b, "%s grid=%t eigen_view=%t shapes=%d\n",
			labelStyle.Render("view"), inst.ShowGrid, inst.EigenView, len(inst.Geometry))
		if tr, ok := inst.Transform.Get(); ok {
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("matrix"), tr.Matrix)
			for i, img := range tr.Images {
				fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("image %d", i)), img)
			}
		}
	}
	if card, ok := out.Card.Get(); ok {
		b.WriteString(Card(card))
		b.WriteString("\n")
	} else if out.NoOp() {
		b.WriteString(dimStyle.Render("(no content)"))
		b.WriteString("\n")
	}
	for _, n := range out.Notices {
		b.WriteString(Notice(n))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Result 渲染探针结果
func Result(r probe.Result) string {
	rows := [][2]string{
		{"A", r.Matrix.String()},
		{"x", r.X.String()},
		{"Ax", r.Ax.String()},
		{"x × Ax", fmt.Sprintf("%.4f", r.Cross)},
		{"parallel", fmt.Sprintf("%t", r.IsParallel)},
		{"non-zero", fmt.Sprintf("%t", r.IsNonZero)},
	}
	if r.Ratio.Valid {
		rows = append(rows, [2]string{"ratio", fmt.Sprintf("%.4f", r.Ratio.Value)})
	} else {
		rows = append(rows, [2]string{"ratio", "n/a"})
	}

	lines := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), valueStyle.Render(row[1])))
	}
	if lambda, ok := r.Eigenvalue(); ok {
		lines = append(lines, eigenStyle.Render(fmt.Sprintf("eigenvector! λ ≈ %.4f", lambda)))
	} else {
		lines = append(lines, dimStyle.Render("not an eigenvector"))
	}
	return strings.Join(lines, "\n")
}
