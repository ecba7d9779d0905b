package term

import (
	"fmt"
	"math"
	"strings"

	"github.com/blueplan/linviz-go/internal/linviz/linalg"
	"github.com/blueplan/linviz-go/internal/linviz/probe"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	planeCols  = 33
	planeRows  = 17
	planeRange = 4.0
)

var entryNames = [4]string{"a", "b", "c", "d"}

// ProbeModel 交互式探针：方向键移动 x，tab 选择矩阵元素，+/- 修改
type ProbeModel struct {
	matrix     linalg.Mat2
	x          linalg.Vec2
	thresholds probe.Thresholds
	step       float64
	selected   int // -1 表示未选中矩阵元素
	truth      []linalg.Vec2
	result     probe.Result
	showHelp   bool
}

// NewProbeModel 创建探针模型
func NewProbeModel(m linalg.Mat2, x linalg.Vec2, th probe.Thresholds) ProbeModel {
	pm := ProbeModel{
		matrix:     m,
		x:          x,
		thresholds: th,
		step:       0.1,
		selected:   -1,
	}
	pm.refreshTruth()
	pm.evaluate()
	return pm
}

// Result 当前探针结果
func (m ProbeModel) Result() probe.Result {
	return m.result
}

// Matrix 当前矩阵
func (m ProbeModel) Matrix() linalg.Mat2 {
	return m.matrix
}

func (m ProbeModel) Init() tea.Cmd { return nil }

// Update 处理按键
func (m ProbeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h":
		m.x.X -= m.step
	case "right", "l":
		m.x.X += m.step
	case "up", "k":
		m.x.Y += m.step
	case "down", "j":
		m.x.Y -= m.step
	case "[":
		m.step = math.Max(m.step/2, 0.0125)
	case "]":
		m.step = math.Min(m.step*2, 1)
	case "tab":
		m.selected = (m.selected+2)%5 - 1
	case "+", "=":
		m.adjust(0.5)
	case "-", "_":
		m.adjust(-0.5)
	case "s":
		m.snap()
	case "?":
		m.showHelp = !m.showHelp
	default:
		return m, nil
	}
	m.evaluate()
	return m, nil
}

func (m *ProbeModel) adjust(delta float64) {
	switch m.selected {
	case 0:
		m.matrix.A += delta
	case 1:
		m.matrix.B += delta
	case 2:
		m.matrix.C += delta
	case 3:
		m.matrix.D += delta
	default:
		return
	}
	m.refreshTruth()
}

// snap 把 x 移到最近的真实特征方向，长度不变
func (m *ProbeModel) snap() {
	if len(m.truth) == 0 {
		return
	}
	norm := m.x.Norm()
	if norm == 0 {
		norm = 1
	}
	best, bestDot := m.truth[0], -1.0
	for _, dir := range m.truth {
		for _, d := range []linalg.Vec2{dir, dir.Scale(-1)} {
			dot := (d.X*m.x.X + d.Y*m.x.Y) / norm
			if dot > bestDot {
				best, bestDot = d, dot
			}
		}
	}
	m.x = best.Scale(norm / math.Max(best.Norm(), 1e-12))
}

func (m *ProbeModel) refreshTruth() {
	m.truth = nil
	if d, err := linalg.Decompose(m.matrix); err == nil {
		m.truth = d.Directions()
	}
}

func (m *ProbeModel) evaluate() {
	m.result = probe.EvaluateWith(m.thresholds, m.matrix, m.x)
}

// View 渲染平面和结果面板
func (m ProbeModel) View() string {
	plane := cardStyle.Render(m.plane())
	side := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Eigenvector probe"),
		m.matrixView(),
		"",
		Result(m.result),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, plane, "  ", side)

	help := "←↑↓→ move x  [ ] step  tab select entry  +/- edit  s snap  ? help  q quit"
	if m.showHelp {
		help += fmt.Sprintf("\nstep=%.4g  ε∥=%.3g  ε0=%.3g  x marks x, A marks Ax, · marks eigen directions",
			m.step, m.thresholds.Parallel, m.thresholds.Zero)
	}
	return body + "\n" + hintStyle.Render(help)
}

func (m ProbeModel) matrixView() string {
	vals := [4]float64{m.matrix.A, m.matrix.B, m.matrix.C, m.matrix.D}
	cells := make([]string, 4)
	for i, v := range vals {
		s := fmt.Sprintf("%s=%6.2f", entryNames[i], v)
		if i == m.selected {
			s = warnStyle.Render(s)
		}
		cells[i] = s
	}
	return cells[0] + "  " + cells[1] + "\n" + cells[2] + "  " + cells[3]
}

// plane 以字符画出坐标平面
func (m ProbeModel) plane() string {
	grid := make([][]rune, planeRows)
	for r := range grid {
		grid[r] = make([]rune, planeCols)
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}
	cx, cy := planeCols/2, planeRows/2
	for c := 0; c < planeCols; c++ {
		grid[cy][c] = '─'
	}
	for r := 0; r < planeRows; r++ {
		grid[r][cx] = '│'
	}
	grid[cy][cx] = '┼'

	put := func(p linalg.Vec2, ch rune) {
		col, row, ok := cell(p)
		if ok {
			grid[row][col] = ch
		}
	}
	for _, dir := range m.truth {
		n := dir.Norm()
		if n == 0 {
			continue
		}
		unit := dir.Scale(1 / n)
		for t := -planeRange * 1.5; t <= planeRange*1.5; t += 0.25 {
			put(unit.Scale(t), '·')
		}
	}
	put(m.result.Ax, 'A')
	put(m.x, 'x')

	lines := make([]string, planeRows)
	for r, row := range grid {
		lines[r] = string(row)
	}
	return strings.Join(lines, "\n")
}

// cell 把平面坐标映射到网格；超出范围时返回 false
func cell(p linalg.Vec2) (int, int, bool) {
	col := int(math.Round(p.X*float64(planeCols/2)/planeRange)) + planeCols/2
	row := planeRows/2 - int(math.Round(p.Y*float64(planeRows/2)/planeRange))
	if col < 0 || col >= planeCols || row < 0 || row >= planeRows {
		return 0, 0, false
	}
	return col, row, true
}

// RunProbe 启动交互式探针
func RunProbe(m linalg.Mat2, x linalg.Vec2, th probe.Thresholds) error {
	_, err := tea.NewProgram(NewProbeModel(m, x, th)).Run()
	return err
}
