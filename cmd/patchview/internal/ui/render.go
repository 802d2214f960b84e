package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/recera/patchview/pkg/figure"
	"github.com/recera/patchview/pkg/grid"
)

// Style definitions
var (
	primaryColor = lipgloss.Color("#3b82f6")
	mutedColor   = lipgloss.Color("#94a3b8")
	markerColor  = lipgloss.Color("#ef4444")
	warningColor = lipgloss.Color("#f59e0b")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	heatStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	markerStyle = lipgloss.NewStyle().
			Foreground(markerColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	sparkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10b981"))

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

var (
	shades = []rune(" ░▒▓█")
	bars   = []rune("▁▂▃▄▅▆▇█")
)

// View renders the UI. Panels are drawn unpadded at the origins recorded by
// layout so mouse cells line up with the pointer sources.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	panels := make([]string, len(m.panels))
	for i, p := range m.panels {
		panels[i] = m.renderPanel(i, p)
	}
	gap := strings.Repeat(" ", panelGap)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, interleave(panels, gap)...))
	b.WriteString("\n\n")

	sparks := make([]string, len(m.panels))
	for i, p := range m.panels {
		sparks[i] = m.renderSpark(i, p.cols)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, interleave(sparks, gap)...))

	b.WriteString(footerStyle.Render(m.renderFooter()))
	return b.String()
}

func (m Model) renderHeader() string {
	pos := m.last.Position
	status := fmt.Sprintf("position %s  patch offset %d", pos, m.last.Offset)
	if m.ex.Store().Dragging() {
		status += "  dragging"
	}
	if m.last.Fallback {
		reason := "no data"
		if m.last.Reason != nil {
			reason = m.last.Reason.Error()
		}
		status += "  " + warningStyle.Render(reason)
	}
	return titleStyle.Render(m.opts.Title) + "  " + mutedStyle.Render(status)
}

// renderPanel draws the grid as a heat map of patch means for channel ch,
// with the marker cell in red
func (m Model) renderPanel(ch int, p panelRect) string {
	var means []float64
	if ch < len(m.preview) {
		means = m.preview[ch]
	}
	lo, hi := bounds(means)

	rect := grid.Rect{Width: float64(p.cols), Height: float64(p.rows * 2)}
	marker := m.last.Position
	showMarker := !m.last.Fallback && !marker.IsUnset()

	lines := make([]string, p.rows)
	for r := 0; r < p.rows; r++ {
		var row strings.Builder
		for c := 0; c < p.cols; c++ {
			cell := grid.Map(rect, grid.Pointer{
				ClientX: float64(c) + 0.5,
				ClientY: float64(r*2) + 1,
			}, grid.Default)

			if showMarker && sameCell(cell, marker, p) {
				row.WriteString(markerStyle.Render("●"))
				continue
			}
			shade := shades[0]
			if means != nil {
				v := means[grid.PatchOffset(cell, grid.PatchSize)]
				shade = shades[level(v, lo, hi, len(shades))]
			}
			row.WriteRune(shade)
		}
		lines[r] = heatStyle.Render(row.String())
	}
	return strings.Join(lines, "\n")
}

// sameCell reports whether marker falls in the screen cell holding cell
func sameCell(cell, marker grid.Coordinate, p panelRect) bool {
	cw := float64(grid.Width) / float64(p.cols)
	ch := float64(grid.Height) / float64(p.rows)
	return int(float64(marker.X)/cw) == int(float64(cell.X)/cw) &&
		int(float64(marker.Y)/ch) == int(float64(cell.Y)/ch)
}

// renderSpark draws channel ch of the last refresh as a one-line sparkline
func (m Model) renderSpark(ch, width int) string {
	var y []float64
	if ch < len(m.last.Signals) {
		y = traceY(m.last.Signals[ch])
	}
	label := fmt.Sprintf("signal %d ", ch)
	width -= len(label)
	if width <= 0 {
		return mutedStyle.Render(label)
	}
	if len(y) == 0 {
		return mutedStyle.Render(label + strings.Repeat("·", width))
	}
	return mutedStyle.Render(label) + sparkStyle.Render(Sparkline(y, width))
}

func (m Model) renderFooter() string {
	if m.showHelp {
		return m.help.View(m.keys)
	}
	return m.help.ShortHelpView(m.keys.ShortHelp()) + "  drag on a panel to move"
}

// Sparkline resamples y to width columns and draws each as a block bar
func Sparkline(y []float64, width int) string {
	if len(y) == 0 || width <= 0 {
		return ""
	}
	lo, hi := bounds(y)

	out := make([]rune, width)
	for i := range out {
		// mean of the samples that fall into column i
		start := i * len(y) / width
		end := (i + 1) * len(y) / width
		if end <= start {
			end = start + 1
		}
		var sum float64
		for _, v := range y[start:end] {
			sum += v
		}
		out[i] = bars[level(sum/float64(end-start), lo, hi, len(bars))]
	}
	return string(out)
}

func traceY(f figure.Figure) []float64 {
	if len(f.Data) == 0 {
		return nil
	}
	return f.Data[0].Y
}

// bounds returns the finite min and max of values
func bounds(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// level quantizes v in [lo, hi] to [0, n)
func level(v, lo, hi float64, n int) int {
	if hi <= lo || math.IsNaN(v) {
		return 0
	}
	l := int((v - lo) / (hi - lo) * float64(n-1))
	if l < 0 {
		return 0
	}
	if l >= n {
		return n - 1
	}
	return l
}

func interleave(items []string, sep string) []string {
	out := make([]string, 0, len(items)*2)
	for i, s := range items {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, s)
	}
	return out
}
