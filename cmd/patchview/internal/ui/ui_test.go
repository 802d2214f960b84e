package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/patchview/internal/source"
	"github.com/recera/patchview/pkg/grid"
)

// 64 patches of 4 frames each
func testData() source.Static {
	parts := make([]string, 64*4)
	for i := range parts {
		parts[i] = fmt.Sprint(i % 17)
	}
	arr := "[" + strings.Join(parts, ",") + "]"
	return source.Static{
		Buffer:   []byte(`{"signal_0":` + arr + `,"signal_1":` + arr + `}`),
		Metadata: []byte(`{"frames":4}`),
	}
}

func newModel(t *testing.T) Model {
	t.Helper()
	m := New(Options{Data: testData(), RefreshInterval: time.Hour})
	require.Len(t, m.panels, 2)
	return m
}

func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func mouse(action tea.MouseAction, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func TestNew_StartsAtCenter(t *testing.T) {
	m := newModel(t)

	assert.Equal(t, grid.Center, m.Position())
	assert.False(t, m.Last().Fallback)
	assert.Equal(t, grid.PatchOffset(grid.Center, grid.PatchSize), m.Last().Offset)
	assert.Len(t, m.Last().Signals, 2)
}

func TestLayout_SquarePanels(t *testing.T) {
	m := newModel(t)
	m, _ = send(m, tea.WindowSizeMsg{Width: 100, Height: 40})

	for _, p := range m.panels {
		assert.Equal(t, p.cols, p.rows*2, "panel %s is not square", p.id)
		assert.Equal(t, headerRows, p.row)
	}
	assert.Equal(t, m.panels[0].cols+panelGap, m.panels[1].col)
}

func TestMouse_PressMapsPanelCell(t *testing.T) {
	m := newModel(t)
	first, second := m.panels[0], m.panels[1]

	m, _ = send(m, mouse(tea.MouseActionPress, first.col, first.row))
	assert.Equal(t, grid.Coordinate{X: 1, Y: 2}, m.Position())
	assert.True(t, m.ex.Store().Dragging())

	m, _ = send(m, mouse(tea.MouseActionRelease, first.col, first.row))
	assert.False(t, m.ex.Store().Dragging())

	// bottom-right cell of the second panel
	m, _ = send(m, mouse(tea.MouseActionPress, second.col+second.cols-1, second.row+second.rows-1))
	// rows are twice as tall as columns are wide, so the last row's
	// center lands one cell short of the edge
	assert.Equal(t, grid.Coordinate{X: 127, Y: 126}, m.Position())
	assert.Equal(t, m.Position(), m.Last().Position, "press triggers a refresh")
}

func TestMouse_OutsidePanelsIgnored(t *testing.T) {
	m := newModel(t)

	// header row
	m, _ = send(m, mouse(tea.MouseActionPress, 3, 0))
	assert.Equal(t, grid.Center, m.Position())
	assert.False(t, m.ex.Store().Dragging())

	// right button
	msg := mouse(tea.MouseActionPress, m.panels[0].col, m.panels[0].row)
	msg.Button = tea.MouseButtonRight
	m, _ = send(m, msg)
	assert.Equal(t, grid.Center, m.Position())
}

func TestMouse_DragFollowsPointer(t *testing.T) {
	m := newModel(t)
	p := m.panels[0]

	m, _ = send(m, mouse(tea.MouseActionPress, p.col, p.row))
	time.Sleep(110 * time.Millisecond)
	m, _ = send(m, mouse(tea.MouseActionMotion, p.col+p.cols+40, p.row+p.rows+40))

	// outside the panel clamps to the far corner
	assert.Equal(t, grid.Coordinate{X: 127, Y: 127}, m.Position())
}

func TestKeys(t *testing.T) {
	m := newModel(t)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, grid.Coordinate{X: 65, Y: 63}, m.Position())
	assert.Equal(t, m.Position(), m.Last().Position)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Equal(t, grid.Center, m.Position())

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, m.showHelp)

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestKeys_NudgeClamps(t *testing.T) {
	m := newModel(t)
	m.ex.Store().Publish(grid.Coordinate{X: 0, Y: 127})

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, grid.Coordinate{X: 0, Y: 127}, m.Position())
}

func TestKeys_DuringDragLastWriteWins(t *testing.T) {
	m := newModel(t)
	p := m.panels[0]

	m, _ = send(m, mouse(tea.MouseActionPress, p.col, p.row))
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, grid.Coordinate{X: 2, Y: 2}, m.Position())
	assert.True(t, m.ex.Store().Dragging(), "a key does not end the drag")

	time.Sleep(110 * time.Millisecond)
	m, _ = send(m, mouse(tea.MouseActionMotion, p.col+p.cols+40, p.row+p.rows+40))
	assert.Equal(t, grid.Coordinate{X: 127, Y: 127}, m.Position())
	assert.Equal(t, m.Position(), m.Last().Position)
}

func TestTick_RefreshesAndReschedules(t *testing.T) {
	m := newModel(t)
	before := m.Last().Tick

	m, cmd := send(m, tickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.Greater(t, m.Last().Tick, before)
}

func TestView(t *testing.T) {
	m := newModel(t)
	view := m.View()

	assert.Contains(t, view, "patchview")
	assert.Contains(t, view, "●")
	assert.Contains(t, view, "signal 0")
	assert.Contains(t, view, "signal 1")
}

func TestView_NoData(t *testing.T) {
	m := New(Options{})
	require.True(t, m.Last().Fallback)

	view := m.View()
	assert.Contains(t, view, "no signal buffer")
	assert.NotContains(t, view, "●")
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁█", Sparkline([]float64{0, 1}, 2))
	assert.Equal(t, "▁▁▁", Sparkline([]float64{5, 5, 5}, 3))
	assert.Equal(t, 4, len([]rune(Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 4))))
	assert.Empty(t, Sparkline(nil, 4))
}
