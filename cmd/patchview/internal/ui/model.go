package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/patchview/internal/source"
	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/explorer"
	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/position"
	"github.com/recera/patchview/pkg/refresh"
	"github.com/recera/patchview/pkg/signal"
)

// Screen layout in terminal cells
const (
	headerRows = 2
	panelGap   = 2
	maxPanel   = 64
	minPanel   = 16
)

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Reset key.Binding
	Quit  key.Binding
	Help  key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "right"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reset, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Reset, k.Help, k.Quit},
	}
}

// Options configures the explorer screen
type Options struct {
	Explorer        explorer.Options
	Data            source.Provider
	RefreshInterval time.Duration
	Title           string
}

// Messages
type tickMsg time.Time

// Model is the terminal explorer. Bubble Tea delivers every message on one
// goroutine, which is the explorer's event loop: pointer events and refresh
// ticks are applied in arrival order.
type Model struct {
	width  int
	height int

	opts  Options
	ex    *explorer.Explorer
	doc   *drag.VirtualDocument
	keys  KeyMap
	help  help.Model
	ticks uint64

	// panels[i] is the screen rect of pointer source i
	panels []panelRect

	// set by the PositionChanged subscription, cleared by refresh
	dirty *bool

	last    refresh.Output
	preview [][]float64

	showHelp bool
	quitting bool
}

// panelRect is a panel's origin and size in cells
type panelRect struct {
	id         string
	col, row   int
	cols, rows int
}

// New creates the model
func New(opts Options) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Second
	}
	if opts.Title == "" {
		opts.Title = "patchview"
	}
	if opts.Data == nil {
		opts.Data = source.Static{}
	}

	exOpts := opts.Explorer
	ex := explorer.New(&exOpts)

	dirty := true
	ex.Store().Subscribe(position.PositionChanged, func(position.Notification) {
		dirty = true
	})

	m := Model{
		opts:  opts,
		ex:    ex,
		doc:   drag.NewVirtualDocument(),
		keys:  DefaultKeyMap,
		help:  help.New(),
		dirty: &dirty,
	}
	m.layout(2*maxPanel+panelGap, maxPanel/2+headerRows+8)
	m.refresh()
	return m
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.ex.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
		case key.Matches(msg, m.keys.Reset):
			m.ex.Store().Publish(m.ex.Store().Default())
		case key.Matches(msg, m.keys.Up):
			m.nudge(0, -1)
		case key.Matches(msg, m.keys.Down):
			m.nudge(0, 1)
		case key.Matches(msg, m.keys.Left):
			m.nudge(-1, 0)
		case key.Matches(msg, m.keys.Right):
			m.nudge(1, 0)
		}

	case tea.MouseMsg:
		if evt, ok := m.pointerEvent(msg); ok {
			m.doc.Dispatch(evt)
		}

	case tickMsg:
		*m.dirty = true
		m.refreshIfDirty()
		return m, m.tick()
	}

	m.refreshIfDirty()
	return m, nil
}

// nudge moves the published position by one cell
func (m *Model) nudge(dx, dy int) {
	c := m.ex.Store().Current()
	if c.IsUnset() {
		c = grid.Center
	}
	c.X = clampInt(c.X+dx, 0, grid.Width-1)
	c.Y = clampInt(c.Y+dy, 0, grid.Height-1)
	m.ex.Store().Publish(c)
}

// layout sizes the panels to the window and rebinds the pointer sources.
// Rows are counted twice in pointer units so a panel of 2n columns by n
// rows is square on screen and square to the mapper.
func (m *Model) layout(width, height int) {
	m.width, m.height = width, height

	ids := m.ex.Options().Elements
	n := len(ids)
	if n == 0 {
		return
	}

	cols := (width - panelGap*(n-1)) / n
	if rows := height - headerRows - 8; cols > rows*2 {
		cols = rows * 2
	}
	cols = clampInt(cols, minPanel, maxPanel) &^ 1

	m.panels = m.panels[:0]
	for i, id := range ids {
		p := panelRect{
			id:   id,
			col:  i * (cols + panelGap),
			row:  headerRows,
			cols: cols,
			rows: cols / 2,
		}
		m.panels = append(m.panels, p)
		m.doc.SetElement(id, grid.Rect{
			Left:   float64(p.col),
			Top:    float64(p.row * 2),
			Width:  float64(p.cols),
			Height: float64(p.rows * 2),
		})
	}
	m.ex.Setup(m.doc)
}

// pointerEvent converts a terminal mouse event into pointer units
func (m Model) pointerEvent(msg tea.MouseMsg) (drag.Event, bool) {
	var kind drag.Kind
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return drag.Event{}, false
		}
		kind = drag.Press
	case tea.MouseActionMotion:
		kind = drag.Move
	case tea.MouseActionRelease:
		kind = drag.Release
	default:
		return drag.Event{}, false
	}

	return drag.Event{
		Kind: kind,
		Pointer: grid.Pointer{
			ClientX: float64(msg.X) + 0.5,
			ClientY: float64(msg.Y*2) + 1,
		},
		Time: time.Now(),
	}, true
}

func (m *Model) refreshIfDirty() {
	if *m.dirty {
		m.refresh()
	}
}

func (m *Model) refresh() {
	*m.dirty = false
	m.ticks++

	buffer, metadata := m.opts.Data.Data()
	m.last = m.ex.Refresh(refresh.Input{
		Tick:         m.ticks,
		SignalBuffer: buffer,
		FileMetadata: metadata,
	})
	m.preview = patchMeans(buffer, metadata, m.ex.Options().Channels)
}

// Position returns the shared position
func (m Model) Position() grid.Coordinate {
	return m.ex.Store().Current()
}

// Last returns the most recent refresh output
func (m Model) Last() refresh.Output {
	return m.last
}

// patchMeans returns, per channel, the mean of every patch offset's window.
// It is nil when the data cannot be decoded.
func patchMeans(buffer, metadata []byte, channels int) [][]float64 {
	buf, err := signal.ParseBuffer(buffer)
	if err != nil {
		return nil
	}
	md, err := signal.ParseMetadata(metadata)
	if err != nil {
		return nil
	}

	cells := grid.PatchSize * grid.PatchSize
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, cells)
		for offset := 0; offset < cells; offset++ {
			w := buf.Extract(ch, offset, md.Frames, 0)
			if len(w) == 0 {
				continue
			}
			var sum float64
			for _, v := range w {
				sum += v
			}
			out[ch][offset] = sum / float64(len(w))
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
