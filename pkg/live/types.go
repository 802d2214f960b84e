package live

import (
	"github.com/recera/patchview/pkg/figure"
	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/json"
)

// FrameType is the first byte of a binary frame
type FrameType uint8

const (
	FramePointer FrameType = 0x01
	FrameControl FrameType = 0x02
)

// Text message types
const (
	// client to server
	MsgLayout  = "layout"
	MsgPointer = "pointer"
	MsgSink    = "sink"
	MsgFigures = "figures"

	// server to client
	MsgSetup  = "setup"
	MsgNotify = "notify"
	MsgRender = "render"
	MsgError  = "error"
)

// Envelope carries the type of a text message; the rest of the message is
// decoded once the type is known
type Envelope struct {
	Type string `json:"type"`
}

// LayoutMessage reports the client rects of the tracked elements
type LayoutMessage struct {
	Type     string               `json:"type"`
	Elements map[string]grid.Rect `json:"elements"`
}

// PointerMessage is one pointer event. TimeStamp is in milliseconds on any
// clock that is monotonic for the connection; zero means "now".
type PointerMessage struct {
	Type      string  `json:"type"`
	Event     string  `json:"event"`
	Target    string  `json:"target,omitempty"`
	ClientX   float64 `json:"clientX"`
	ClientY   float64 `json:"clientY"`
	TimeStamp float64 `json:"timeStamp,omitempty"`
}

// SinkMessage overwrites the shared position text
type SinkMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FiguresMessage replaces the displayed figures that receive the marker
type FiguresMessage struct {
	Type    string            `json:"type"`
	Figures []json.RawMessage `json:"figures"`
}

// SetupMessage is sent once the tracked elements are bound
type SetupMessage struct {
	Type     string   `json:"type"`
	Session  string   `json:"session"`
	Seed     string   `json:"seed"`
	SinkID   string   `json:"sink"`
	Elements []string `json:"elements"`
	Bound    int      `json:"bound"`
}

// NotifyMessage mirrors a position store notification
type NotifyMessage struct {
	Type     string          `json:"type"`
	Event    string          `json:"event"`
	Position grid.Coordinate `json:"position"`
	Sink     string          `json:"sink"`
}

// RenderMessage is one refresh cycle's output
type RenderMessage struct {
	Type     string              `json:"type"`
	Tick     uint64              `json:"tick"`
	Position grid.Coordinate     `json:"position"`
	Offset   int                 `json:"offset"`
	Signals  []figure.Figure     `json:"signals"`
	Figures  []figure.Descriptor `json:"figures,omitempty"`
	Fallback bool                `json:"fallback,omitempty"`
	Reason   string              `json:"reason,omitempty"`
}

// ErrorMessage reports a rejected client message
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
