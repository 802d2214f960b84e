// Package drag turns pointer press/move/release events on tracked elements
// into published grid positions.
//
// A Controller binds press listeners to the elements named in its options.
// A press starts a Session: the position under the pointer is published at
// once, then document-wide move events are rate limited and mapped against
// the pressed element until a release anywhere ends the session. Each
// session owns its listener handles and removes them exactly once.
package drag

import (
	"fmt"
	"time"

	"github.com/recera/patchview/pkg/grid"
)

// Kind is the pointer event type
type Kind uint8

const (
	Press Kind = iota + 1
	Move
	Release
)

func (k Kind) String() string {
	switch k {
	case Press:
		return "mousedown"
	case Move:
		return "mousemove"
	case Release:
		return "mouseup"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind accepts the DOM event names
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "mousedown", "pointerdown", "press":
		return Press, true
	case "mousemove", "pointermove", "move":
		return Move, true
	case "mouseup", "pointerup", "release":
		return Release, true
	}
	return 0, false
}

// Event is one pointer event
type Event struct {
	Kind    Kind
	Target  string // element ID for presses; empty means hit-test
	Pointer grid.Pointer
	Time    time.Time
}

// State of a controller
type State uint8

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Listener receives events
type Listener func(Event)

// Handle removes a registered listener. Remove must be safe to call twice.
type Handle interface {
	Remove()
}

// HandleFunc adapts a function to Handle
type HandleFunc func()

// Remove calls f
func (f HandleFunc) Remove() { f() }

// Element is a pointer source
type Element interface {
	ID() string
	// Bounds is read on every mapped event so layout changes mid-drag are
	// honored
	Bounds() grid.Rect
	OnPress(Listener) Handle
}

// Document is the scope moves and releases are observed at
type Document interface {
	Element(id string) (Element, bool)
	OnMove(Listener) Handle
	OnRelease(Listener) Handle
}

// Publisher receives the positions and drag phases a controller produces
type Publisher interface {
	Publish(grid.Coordinate)
	BeginDrag()
	EndDrag()
}

// Observer is told about every pointer decision, for metrics
type Observer interface {
	PointerProcessed(kind Kind)
	PointerDropped()
	SessionStarted()
	SessionEnded()
}

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}
