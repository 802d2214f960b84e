// Package dom binds drag controllers to the browser document in WASM
// builds. Outside WASM only the event conversion is available.
package dom

import (
	"math"
	"time"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/grid"
)

// MouseEvent is the subset of a DOM MouseEvent a drag needs
type MouseEvent struct {
	Type    string
	Target  string
	ClientX float64
	ClientY float64

	// TimeStamp is the event's DOMHighResTimeStamp in milliseconds since
	// the page's time origin
	TimeStamp float64
}

// Event converts e. Timestamps are made absolute against origin, the wall
// time of the page's time origin; a zero TimeStamp leaves Event.Time unset
// so the controller stamps it.
func Event(e MouseEvent, origin time.Time) (drag.Event, bool) {
	kind, ok := drag.ParseKind(e.Type)
	if !ok {
		return drag.Event{}, false
	}
	evt := drag.Event{
		Kind:    kind,
		Target:  e.Target,
		Pointer: grid.Pointer{ClientX: e.ClientX, ClientY: e.ClientY},
	}
	if e.TimeStamp > 0 && !math.IsInf(e.TimeStamp, 0) && !origin.IsZero() {
		evt.Time = origin.Add(time.Duration(e.TimeStamp * float64(time.Millisecond)))
	}
	return evt, true
}

// SuppressDefault reports whether the browser's default action for e must be
// cancelled. A native image drag started by mousedown swallows the mouseup
// that ends the session.
func SuppressDefault(e MouseEvent) bool {
	kind, ok := drag.ParseKind(e.Type)
	return ok && kind == drag.Press
}
