// Package position holds the one shared grid position of an explorer: the
// serialized sink the refresh cycle reads, plus drag notifications.
package position

import (
	"fmt"

	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/reactive"
)

// Kind identifies a notification
type Kind uint8

const (
	DragStarted Kind = iota + 1
	DragEnded
	PositionChanged
)

func (k Kind) String() string {
	switch k {
	case DragStarted:
		return "drag-started"
	case DragEnded:
		return "drag-ended"
	case PositionChanged:
		return "position-changed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Notification is delivered to subscribers
type Notification struct {
	Kind     Kind
	Position grid.Coordinate
}

// Sentinel selects the value a store starts from and falls back to
type Sentinel string

const (
	SentinelCenter Sentinel = "center"
	SentinelUnset  Sentinel = "unset"
)

// Coordinate returns the position the sentinel stands for
func (s Sentinel) Coordinate() grid.Coordinate {
	if s == SentinelUnset {
		return grid.Unset
	}
	return grid.Center
}

// Valid reports whether s is a known sentinel
func (s Sentinel) Valid() bool {
	return s == SentinelCenter || s == SentinelUnset
}

// Store is the single shared position. The sink text is the source of truth
// and may be overwritten by external writers; readers that need to tell a
// malformed sink apart use Snapshot.
type Store struct {
	def      grid.Coordinate
	sink     *reactive.State[string]
	dragging *reactive.State[bool]
}

// NewStore creates a store seeded with the sentinel's coordinate. d decides
// where notifications run; nil delivers them on the publisher's goroutine.
func NewStore(s Sentinel, d reactive.Dispatcher) *Store {
	def := s.Coordinate()
	return &Store{
		def:      def,
		sink:     reactive.NewState(def.Marshal(), d),
		dragging: reactive.NewState(false, d),
	}
}

// Default returns the fallback position
func (s *Store) Default() grid.Coordinate {
	return s.def
}

// Publish writes c to the sink and raises PositionChanged
func (s *Store) Publish(c grid.Coordinate) {
	s.sink.Set(c.Marshal())
}

// WriteText replaces the sink verbatim
func (s *Store) WriteText(text string) {
	s.sink.Set(text)
}

// Text returns the serialized sink
func (s *Store) Text() string {
	return s.sink.Get()
}

// Snapshot parses the sink once
func (s *Store) Snapshot() (grid.Coordinate, error) {
	return grid.ParseCoordinate(s.sink.Get())
}

// Current returns the published position, or the default when the sink is
// malformed
func (s *Store) Current() grid.Coordinate {
	c, err := s.Snapshot()
	if err != nil {
		return s.def
	}
	return c
}

// BeginDrag raises DragStarted
func (s *Store) BeginDrag() {
	s.dragging.Set(true)
}

// EndDrag raises DragEnded
func (s *Store) EndDrag() {
	s.dragging.Set(false)
}

// Dragging reports whether a drag is in progress
func (s *Store) Dragging() bool {
	return s.dragging.Get()
}

// Subscribe registers fn for one kind of notification
func (s *Store) Subscribe(kind Kind, fn func(Notification)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	switch kind {
	case PositionChanged:
		return s.sink.Subscribe(func(_, text string) {
			c, err := grid.ParseCoordinate(text)
			if err != nil {
				c = s.def
			}
			fn(Notification{Kind: PositionChanged, Position: c})
		})
	case DragStarted, DragEnded:
		want := kind == DragStarted
		return s.dragging.Subscribe(func(_, active bool) {
			if active == want {
				fn(Notification{Kind: kind, Position: s.Current()})
			}
		})
	default:
		return func() {}
	}
}
