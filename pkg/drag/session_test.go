package drag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/patchview/pkg/grid"
)

type recorder struct {
	positions []grid.Coordinate
	phases    []string
}

func (r *recorder) Publish(c grid.Coordinate) { r.positions = append(r.positions, c) }
func (r *recorder) BeginDrag()                { r.phases = append(r.phases, "start") }
func (r *recorder) EndDrag()                  { r.phases = append(r.phases, "end") }

type counter struct {
	processed map[Kind]int
	dropped   int
	started   int
	ended     int
}

func newCounter() *counter { return &counter{processed: map[Kind]int{}} }

func (c *counter) PointerProcessed(k Kind) { c.processed[k]++ }
func (c *counter) PointerDropped()         { c.dropped++ }
func (c *counter) SessionStarted()         { c.started++ }
func (c *counter) SessionEnded()           { c.ended++ }

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T, ids ...string) (*VirtualDocument, *Controller, *recorder) {
	t.Helper()
	doc := NewVirtualDocument()
	doc.SetElement("graph-image-1", grid.Rect{Width: 100, Height: 100})
	doc.SetElement("graph-image-2", grid.Rect{Left: 200, Width: 100, Height: 100})

	if len(ids) == 0 {
		ids = []string{"graph-image-1", "graph-image-2"}
	}
	rec := &recorder{}
	ctrl := NewController(rec, &Options{
		Elements:         ids,
		ThrottleInterval: 100 * time.Millisecond,
		Clock:            func() time.Time { return t0 },
	})
	ctrl.Setup(doc)
	return doc, ctrl, rec
}

func at(kind Kind, target string, x, y float64, ts time.Time) Event {
	return Event{Kind: kind, Target: target, Pointer: grid.Pointer{ClientX: x, ClientY: y}, Time: ts}
}

func TestController_PressMapsImmediately(t *testing.T) {
	tests := []struct {
		x, y float64
		want grid.Coordinate
	}{
		{0, 0, grid.Coordinate{X: 0, Y: 0}},
		{50, 50, grid.Coordinate{X: 64, Y: 64}},
		{99, 99, grid.Coordinate{X: 127, Y: 127}},
	}
	for _, tt := range tests {
		doc, ctrl, rec := setup(t)
		doc.Dispatch(at(Press, "graph-image-1", tt.x, tt.y, t0))

		require.Len(t, rec.positions, 1)
		assert.Equal(t, tt.want, rec.positions[0])
		assert.Equal(t, Active, ctrl.State())
		assert.Equal(t, []string{"start"}, rec.phases)
	}
}

func TestController_ThrottlesBurst(t *testing.T) {
	doc, ctrl, rec := setup(t)
	doc.Dispatch(at(Press, "graph-image-1", 10, 10, t0))

	// 50 moves inside one 100ms interval
	for i := 0; i < 50; i++ {
		doc.Dispatch(at(Move, "", float64(20+i), 20, t0.Add(time.Duration(i)*2*time.Millisecond)))
	}

	assert.Len(t, rec.positions, 2, "press plus exactly one move")
	stats := ctrl.Stats()
	assert.Equal(t, uint64(49), stats.Dropped)
	assert.Equal(t, uint64(2), stats.Processed)
}

func TestController_DropsBackwardTimestamps(t *testing.T) {
	doc, ctrl, rec := setup(t)
	doc.Dispatch(at(Press, "graph-image-1", 10, 10, t0))

	// each move is stamped 1ms earlier than the one before
	for i := 0; i < 50; i++ {
		doc.Dispatch(at(Move, "", float64(20+i), 20, t0.Add(-time.Duration(i)*time.Millisecond)))
	}

	assert.Len(t, rec.positions, 2, "press plus the first move only")
	assert.Equal(t, uint64(49), ctrl.Stats().Dropped)
}

func TestController_ProcessesOncePerInterval(t *testing.T) {
	doc, _, rec := setup(t)
	doc.Dispatch(at(Press, "graph-image-1", 0, 0, t0))

	for ms := 0; ms <= 300; ms += 10 {
		doc.Dispatch(at(Move, "", float64(ms)/3, 0, t0.Add(time.Duration(ms)*time.Millisecond)))
	}

	// accepted at 0, 100, 200, 300
	assert.Len(t, rec.positions, 5)
}

func TestController_DragLeavesElement(t *testing.T) {
	doc, _, rec := setup(t)
	doc.Dispatch(at(Press, "graph-image-1", 50, 50, t0))
	doc.Dispatch(at(Move, "", 5000, -300, t0.Add(time.Second)))

	require.Len(t, rec.positions, 2)
	assert.Equal(t, grid.Coordinate{X: 127, Y: 0}, rec.positions[1])
}

func TestController_ReleaseRemovesListeners(t *testing.T) {
	doc, ctrl, rec := setup(t)
	doc.Dispatch(at(Press, "graph-image-2", 250, 50, t0))

	_, move, release := doc.ListenerCounts()
	assert.Equal(t, 1, move)
	assert.Equal(t, 1, release)

	assert.True(t, doc.Dispatch(at(Release, "", 0, 0, t0.Add(time.Millisecond))))

	_, move, release = doc.ListenerCounts()
	assert.Zero(t, move)
	assert.Zero(t, release)
	assert.Equal(t, Idle, ctrl.State())
	assert.Equal(t, []string{"start", "end"}, rec.phases)

	// Moves after release are not observed
	doc.Dispatch(at(Move, "", 260, 60, t0.Add(time.Second)))
	assert.Len(t, rec.positions, 1)
}

func TestController_ReleaseWithoutPress(t *testing.T) {
	doc, ctrl, rec := setup(t)

	assert.False(t, doc.Dispatch(at(Release, "", 10, 10, t0)))
	assert.Empty(t, rec.positions)
	assert.Empty(t, rec.phases)
	assert.Equal(t, Idle, ctrl.State())

	press, move, release := doc.ListenerCounts()
	assert.Equal(t, 2, press)
	assert.Zero(t, move)
	assert.Zero(t, release)
}

func TestController_SetupIsIdempotent(t *testing.T) {
	doc, ctrl, rec := setup(t)

	for i := 0; i < 3; i++ {
		assert.Equal(t, 2, ctrl.Setup(doc))
	}
	press, _, _ := doc.ListenerCounts()
	assert.Equal(t, 2, press)

	// A press is handled once, not once per setup
	doc.Dispatch(at(Press, "graph-image-1", 0, 0, t0))
	assert.Len(t, rec.positions, 1)

	// Setup during an active drag drops its document listeners
	ctrl.Setup(doc)
	_, move, release := doc.ListenerCounts()
	assert.Zero(t, move)
	assert.Zero(t, release)
	assert.Equal(t, Idle, ctrl.State())
	assert.Equal(t, []string{"start", "end"}, rec.phases)
}

func TestController_MissingElementSkipped(t *testing.T) {
	doc := NewVirtualDocument()
	doc.SetElement("graph-image-1", grid.Rect{Width: 100, Height: 100})

	ctrl := NewController(&recorder{}, &Options{Elements: []string{"graph-image-1", "graph-image-2"}})
	assert.Equal(t, 1, ctrl.Setup(doc))
	assert.Zero(t, ctrl.Setup(nil))
}

func TestController_RepressReplacesSession(t *testing.T) {
	doc, ctrl, rec := setup(t)
	doc.Dispatch(at(Press, "graph-image-1", 0, 0, t0))
	doc.Dispatch(at(Press, "graph-image-2", 299, 99, t0.Add(time.Millisecond)))

	_, move, release := doc.ListenerCounts()
	assert.Equal(t, 1, move)
	assert.Equal(t, 1, release)
	assert.Equal(t, []string{"start", "end", "start"}, rec.phases)
	assert.Equal(t, grid.Coordinate{X: 127, Y: 127}, rec.positions[1])
	assert.Equal(t, uint64(2), ctrl.Stats().Sessions)
}

func TestController_HitTestPress(t *testing.T) {
	doc, _, rec := setup(t)
	assert.True(t, doc.Dispatch(at(Press, "", 250, 50, t0)))
	assert.Equal(t, []grid.Coordinate{{X: 64, Y: 64}}, rec.positions)

	assert.False(t, doc.Dispatch(at(Press, "", 150, 50, t0)))
}

func TestController_ZeroTimestampUsesClock(t *testing.T) {
	now := t0
	doc := NewVirtualDocument()
	doc.SetElement("a", grid.Rect{Width: 128, Height: 128})
	rec := &recorder{}
	ctrl := NewController(rec, &Options{
		Elements: []string{"a"},
		Clock:    func() time.Time { return now },
	})
	ctrl.Setup(doc)

	doc.Dispatch(Event{Kind: Press, Target: "a"})
	doc.Dispatch(Event{Kind: Move, Pointer: grid.Pointer{ClientX: 10}})
	doc.Dispatch(Event{Kind: Move, Pointer: grid.Pointer{ClientX: 20}})
	now = now.Add(DefaultThrottle)
	doc.Dispatch(Event{Kind: Move, Pointer: grid.Pointer{ClientX: 30}})

	assert.Len(t, rec.positions, 3)
}

func TestController_Observer(t *testing.T) {
	doc := NewVirtualDocument()
	doc.SetElement("a", grid.Rect{Width: 100, Height: 100})
	obs := newCounter()
	ctrl := NewController(&recorder{}, &Options{Elements: []string{"a"}, Observer: obs})
	ctrl.Setup(doc)

	doc.Dispatch(at(Press, "a", 1, 1, t0))
	doc.Dispatch(at(Move, "", 2, 2, t0))
	doc.Dispatch(at(Move, "", 3, 3, t0))
	doc.Dispatch(at(Release, "", 3, 3, t0))

	assert.Equal(t, 1, obs.processed[Press])
	assert.Equal(t, 1, obs.processed[Move])
	assert.Equal(t, 1, obs.processed[Release])
	assert.Equal(t, 1, obs.dropped)
	assert.Equal(t, 1, obs.started)
	assert.Equal(t, 1, obs.ended)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("mousedown")
	assert.True(t, ok)
	assert.Equal(t, Press, k)
	assert.Equal(t, "mouseup", Release.String())

	_, ok = ParseKind("wheel")
	assert.False(t, ok)
}
