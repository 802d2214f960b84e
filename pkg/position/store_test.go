package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/patchview/pkg/grid"
)

func TestStore_Sentinels(t *testing.T) {
	center := NewStore(SentinelCenter, nil)
	assert.Equal(t, grid.Coordinate{X: 64, Y: 64}, center.Current())
	assert.Equal(t, `{"x":64,"y":64}`, center.Text())

	unset := NewStore(SentinelUnset, nil)
	assert.Equal(t, grid.Unset, unset.Current())
	assert.True(t, unset.Current().IsUnset())

	assert.True(t, SentinelCenter.Valid())
	assert.False(t, Sentinel("corner").Valid())
}

func TestStore_PublishRoundTrip(t *testing.T) {
	s := NewStore(SentinelCenter, nil)
	want := grid.Coordinate{X: 3, Y: 125}

	s.Publish(want)

	got, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, s.Current())
}

func TestStore_LastWriteWins(t *testing.T) {
	s := NewStore(SentinelCenter, nil)
	for i := 0; i < 10; i++ {
		s.Publish(grid.Coordinate{X: i, Y: i})
	}
	assert.Equal(t, grid.Coordinate{X: 9, Y: 9}, s.Current())
}

func TestStore_MalformedSink(t *testing.T) {
	s := NewStore(SentinelCenter, nil)
	s.WriteText("not json")

	_, err := s.Snapshot()
	assert.ErrorIs(t, err, grid.ErrMalformed)
	assert.Equal(t, grid.Center, s.Current())
}

func TestStore_Notifications(t *testing.T) {
	s := NewStore(SentinelCenter, nil)

	var got []Notification
	record := func(n Notification) { got = append(got, n) }
	s.Subscribe(DragStarted, record)
	s.Subscribe(DragEnded, record)
	unsubChange := s.Subscribe(PositionChanged, record)

	s.BeginDrag()
	s.Publish(grid.Coordinate{X: 1, Y: 2})
	s.EndDrag()

	require.Len(t, got, 3)
	assert.Equal(t, DragStarted, got[0].Kind)
	assert.Equal(t, Notification{Kind: PositionChanged, Position: grid.Coordinate{X: 1, Y: 2}}, got[1])
	assert.Equal(t, Notification{Kind: DragEnded, Position: grid.Coordinate{X: 1, Y: 2}}, got[2])
	assert.False(t, s.Dragging())

	unsubChange()
	s.Publish(grid.Coordinate{X: 5, Y: 5})
	assert.Len(t, got, 3)
}

func TestStore_MalformedWriteNotifiesDefault(t *testing.T) {
	s := NewStore(SentinelUnset, nil)
	var last Notification
	s.Subscribe(PositionChanged, func(n Notification) { last = n })

	s.WriteText("{")
	assert.Equal(t, grid.Unset, last.Position)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "drag-started", DragStarted.String())
	assert.Equal(t, "drag-ended", DragEnded.String())
	assert.Equal(t, "position-changed", PositionChanged.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
