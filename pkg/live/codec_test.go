package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/grid"
)

func TestPointerFrame(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_123)
	evt := drag.Event{
		Kind:    drag.Move,
		Target:  "graph-image-2",
		Pointer: grid.Pointer{ClientX: 12.5, ClientY: -3},
		Time:    ts,
	}

	data := EncodePointer(evt)
	assert.Equal(t, byte(FramePointer), data[0])

	got, err := DecodePointer(data)
	require.NoError(t, err)
	assert.Equal(t, evt.Kind, got.Kind)
	assert.Equal(t, evt.Target, got.Target)
	assert.Equal(t, evt.Pointer, got.Pointer)
	assert.Equal(t, ts.UnixMilli(), got.Time.UnixMilli())
}

func TestPointerFrame_ZeroTime(t *testing.T) {
	got, err := DecodePointer(EncodePointer(drag.Event{Kind: drag.Release}))
	require.NoError(t, err)
	assert.True(t, got.Time.IsZero())
	assert.Empty(t, got.Target)
}

func TestDecodePointer_Errors(t *testing.T) {
	_, err := DecodePointer(nil)
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = DecodePointer([]byte{byte(FrameControl), 1})
	assert.ErrorIs(t, err, ErrFrameType)

	_, err = DecodePointer([]byte{byte(FramePointer), 9, 0})
	assert.Error(t, err)

	frame := EncodePointer(drag.Event{Kind: drag.Press})
	_, err = DecodePointer(frame[:len(frame)-3])
	assert.Error(t, err)
}

func TestControlFrame(t *testing.T) {
	name, dec, err := DecodeControl(EncodeControl("HELLO", 42))
	require.NoError(t, err)
	assert.Equal(t, "HELLO", name)

	v, err := dec.ReadUvarint()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	_, _, err = DecodeControl([]byte{byte(FramePointer)})
	assert.ErrorIs(t, err, ErrFrameType)
}

func TestDecoder_RejectsHugeString(t *testing.T) {
	frame := []byte{byte(FrameControl)}
	frame = append(frame, 0xff, 0xff, 0x04) // uvarint > maxString
	_, _, err := DecodeControl(frame)
	assert.Error(t, err)
}
