package live

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/grid"
)

var (
	// ErrShortFrame is returned for a frame missing its header
	ErrShortFrame = errors.New("frame too short")

	// ErrFrameType is returned when a frame is decoded as the wrong type
	ErrFrameType = errors.New("unexpected frame type")
)

// maxString bounds length-prefixed strings read from the wire
const maxString = 4096

// Encoder handles encoding of live protocol frames
type Encoder struct {
	w io.Writer
}

// NewEncoder creates a new encoder
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteUvarint writes an unsigned varint
func (e *Encoder) WriteUvarint(v uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	_, err := e.w.Write(buf[:n])
	return err
}

// WriteString writes a length-prefixed string
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	_, err := e.w.Write([]byte(s))
	return err
}

// WriteFloat64 writes v as 8 little-endian bytes
func (e *Encoder) WriteFloat64(v float64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	_, err := e.w.Write(tmp[:])
	return err
}

// WriteBytes writes raw bytes
func (e *Encoder) WriteBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

// Decoder handles decoding of live protocol frames
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder creates a new decoder
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 64),
	}
}

// ReadUvarint reads an unsigned varint
func (d *Decoder) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(d)
}

// ReadByte implements io.ByteReader
func (d *Decoder) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadString reads a length-prefixed string
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > maxString {
		return "", fmt.Errorf("string length %d exceeds %d", length, maxString)
	}

	if length > uint64(len(d.buf)) {
		d.buf = make([]byte, length)
	}

	n, err := io.ReadFull(d.r, d.buf[:length])
	if err != nil {
		return "", err
	}

	return string(d.buf[:n]), nil
}

// ReadFloat64 reads 8 little-endian bytes
func (d *Decoder) ReadFloat64() (float64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(d.r, tmp[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(tmp[:])), nil
}

// EncodePointer encodes a pointer event as a binary frame:
//
//	FramePointer | kind | target (string) | clientX | clientY | timeStamp (ms, float64)
//
// A zero event time is sent as 0 and decoded back to the zero time.
func EncodePointer(evt drag.Event) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FramePointer), byte(evt.Kind)})
	enc.WriteString(evt.Target)
	enc.WriteFloat64(evt.Pointer.ClientX)
	enc.WriteFloat64(evt.Pointer.ClientY)
	enc.WriteFloat64(millis(evt.Time))

	return buf.Bytes()
}

// DecodePointer decodes a frame produced by EncodePointer
func DecodePointer(data []byte) (drag.Event, error) {
	if len(data) < 2 {
		return drag.Event{}, ErrShortFrame
	}
	if FrameType(data[0]) != FramePointer {
		return drag.Event{}, fmt.Errorf("%w: %#x", ErrFrameType, data[0])
	}

	kind := drag.Kind(data[1])
	if kind < drag.Press || kind > drag.Release {
		return drag.Event{}, fmt.Errorf("unknown pointer kind %d", data[1])
	}

	dec := NewDecoder(bytes.NewReader(data[2:]))
	target, err := dec.ReadString()
	if err != nil {
		return drag.Event{}, fmt.Errorf("failed to decode target: %w", err)
	}
	var v [3]float64
	for i := range v {
		if v[i], err = dec.ReadFloat64(); err != nil {
			return drag.Event{}, fmt.Errorf("failed to decode pointer: %w", err)
		}
	}

	return drag.Event{
		Kind:    kind,
		Target:  target,
		Pointer: grid.Pointer{ClientX: v[0], ClientY: v[1]},
		Time:    fromMillis(v[2]),
	}, nil
}

// EncodeControl encodes a control frame: FrameControl | name (string) | args (uvarint)...
func EncodeControl(name string, args ...uint64) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FrameControl)})
	enc.WriteString(name)
	for _, a := range args {
		enc.WriteUvarint(a)
	}
	return buf.Bytes()
}

// DecodeControl returns the name of a control frame and a decoder positioned
// at its arguments
func DecodeControl(data []byte) (string, *Decoder, error) {
	if len(data) < 1 {
		return "", nil, ErrShortFrame
	}
	if FrameType(data[0]) != FrameControl {
		return "", nil, fmt.Errorf("%w: %#x", ErrFrameType, data[0])
	}
	dec := NewDecoder(bytes.NewReader(data[1:]))
	name, err := dec.ReadString()
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode control message type: %w", err)
	}
	return name, dec, nil
}

func millis(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

func fromMillis(ms float64) time.Time {
	if ms == 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}
	}
	return time.Unix(0, int64(ms*float64(time.Millisecond)))
}
