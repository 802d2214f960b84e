// Package signal holds the flattened per-patch waveform buffers and the
// windowing that turns a patch offset into a renderable trace.
package signal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// MaxChannels bounds the channel index accepted in a serialized buffer
const MaxChannels = 64

// channelPrefix names channels in the serialized buffer: signal_0, signal_1, ...
const channelPrefix = "signal_"

var (
	// ErrNoBuffer is returned when there is no buffer to decode
	ErrNoBuffer = errors.New("no signal buffer")

	// ErrMalformed is returned when the serialized buffer has the wrong shape
	ErrMalformed = errors.New("malformed signal buffer")
)

// Buffer is one or more flat sample sequences, each laid out as
// patchCount × framesPerPatch samples.
type Buffer struct {
	Channels [][]float64
}

// Len returns the number of channels
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// Channel returns channel i, or nil when it does not exist
func (b *Buffer) Channel(i int) []float64 {
	if b == nil || i < 0 || i >= len(b.Channels) {
		return nil
	}
	return b.Channels[i]
}

// Extract returns the window of channel ch for a patch offset. A missing
// buffer or channel yields an empty window.
func (b *Buffer) Extract(ch, offset, frames, skip int) []float64 {
	return Window(b.Channel(ch), offset, frames, skip)
}

// ParseBuffer decodes a serialized buffer. The object form
// {"signal_0":[...],"signal_1":[...]} yields channels at their index; a bare
// array yields a single channel.
func ParseBuffer(data []byte) (*Buffer, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, ErrNoBuffer
	}
	if !gjson.Valid(trimmed) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}

	root := gjson.Parse(trimmed)
	switch {
	case root.IsArray():
		samples, err := samplesOf(root)
		if err != nil {
			return nil, err
		}
		return &Buffer{Channels: [][]float64{samples}}, nil

	case root.IsObject():
		type indexed struct {
			idx     int
			samples []float64
		}
		var found []indexed
		var parseErr error
		root.ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			if !strings.HasPrefix(name, channelPrefix) {
				return true
			}
			idx, err := strconv.Atoi(strings.TrimPrefix(name, channelPrefix))
			if err != nil || idx < 0 {
				return true
			}
			samples, err := samplesOf(value)
			if err != nil {
				parseErr = fmt.Errorf("%s: %w", name, err)
				return false
			}
			found = append(found, indexed{idx: idx, samples: samples})
			return true
		})
		if parseErr != nil {
			return nil, parseErr
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("%w: no %s* channels", ErrMalformed, channelPrefix)
		}
		sort.Slice(found, func(i, j int) bool { return found[i].idx < found[j].idx })

		last := found[len(found)-1].idx
		if last >= MaxChannels {
			return nil, fmt.Errorf("%w: %s%d exceeds %d channels", ErrMalformed, channelPrefix, last, MaxChannels)
		}
		// Channels keep their index; missing ones stay nil and plot empty
		buf := &Buffer{Channels: make([][]float64, last+1)}
		for _, f := range found {
			buf.Channels[f.idx] = f.samples
		}
		return buf, nil
	}

	return nil, fmt.Errorf("%w: expected object or array", ErrMalformed)
}

func samplesOf(v gjson.Result) ([]float64, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: channel is not an array", ErrMalformed)
	}
	items := v.Array()
	out := make([]float64, len(items))
	for i, item := range items {
		if item.Type != gjson.Number {
			return nil, fmt.Errorf("%w: sample %d is not a number", ErrMalformed, i)
		}
		out[i] = item.Float()
	}
	return out, nil
}
