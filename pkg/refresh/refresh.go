// Package refresh turns the shared position and the latest serialized data
// into one render update. A refresh is a pure reader: it reads the position
// exactly once and never writes it.
package refresh

import (
	"errors"
	"fmt"
	"time"

	"github.com/recera/patchview/pkg/figure"
	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/signal"
)

// ErrNoPosition is reported when the shared position is the unset sentinel
var ErrNoPosition = errors.New("no position selected")

// Source yields the shared position
type Source interface {
	Snapshot() (grid.Coordinate, error)
}

// Observer is told about every completed refresh
type Observer interface {
	RefreshCompleted(fallback bool, elapsed time.Duration)
}

// Input is what one refresh tick sees
type Input struct {
	Tick         uint64
	SignalBuffer []byte
	FileMetadata []byte

	// Figures are the displayed figures that receive the marker overlay
	Figures []figure.Descriptor
}

// Output is one render update
type Output struct {
	Tick     uint64
	Position grid.Coordinate
	Offset   int
	Signals  []figure.Figure
	Figures  []figure.Descriptor
	Fallback bool

	// Reason says why Fallback is set
	Reason error
}

// Options configures a Refresher
type Options struct {
	Channels    int
	LeadingSkip int
	PatchSize   int
	Marker      figure.Marker

	// Fallback is the position reported when nothing can be plotted
	Fallback grid.Coordinate

	Observer Observer
	Clock    func() time.Time
}

func (o *Options) withDefaults() Options {
	d := Options{
		Channels:  2,
		PatchSize: grid.PatchSize,
		Marker:    figure.DefaultMarker,
		Fallback:  grid.Center,
		Clock:     time.Now,
	}
	if o == nil {
		return d
	}
	if o.Channels > 0 {
		d.Channels = o.Channels
	}
	if o.LeadingSkip > 0 {
		d.LeadingSkip = o.LeadingSkip
	}
	if o.PatchSize > 0 {
		d.PatchSize = o.PatchSize
	}
	if o.Marker.Radius > 0 {
		d.Marker.Radius = o.Marker.Radius
	}
	if o.Marker.Color != "" {
		d.Marker.Color = o.Marker.Color
	}
	if o.Fallback != (grid.Coordinate{}) {
		d.Fallback = o.Fallback
	}
	if o.Clock != nil {
		d.Clock = o.Clock
	}
	d.Observer = o.Observer
	return d
}

// Refresher runs refresh cycles against one position source
type Refresher struct {
	src  Source
	opts Options
}

// New creates a Refresher
func New(src Source, opts *Options) *Refresher {
	return &Refresher{src: src, opts: opts.withDefaults()}
}

// Refresh builds the update for in. Malformed inputs never fail the cycle:
// they yield the fallback update with Reason set.
func (r *Refresher) Refresh(in Input) Output {
	start := r.opts.Clock()
	out := r.refresh(in)
	out.Tick = in.Tick

	if o := r.opts.Observer; o != nil {
		o.RefreshCompleted(out.Fallback, r.opts.Clock().Sub(start))
	}
	if debugLog != nil {
		if out.Reason != nil {
			debugLog("[Refresh] Tick", in.Tick, "fell back:", out.Reason)
		} else {
			debugLog("[Refresh] Tick", in.Tick, "at", out.Position.String(), "offset", out.Offset)
		}
	}
	return out
}

func (r *Refresher) refresh(in Input) Output {
	opts := figure.Options{
		Marker:   r.opts.Marker,
		Fallback: r.opts.Fallback,
		Channels: r.opts.Channels,
	}

	// The one read of the shared position for this cycle
	pos, err := r.src.Snapshot()
	if err != nil {
		return r.fallback(in, opts, err)
	}
	if pos.IsUnset() {
		return r.fallback(in, opts, ErrNoPosition)
	}
	if !pos.In(grid.Default) {
		return r.fallback(in, opts, fmt.Errorf("position %s: %w", pos, grid.ErrMalformed))
	}

	buf, err := signal.ParseBuffer(in.SignalBuffer)
	if err != nil {
		return r.fallback(in, opts, fmt.Errorf("signal buffer: %w", err))
	}
	md, err := signal.ParseMetadata(in.FileMetadata)
	if err != nil {
		return r.fallback(in, opts, fmt.Errorf("file metadata: %w", err))
	}

	offset := grid.PatchOffset(pos, r.opts.PatchSize)
	windows := make([][]float64, r.opts.Channels)
	for ch := range windows {
		windows[ch] = buf.Extract(ch, offset, md.Frames, r.opts.LeadingSkip)
	}

	u := figure.Build(pos, windows, opts)
	return Output{
		Position: u.Position,
		Offset:   offset,
		Signals:  u.Signals,
		Figures:  u.Decorate(in.Figures),
	}
}

func (r *Refresher) fallback(in Input, opts figure.Options, reason error) Output {
	u := figure.Empty(opts)
	return Output{
		Position: u.Position,
		Offset:   grid.PatchOffset(u.Position, r.opts.PatchSize),
		Signals:  u.Signals,
		Figures:  in.Figures,
		Fallback: true,
		Reason:   reason,
	}
}

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}
