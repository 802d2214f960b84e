package figure

import "github.com/recera/patchview/pkg/grid"

// Options for Build
type Options struct {
	Marker Marker

	// Fallback is reported as the position when there is nothing to plot
	Fallback grid.Coordinate

	// Channels is the number of signal charts to produce
	Channels int
}

// Update is one refresh worth of render output
type Update struct {
	Position grid.Coordinate
	Signals  []Figure
	Overlay  []Shape
	Fallback bool
}

// Build assembles the charts for position. A nil windows slice means no
// valid data was available and yields the empty update. Channels without a
// window get an empty line chart.
func Build(position grid.Coordinate, windows [][]float64, opts Options) Update {
	channels := opts.Channels
	if channels <= 0 {
		channels = len(windows)
	}
	if windows == nil || channels == 0 {
		return Empty(opts)
	}

	signals := make([]Figure, channels)
	for i := range signals {
		var w []float64
		if i < len(windows) {
			w = windows[i]
		}
		signals[i] = LineChart(w)
	}

	var overlay []Shape
	if !position.IsUnset() {
		overlay = []Shape{opts.Marker.Shape(position)}
	}

	return Update{
		Position: position,
		Signals:  signals,
		Overlay:  overlay,
	}
}

// Empty is the update rendered when no data is available: one blank chart
// per channel and the fallback position
func Empty(opts Options) Update {
	channels := opts.Channels
	if channels <= 0 {
		channels = 1
	}
	signals := make([]Figure, channels)
	for i := range signals {
		signals[i] = Blank()
	}
	return Update{
		Position: opts.Fallback,
		Signals:  signals,
		Fallback: true,
	}
}

// Decorate applies the overlay to figs. A fallback update leaves them alone.
func (u Update) Decorate(figs []Descriptor) []Descriptor {
	if u.Fallback {
		return figs
	}
	return ApplyOverlay(figs, u.Overlay)
}

// ApplyOverlay sets shapes as the layout shapes of every figure that has a
// layout. Figures without one are passed through.
func ApplyOverlay(figs []Descriptor, shapes []Shape) []Descriptor {
	if figs == nil {
		return nil
	}
	if shapes == nil {
		shapes = []Shape{}
	}
	out := make([]Descriptor, len(figs))
	for i, f := range figs {
		if f == nil {
			continue
		}
		out[i] = f.WithShapes(shapes)
	}
	return out
}
