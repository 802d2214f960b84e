// Package figure builds the chart descriptors handed to the plotting front
// end: one line chart per signal channel and a position marker overlaid on
// every figure that shares the grid's coordinate space.
package figure

import (
	"fmt"

	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/json"
)

// Trace is one data series
type Trace struct {
	X    []float64 `json:"x,omitempty"`
	Y    []float64 `json:"y"`
	Type string    `json:"type"`
}

// Line styles a shape outline
type Line struct {
	Color string `json:"color"`
}

// Shape is a layout shape in data coordinates
type Shape struct {
	Type      string  `json:"type"`
	X0        float64 `json:"x0"`
	Y0        float64 `json:"y0"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	Line      Line    `json:"line"`
	FillColor string  `json:"fillcolor"`
}

// Layout of a signal chart
type Layout struct {
	Shapes []Shape `json:"shapes,omitempty"`
}

// Figure is a signal chart
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Blank is a figure with no data
func Blank() Figure {
	return Figure{Data: []Trace{}}
}

// LineChart plots y against its index
func LineChart(y []float64) Figure {
	if y == nil {
		y = []float64{}
	}
	return Figure{Data: []Trace{{Y: y, Type: "line"}}}
}

// IsEmpty reports whether f carries no samples
func (f Figure) IsEmpty() bool {
	for _, tr := range f.Data {
		if len(tr.Y) > 0 {
			return false
		}
	}
	return true
}

// Marker is the position indicator drawn over displayed figures
type Marker struct {
	Radius float64
	Color  string
}

// DefaultMarker is a red circle two grid units in radius
var DefaultMarker = Marker{Radius: 2, Color: "red"}

// Shape returns the marker centered on c
func (m Marker) Shape(c grid.Coordinate) Shape {
	if m.Radius <= 0 {
		m.Radius = DefaultMarker.Radius
	}
	if m.Color == "" {
		m.Color = DefaultMarker.Color
	}
	x, y := float64(c.X), float64(c.Y)
	return Shape{
		Type:      "circle",
		X0:        x - m.Radius,
		Y0:        y - m.Radius,
		X1:        x + m.Radius,
		Y1:        y + m.Radius,
		Line:      Line{Color: m.Color},
		FillColor: m.Color,
	}
}

// Descriptor is a figure as held by the front end. Only its layout shapes are
// touched; every other key passes through unchanged.
type Descriptor map[string]any

// ParseDescriptor decodes a serialized figure
func ParseDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode figure: %w", err)
	}
	return d, nil
}

// HasLayout reports whether d carries a layout object
func (d Descriptor) HasLayout() bool {
	_, ok := d["layout"].(map[string]any)
	return ok
}

// WithShapes returns a copy of d whose layout shapes are replaced. A
// descriptor without a layout is returned as is.
func (d Descriptor) WithShapes(shapes []Shape) Descriptor {
	layout, ok := d["layout"].(map[string]any)
	if !ok {
		return d
	}

	nextLayout := make(map[string]any, len(layout)+1)
	for k, v := range layout {
		nextLayout[k] = v
	}
	nextLayout["shapes"] = shapes

	next := make(Descriptor, len(d))
	for k, v := range d {
		next[k] = v
	}
	next["layout"] = nextLayout
	return next
}
