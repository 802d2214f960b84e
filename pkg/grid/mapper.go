package grid

import "math"

// Rect is an element's bounding box in client pixels
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the client point lies inside r
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Left+r.Width &&
		y >= r.Top && y <= r.Top+r.Height
}

// Pointer is a pointer position in client pixels
type Pointer struct {
	ClientX float64 `json:"clientX"`
	ClientY float64 `json:"clientY"`
}

// Mapper converts pointer positions to grid cells.
//
// The rendered image is square but its element may not be, so the mapping
// region is the largest square centered in the rect. Centered=false skips
// that correction and anchors the square at the rect's top-left corner.
// Scaled offsets are rounded to the nearest integer (halves away from zero)
// and then clamped to the grid, so pointers outside the rect never error.
type Mapper struct {
	Config   Config
	Centered bool
}

// NewMapper returns the centered mapper for the default grid
func NewMapper() Mapper {
	return Mapper{Config: Default, Centered: true}
}

// Map converts p relative to rect into a grid coordinate
func (m Mapper) Map(rect Rect, p Pointer) Coordinate {
	cfg := m.Config
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg = Default
	}

	minSide := math.Min(rect.Width, rect.Height)
	if minSide <= 0 || math.IsNaN(minSide) {
		return Coordinate{}
	}

	offsetX := p.ClientX - rect.Left
	offsetY := p.ClientY - rect.Top
	if m.Centered {
		offsetX -= (rect.Width - minSide) / 2
		offsetY -= (rect.Height - minSide) / 2
	}

	return Coordinate{
		X: scale(offsetX, minSide, cfg.Width),
		Y: scale(offsetY, minSide, cfg.Height),
	}
}

// Map is the centered mapping of p relative to rect on cfg
func Map(rect Rect, p Pointer, cfg Config) Coordinate {
	return Mapper{Config: cfg, Centered: true}.Map(rect, p)
}

func scale(offset, side float64, cells int) int {
	v := math.Round(offset / side * float64(cells))
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, cells-1)
}

func clamp(v float64, max int) int {
	if v < 0 {
		return 0
	}
	if v > float64(max) {
		return max
	}
	return int(v)
}
