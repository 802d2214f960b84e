// Package grid maps pointer positions onto the fixed 128x128 sample grid and
// computes patch offsets into flattened signal buffers.
package grid

import (
	"errors"
	"fmt"

	"github.com/recera/patchview/pkg/json"
)

const (
	// Width and Height of the sample grid. Not configurable at runtime.
	Width  = 128
	Height = 128

	// PatchSize is the edge length of one square patch
	PatchSize = 8
)

// Config describes the grid dimensions
type Config struct {
	Width  int
	Height int
}

// Default is the only grid the system renders
var Default = Config{Width: Width, Height: Height}

// Coordinate is a cell on the grid
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

var (
	// Unset marks "no position selected yet"
	Unset = Coordinate{X: -1, Y: -1}

	// Center is the middle cell of the default grid
	Center = Coordinate{X: Width / 2, Y: Height / 2}
)

// ErrMalformed is returned when serialized coordinates cannot be decoded
var ErrMalformed = errors.New("malformed coordinate")

// IsUnset reports whether c is the unset sentinel
func (c Coordinate) IsUnset() bool {
	return c == Unset
}

// In reports whether c lies inside cfg
func (c Coordinate) In(cfg Config) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < cfg.Width && c.Y < cfg.Height
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Marshal serializes c as {"x":int,"y":int}
func (c Coordinate) Marshal() string {
	data, err := json.Marshal(c)
	if err != nil {
		// two ints cannot fail to encode
		return fmt.Sprintf(`{"x":%d,"y":%d}`, c.X, c.Y)
	}
	return string(data)
}

// ParseCoordinate decodes the text form produced by Marshal. Both keys must be
// present and numeric.
func ParseCoordinate(text string) (Coordinate, error) {
	var raw struct {
		X *int `json:"x"`
		Y *int `json:"y"`
	}
	if text == "" {
		return Coordinate{}, fmt.Errorf("%w: empty", ErrMalformed)
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.X == nil || raw.Y == nil {
		return Coordinate{}, fmt.Errorf("%w: missing x or y", ErrMalformed)
	}
	return Coordinate{X: *raw.X, Y: *raw.Y}, nil
}
