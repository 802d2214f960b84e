package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinate_RoundTrip(t *testing.T) {
	for _, c := range []Coordinate{{0, 0}, {64, 64}, {127, 3}, Unset} {
		got, err := ParseCoordinate(c.Marshal())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestCoordinate_MarshalShape(t *testing.T) {
	assert.Equal(t, `{"x":12,"y":100}`, Coordinate{12, 100}.Marshal())
}

func TestParseCoordinate_Malformed(t *testing.T) {
	for _, text := range []string{"", "null", "{", `{"x":1}`, `{"x":"a","y":2}`, "[1,2]"} {
		_, err := ParseCoordinate(text)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", text)
	}
}

func TestPatchOffset(t *testing.T) {
	assert.Equal(t, 19, PatchOffset(Coordinate{10, 3}, 8))
	assert.Equal(t, 0, PatchOffset(Coordinate{0, 0}, 8))
	assert.Equal(t, 63, PatchOffset(Coordinate{127, 127}, 8))
	assert.Equal(t, 0, PatchOffset(Coordinate{64, 64}, 8))
	assert.Equal(t, 63, PatchOffset(Unset, 8))
	assert.Equal(t, 0, PatchOffset(Coordinate{5, 5}, 0))
}

func TestPatchOffset_Range(t *testing.T) {
	for x := 0; x < Width; x++ {
		for y := 0; y < Height; y++ {
			off := PatchOffset(Coordinate{x, y}, PatchSize)
			if off < 0 || off >= PatchSize*PatchSize {
				t.Fatalf("offset %d out of range for (%d,%d)", off, x, y)
			}
		}
	}
}
