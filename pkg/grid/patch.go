package grid

// PatchOffset returns the index of c inside its patch:
//
//	(c.X mod patchSize) * patchSize + (c.Y mod patchSize)
//
// The result lies in [0, patchSize²-1]. It addresses a cell within one
// patch, not a patch within the grid; buffers are laid out to match.
// Negative coordinates (the Unset sentinel) wrap to the non-negative residue.
func PatchOffset(c Coordinate, patchSize int) int {
	if patchSize <= 0 {
		return 0
	}
	return mod(c.X, patchSize)*patchSize + mod(c.Y, patchSize)
}

func mod(v, m int) int {
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}
