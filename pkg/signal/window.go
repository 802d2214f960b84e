package signal

// Window returns a copy of samples[offset*frames+skip : offset*frames+frames],
// truncated to the available samples. Anything that cannot produce samples
// (nil input, negative arguments, a start past the end) yields an empty,
// non-nil slice. Oversized offsets and frame counts never overflow.
func Window(samples []float64, offset, frames, skip int) []float64 {
	n := len(samples)
	if n == 0 || offset < 0 || frames <= 0 || skip < 0 || skip >= frames {
		return []float64{}
	}

	// offset*frames+skip < n, checked without multiplying out of range
	if offset > 0 && (frames > n || offset > (n-skip-1)/frames) {
		return []float64{}
	}
	base := offset * frames
	if skip >= n-base {
		return []float64{}
	}

	start := base + skip
	end := n
	if frames < n-base {
		end = base + frames
	}

	out := make([]float64, end-start)
	copy(out, samples[start:end])
	return out
}
