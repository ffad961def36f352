package synthesis

// clip forces x into [lo, hi].
func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// interp linearly rescales x from [xmin, xmax] into [lo, hi], clamping x
// to its domain first. The [lo, hi] endpoints are clinical ranges from the
// reference biomarker dataset and must not be changed casually.
func interp(x, xmin, xmax, lo, hi float64) float64 {
	if xmax == xmin {
		return lo
	}
	x = clip(x, xmin, xmax)
	return lo + (x-xmin)/(xmax-xmin)*(hi-lo)
}
