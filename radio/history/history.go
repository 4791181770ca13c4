// Package history implements the rolling-window statistics shared by
// DiscreteBuffer, User and Slice: window clamping, percentile, and mean
// queries over append-only history arrays.
//
// Per spec, "window" is a monotonically increasing cursor saturated at a
// configured max, and a query for w > step+1 is silently clamped to step+1.
// The fifth-percentile window is small (≤ 10-20 samples per spec §9) so it
// is recomputed by sort on every query rather than maintained incrementally;
// window sums are likewise recomputed from the tail on every query (see
// radio/buffer).
package history

import (
	"fmt"
	"sort"

	"github.com/dgwcamk/radiosim/radio/rerr"
)

// ClampWindow validates w and clamps it to the number of completed TTIs.
// step is the zero-based index of the most recently completed TTI; step+1
// is therefore the number of samples recorded so far. w must be >= 1.
func ClampWindow(w, step int) (int, error) {
	if w <= 0 {
		return 0, fmt.Errorf("%w: window must be >= 1, got %d", rerr.InvalidArgument, w)
	}
	if max := step + 1; w > max {
		return max, nil
	}
	return w, nil
}

// Tail returns the last w elements of hist, clamping w to len(hist). It
// never allocates a copy beyond the returned sub-slice view.
func Tail(hist []float64, w int) []float64 {
	if w > len(hist) {
		w = len(hist)
	}
	if w <= 0 {
		return nil
	}
	return hist[len(hist)-w:]
}

// Sum returns the sum of vals.
func Sum(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

// Mean returns the arithmetic mean of vals, or 0 for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return Sum(vals) / float64(len(vals))
}

// FifthPercentile returns the 5th-percentile order statistic of vals using
// linear interpolation between closest ranks (the same convention as
// numpy.percentile's default). Returns 0 for an empty slice.
func FifthPercentile(vals []float64) float64 {
	return Percentile(vals, 5)
}

// Percentile returns the p-th percentile (0..100) of vals via linear
// interpolation between closest ranks. Returns 0 for an empty slice. The
// input is not mutated; a sorted copy is made internally.
func Percentile(vals []float64, p float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, vals)
	sort.Float64s(sorted)

	if n == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(n-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
