// Package rbg defines the resource-block group: the fixed-bandwidth,
// interchangeable unit a basestation hands out to slices and users.
package rbg

// RBG is a resource-block group: rbsPerRBG resource blocks, each
// rbBandwidth Hz wide. RBGs are interchangeable within a basestation;
// schedulers allocate counts, never identities, so Bandwidth is the only
// field that matters once the fixed list is built.
type RBG struct {
	ID        int
	Bandwidth float64 // Hz, sum of its RBs' bandwidths
}

// New builds the basestation's fixed list of n RBGs, each composed of
// rbsPerRBG resource blocks of rbBandwidth Hz.
func New(n, rbsPerRBG int, rbBandwidth float64) []RBG {
	out := make([]RBG, n)
	for i := 0; i < n; i++ {
		out[i] = RBG{ID: i, Bandwidth: float64(rbsPerRBG) * rbBandwidth}
	}
	return out
}
