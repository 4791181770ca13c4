// Package intersched implements the inter-slice scheduling policies: the
// decision of how many RBGs each slice receives this TTI. All policies
// implement the same contract: clear every slice's prior grant, then
// allocate the current RBG pool among slices.
package intersched

import (
	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/slice"
)

// Scheduler partitions rbgs among slices, mutating each slice's RBG list.
// Implementations clear prior allocations before deciding.
type Scheduler interface {
	Schedule(slices []*slice.Slice, rbgs []rbg.RBG) error
}

func clearAll(slices []*slice.Slice) {
	for _, s := range slices {
		s.ClearRBGAllocation()
	}
}

// RoundRobin expands slices into a virtual id sequence weighted by user
// count (slice s appears len(s.Users()) times), then cycles a persistent
// offset across that sequence, awarding each RBG to the slice at the
// current position. Weighting by user count gives proportional share
// without explicit weights.
type RoundRobin struct {
	offset int
}

// NewRoundRobin creates an inter-slice RoundRobin scheduler.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Schedule implements Scheduler.
func (r *RoundRobin) Schedule(slices []*slice.Slice, rbgs []rbg.RBG) error {
	var ids []int
	for i, s := range slices {
		for j := 0; j < len(s.Users()); j++ {
			ids = append(ids, i)
		}
	}
	clearAll(slices)
	if len(ids) == 0 {
		return nil
	}
	r.offset %= len(ids)
	for _, g := range rbgs {
		slices[ids[r.offset]].AllocateRBG(g)
		r.offset = (r.offset + 1) % len(ids)
	}
	return nil
}

// Reset returns the rotation offset to zero.
func (r *RoundRobin) Reset() {
	r.offset = 0
}
