package intersched

import (
	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/slice"
)

// Fixed grants each slice a caller-configured, constant RBG count every
// TTI, independent of demand. Useful for scripted scenarios and for
// isolating a trained agent's effect on a single slice while the rest of
// the system runs a known-fixed baseline.
type Fixed struct {
	allocation map[int]int
}

// NewFixed creates a Fixed scheduler. allocation maps slice id to its
// fixed RBG share; a slice absent from the map receives zero.
func NewFixed(allocation map[int]int) *Fixed {
	cp := make(map[int]int, len(allocation))
	for k, v := range allocation {
		cp[k] = v
	}
	return &Fixed{allocation: cp}
}

// SetAllocation replaces the fixed share for a single slice id.
func (f *Fixed) SetAllocation(sliceID, rbgCount int) {
	f.allocation[sliceID] = rbgCount
}

// Schedule implements Scheduler. Shares are handed out in slice order. When
// the configured shares sum to less than len(rbgs), the residual RBGs go
// unused, matching a scripted baseline rather than silently redistributing
// them; when they sum to more, the pool runs out and the later slices get
// less than their share.
func (f *Fixed) Schedule(slices []*slice.Slice, rbgs []rbg.RBG) error {
	clearAll(slices)
	rbgIndex := 0
	for _, s := range slices {
		want := f.allocation[s.ID()]
		for k := 0; k < want && rbgIndex < len(rbgs); k++ {
			s.AllocateRBG(rbgs[rbgIndex])
			rbgIndex++
		}
	}
	return nil
}
