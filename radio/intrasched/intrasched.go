// Package intrasched implements intra-slice scheduling: distributing the
// RBGs granted to a slice across that slice's users.
package intrasched

import (
	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/user"
)

// Scheduler distributes rbgs (already decided for one slice by the
// inter-slice scheduler) across users. Implementations clear every user's
// prior allocation before assigning the new one.
type Scheduler interface {
	Schedule(rbgs []rbg.RBG, users []*user.User)
}

// RoundRobin assigns RBGs to users in a stable cycle, remembering the
// position a new TTI's allocation should start from so that the user who
// would have received the next RBG last TTI receives the first RBG this
// TTI.
type RoundRobin struct {
	offset int
}

// NewRoundRobin creates a RoundRobin intra-slice scheduler starting at
// offset 0.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Schedule clears every user's allocation, then hands out rbgs in cyclic
// order starting from the persisted offset.
func (r *RoundRobin) Schedule(rbgs []rbg.RBG, users []*user.User) {
	for _, u := range users {
		u.ClearRBGAllocation()
	}
	if len(users) == 0 {
		return
	}
	r.offset %= len(users)
	for _, g := range rbgs {
		users[r.offset].AllocateRBG(g)
		r.offset = (r.offset + 1) % len(users)
	}
}

// Reset returns the scheduler's rotation offset to zero.
func (r *RoundRobin) Reset() {
	r.offset = 0
}

// Priority returns the 0-based index order, starting from the current
// rotation offset, in which n positions would receive RBGs on the next
// Schedule call. It does not mutate the offset. Used by slice-level
// priority queries (e.g. the inter-slice OptimalHeuristic's Phase B,
// which walks a slice's intra-RR order to ration RBGs across users).
func (r *RoundRobin) Priority(n int) []int {
	if n == 0 {
		return nil
	}
	offset := r.offset % n
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = offset
		offset = (offset + 1) % n
	}
	return out
}
