package intersched

import (
	"fmt"

	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/rerr"
	"github.com/dgwcamk/radiosim/radio/slice"
)

// SolverFunc solves the per-TTI MILP: given the slices (read for their
// requirements and current state) and the RBG pool size, return the
// optimal RBG count per slice in slice order. Left pluggable rather than
// vendoring a solver — the reference policy's value is the contract it
// establishes against OptimalHeuristic's provably-feasible envelope, not
// a specific solver implementation.
type SolverFunc func(slices []*slice.Slice, nRBGs int) ([]int, error)

// Optimal is the MILP-optimal reference policy. With no SolverFunc
// configured it always fails with ModelError, since without a solver
// there is no optimal policy to fall back to — callers that want a
// always-available baseline should use OptimalHeuristic or Fixed instead.
type Optimal struct {
	Solve SolverFunc
}

// NewOptimal creates an Optimal scheduler around an optional solver. A
// nil solver is legal; Schedule then always fails.
func NewOptimal(solve SolverFunc) *Optimal {
	return &Optimal{Solve: solve}
}

// Schedule implements Scheduler.
func (o *Optimal) Schedule(slices []*slice.Slice, rbgs []rbg.RBG) error {
	if o.Solve == nil {
		return fmt.Errorf("%w: Optimal scheduler has no solver configured", rerr.ModelError)
	}
	alloc, err := o.Solve(slices, len(rbgs))
	if err != nil {
		return fmt.Errorf("%w: %v", rerr.ModelError, err)
	}
	if len(alloc) != len(slices) {
		return fmt.Errorf("%w: solver returned %d allocations for %d slices", rerr.ModelError, len(alloc), len(slices))
	}
	total := 0
	for _, n := range alloc {
		total += n
	}
	if total > len(rbgs) {
		return fmt.Errorf("%w: solver allocated %d RBGs from a pool of %d", rerr.InvariantViolation, total, len(rbgs))
	}

	clearAll(slices)
	rbgIndex := 0
	for i, s := range slices {
		for k := 0; k < alloc[i] && rbgIndex < len(rbgs); k++ {
			s.AllocateRBG(rbgs[rbgIndex])
			rbgIndex++
		}
	}
	return nil
}
