package intersched

import (
	"math"

	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/slice"
	"github.com/dgwcamk/radiosim/radio/user"
)

// OptimalHeuristic is the deterministic minimum-resource allocator: a
// provably feasible envelope over the MILP-optimal policy when
// feasibility exists. It runs in two phases each TTI: per-user minimum
// RBG estimation (Phase A), then per-slice aggregation and rationing
// (Phase B).
type OptimalHeuristic struct {
	rbBandwidth float64
	rbsPerRBG   int
	windowMax   int

	// UseAllResources controls Phase B's behavior when aggregate demand
	// is under the RBG pool: false leaves the residual unused, true
	// distributes it via a slice-level Round-Robin with a persistent
	// offset.
	UseAllResources bool

	window int
	offset int
}

// NewOptimalHeuristic creates an OptimalHeuristic scheduler. rbBandwidth
// is in Hz; windowMax bounds the rolling window used for the long-term
// and fifth-percentile throughput constraints.
func NewOptimalHeuristic(rbBandwidth float64, rbsPerRBG, windowMax int) *OptimalHeuristic {
	return &OptimalHeuristic{
		rbBandwidth: rbBandwidth,
		rbsPerRBG:   rbsPerRBG,
		windowMax:   windowMax,
		window:      1,
	}
}

// Schedule implements Scheduler.
func (o *OptimalHeuristic) Schedule(slices []*slice.Slice, rbgs []rbg.RBG) error {
	nRBGs := len(rbgs)

	ueMinRBs := make(map[int]int)
	for _, s := range slices {
		for _, u := range s.Users() {
			minThr, err := o.minUserThroughput(u)
			if err != nil {
				return err
			}
			ueMinRBs[u.ID()] = o.rbsNeeded(u, minThr, nRBGs)
		}
	}

	ueAllocRBs := make(map[int]int)
	sliceMinRBs := make([]int, len(slices))
	for i, s := range slices {
		priority, err := s.RoundRobinPriority()
		if err != nil {
			return err
		}
		if len(priority) == 0 {
			continue
		}
		localOffset := 0
		for !allocationEnough(s, ueAllocRBs, ueMinRBs) {
			ueAllocRBs[priority[localOffset]]++
			localOffset = (localOffset + 1) % len(priority)
		}
		sum := 0
		for _, u := range s.Users() {
			sum += ueAllocRBs[u.ID()]
		}
		sliceMinRBs[i] = sum
	}

	total := 0
	for _, v := range sliceMinRBs {
		total += v
	}

	if total > nRBGs && total > 0 {
		for i := range sliceMinRBs {
			sliceMinRBs[i] = int(float64(sliceMinRBs[i]) / float64(total) * float64(nRBGs))
		}
		residual := 0
		for _, v := range sliceMinRBs {
			residual += v
		}
		for residual < nRBGs && len(slices) > 0 {
			o.offset %= len(slices)
			sliceMinRBs[o.offset]++
			o.offset = (o.offset + 1) % len(slices)
			residual++
		}
	} else if total <= nRBGs && o.UseAllResources && len(slices) > 0 {
		residual := nRBGs - total
		for residual > 0 {
			o.offset %= len(slices)
			sliceMinRBs[o.offset]++
			o.offset = (o.offset + 1) % len(slices)
			residual--
		}
	}

	clearAll(slices)
	rbgIndex := 0
	for i, s := range slices {
		for k := 0; k < sliceMinRBs[i] && rbgIndex < len(rbgs); k++ {
			s.AllocateRBG(rbgs[rbgIndex])
			rbgIndex++
		}
	}

	o.window++
	if o.window > o.windowMax {
		o.window = o.windowMax
	}
	return nil
}

func allocationEnough(s *slice.Slice, allocRBs, minRBs map[int]int) bool {
	for _, u := range s.Users() {
		if allocRBs[u.ID()] < minRBs[u.ID()] {
			return false
		}
	}
	return true
}

// rbsNeeded converts a bit-rate requirement into a whole RBG count given
// the user's current spectral efficiency. A user with zero or unset SE
// and a positive requirement is treated as needing every RBG in the pool
// (infeasible demand, surfaced rather than dividing by zero) — capped at
// nRBGs so Phase B's fill loop is bounded instead of chasing an
// arbitrarily large sentinel.
func (o *OptimalHeuristic) rbsNeeded(u *user.User, minThr float64, nRBGs int) int {
	if minThr <= 0 {
		return 0
	}
	se, ok := u.SpectralEfficiency()
	if !ok || se <= 0 {
		return nRBGs
	}
	needed := int(math.Ceil(minThr / (se * o.rbBandwidth * float64(o.rbsPerRBG))))
	if needed > nRBGs {
		return nRBGs
	}
	return needed
}

// minUserThroughput computes Phase A's per-user minimum bit-rate estimate:
// the maximum across every QoS constraint the user's requirements name.
func (o *OptimalHeuristic) minUserThroughput(u *user.User) (float64, error) {
	var minThr float64

	if v, ok := u.Requirement("throughput"); ok {
		minThr = math.Max(v, minThr)
	}

	if v, ok := u.Requirement("latency"); ok {
		lat := int(v)
		waited := u.Buffer().PktsWaitedAtLeast(lat)
		rate := float64(waited) * float64(u.PktSize()) / u.TTI()
		minThr = math.Max(rate, minThr)
	}

	if v, ok := u.Requirement("long_term_thr"); ok {
		var agg float64
		if o.window > 1 {
			var err error
			agg, err = u.AggregateThroughput(o.window - 1)
			if err != nil {
				return 0, err
			}
		}
		need := v*float64(o.window) - agg
		if need < 0 {
			need = 0
		}
		minThr = math.Max(need, minThr)
	}

	if v, ok := u.Requirement("fifth_perc_thr"); ok {
		fifReq := v
		if o.window > 1 {
			minWindow, err := u.MinThroughput(o.window - 1)
			if err != nil {
				return 0, err
			}
			fifReq = math.Min(v, minWindow)
		}
		minThr = math.Max(fifReq, minThr)
	}

	if v, ok := u.Requirement("pkt_loss"); ok {
		rate, err := o.pktLossMinThroughput(u, v)
		if err != nil {
			return 0, err
		}
		minThr = math.Max(rate, minThr)
	}

	return minThr, nil
}

// pktLossMinThroughput solves for the smallest integer packet count this
// TTI must send so that, combined with the predicted max-latency and
// buffer-full drops, the window's loss budget is not exceeded.
func (o *OptimalHeuristic) pktLossMinThroughput(u *user.User, pktLossReq float64) (float64, error) {
	buf := u.Buffer()
	w := o.window

	arrived, err := buf.ArrivedBits(w)
	if err != nil {
		return 0, err
	}
	anchorIdx := buf.Step() - w
	anchorPkts := buf.BuffPktsAt(anchorIdx)
	denominator := anchorPkts + arrived/float64(u.PktSize())

	dropped, err := buf.DroppedPackets(w)
	if err != nil {
		return 0, err
	}
	maxDropp := denominator*pktLossReq - dropped

	doppMaxLat := float64(buf.OldestBucketPkts())
	doppBuffFull := float64(buf.BufferedPackets() - buf.BufferCapacityPkts())
	if doppBuffFull < 0 {
		doppBuffFull = 0
	}

	needToSend := 0.0
	for math.Max(doppMaxLat-needToSend, 0)+math.Max(doppBuffFull-needToSend, 0) > maxDropp {
		needToSend++
		if needToSend > float64(buf.BufferedPackets())+float64(buf.MaxLat()) {
			break // demand already exceeds everything in flight; stop searching
		}
	}
	return needToSend * float64(u.PktSize()) / u.TTI(), nil
}

// Window returns the current rolling-window size used by the long-term,
// fifth-percentile and packet-loss constraints.
func (o *OptimalHeuristic) Window() int {
	return o.window
}

// Reset returns the scheduler to its just-constructed state.
func (o *OptimalHeuristic) Reset() {
	o.window = 1
	o.offset = 0
}
