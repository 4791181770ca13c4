package intersched

import (
	"fmt"
	"sort"

	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/rerr"
	"github.com/dgwcamk/radiosim/radio/slice"
)

// Policy is the trained SAC actor's inference contract: given the
// observation vector, return the raw action vector (length =
// len(slices)). Training and the network architecture are out of scope;
// this is deliberately an opaque function so any inference backend (an
// ONNX runtime, a gRPC call to a serving process, a loaded checkpoint) can
// implement it.
type Policy func(observation []float64) ([]float64, error)

// SAC treats the inter-slice decision as a continuous-action policy
// evaluated each TTI. Not required for a faithful port on its own — it
// exists as the contract a trained policy plugs into.
type SAC struct {
	windowMax int
	window    int
	policy    Policy
}

// NewSAC creates a SAC scheduler around policy. policy must not be nil.
func NewSAC(policy Policy, windowMax int) (*SAC, error) {
	if policy == nil {
		return nil, fmt.Errorf("%w: SAC scheduler requires a policy function", rerr.ConfigError)
	}
	return &SAC{policy: policy, windowMax: windowMax, window: 1}, nil
}

// Schedule builds the observation vector, evaluates the policy, rounds
// its action into an integer RBG allocation summing to len(rbgs), and
// applies it. Fails with ModelError if the policy returns an error or a
// vector of the wrong length.
func (s *SAC) Schedule(slices []*slice.Slice, rbgs []rbg.RBG) error {
	obs := ObservationVector(slices, s.window)
	action, err := s.policy(obs)
	if err != nil {
		return fmt.Errorf("%w: %v", rerr.ModelError, err)
	}
	if len(action) != len(slices) {
		return fmt.Errorf("%w: policy returned %d actions for %d slices", rerr.ModelError, len(action), len(slices))
	}

	alloc := roundAllocation(action, len(rbgs))

	clearAll(slices)
	rbgIndex := 0
	for i, s := range slices {
		for k := 0; k < alloc[i] && rbgIndex < len(rbgs); k++ {
			s.AllocateRBG(rbgs[rbgIndex])
			rbgIndex++
		}
	}

	s.window++
	if s.window > s.windowMax {
		s.window = s.windowMax
	}
	return nil
}

// ObservationVector builds the fixed-order observation: first every
// slice's requirements (3 values for eMBB/URLLC — latency, throughput,
// pkt_loss; 2 for BE — long_term_thr, fifth_perc_thr), then every slice's
// 9-metric vector (average SE, served throughput, last-TTI sent
// throughput, buffer occupancy, packet-loss rate over window, last-TTI
// arrived throughput, average buffer latency, long-term throughput over
// window, fifth-percentile throughput over window).
func ObservationVector(slices []*slice.Slice, window int) []float64 {
	var obs []float64
	for _, s := range slices {
		switch s.Type() {
		case slice.EMBB, slice.URLLC:
			lat, _ := s.Requirement("latency")
			thr, _ := s.Requirement("throughput")
			loss, _ := s.Requirement("pkt_loss")
			obs = append(obs, lat, thr, loss)
		case slice.BE:
			long, _ := s.Requirement("long_term_thr")
			fifth, _ := s.Requirement("fifth_perc_thr")
			obs = append(obs, long, fifth)
		}
	}
	for _, s := range slices {
		obs = append(obs,
			s.AverageSpectralEfficiency(1),
			s.ServedThroughput(),
			s.SentThroughput(1),
			s.BufferOccupancy(),
			s.PktLossRate(window),
			s.ArrivedThroughput(1),
			s.AvgBufferLatency(),
			s.LongTermThroughput(window),
			s.FifthPercentileThroughput(window),
		)
	}
	return obs
}

// roundAllocation shifts action to non-negative, normalizes it to sum to
// nRBGs, and rounds to an integer vector summing exactly to nRBGs via the
// largest-remainder method (floor every component, then hand out the
// leftover RBGs one at a time to the components whose fractional part is
// closest to rounding up).
func roundAllocation(action []float64, nRBGs int) []int {
	n := len(action)
	shifted := make([]float64, n)
	var sum float64
	for i, a := range action {
		shifted[i] = a + 1
		sum += shifted[i]
	}

	targets := make([]float64, n)
	if sum == 0 {
		for i := range targets {
			targets[i] = float64(nRBGs) / float64(n)
		}
	} else {
		for i, v := range shifted {
			targets[i] = v / sum * float64(nRBGs)
		}
	}

	alloc := make([]int, n)
	var assigned int
	type remainder struct {
		idx  int
		frac float64
	}
	remainders := make([]remainder, n)
	for i, t := range targets {
		floor := int(t)
		alloc[i] = floor
		assigned += floor
		remainders[i] = remainder{idx: i, frac: t - float64(floor)}
	}
	sort.Slice(remainders, func(i, j int) bool { return remainders[i].frac > remainders[j].frac })

	leftover := nRBGs - assigned
	for i := 0; i < leftover && i < len(remainders); i++ {
		alloc[remainders[i].idx]++
	}
	return alloc
}

// Window returns the current rolling-window size used in the observation
// vector's per-slice metrics.
func (s *SAC) Window() int {
	return s.window
}

// Reset returns the scheduler's window to its initial value.
func (s *SAC) Reset() {
	s.window = 1
}
