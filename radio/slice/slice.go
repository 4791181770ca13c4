// Package slice implements the slice/user aggregation layer: a Slice owns
// a set of Users, holds their QoS requirements, applies its intra-slice
// scheduler, and exposes aggregate and worst-user diagnostics consumed by
// the inter-slice schedulers and the basestation's reward computation.
package slice

import (
	"fmt"

	"github.com/dgwcamk/radiosim/radio/intrasched"
	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/rerr"
	"github.com/dgwcamk/radiosim/radio/user"
)

// Type is a slice class, which determines its recognized requirement
// keys.
type Type string

const (
	EMBB  Type = "embb"
	URLLC Type = "urllc"
	BE    Type = "be"
)

// RecognizedKeys returns the requirement keys valid for t.
func RecognizedKeys(t Type) []string {
	switch t {
	case EMBB, URLLC:
		return []string{"throughput", "latency", "pkt_loss"}
	case BE:
		return []string{"long_term_thr", "fifth_perc_thr"}
	default:
		return nil
	}
}

// Config configures a Slice.
type Config struct {
	Type         Type
	Requirements map[string]float64
}

// Slice owns a set of Users, its QoS requirements, and its per-TTI RBG
// grant and history.
type Slice struct {
	id           int
	typ          Type
	requirements map[string]float64
	scheduler    intrasched.Scheduler

	users     []*user.User
	userIndex map[int]*user.User

	rbgs []rbg.RBG
	step int

	histNumRBGs              []float64
	histAggregateThroughput  []float64
}

// New creates a Slice. Returns a ConfigError if cfg.Type is unrecognized
// or cfg.Requirements has a key not recognized for cfg.Type.
func New(id int, cfg Config, scheduler intrasched.Scheduler) (*Slice, error) {
	recognized := RecognizedKeys(cfg.Type)
	if recognized == nil {
		return nil, fmt.Errorf("%w: unknown slice type %q", rerr.ConfigError, cfg.Type)
	}
	for k := range cfg.Requirements {
		ok := false
		for _, r := range recognized {
			if r == k {
				ok = true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("%w: requirement %q is not recognized for slice type %q", rerr.ConfigError, k, cfg.Type)
		}
	}
	reqs := make(map[string]float64, len(cfg.Requirements))
	for k, v := range cfg.Requirements {
		reqs[k] = v
	}
	return &Slice{
		id:           id,
		typ:          cfg.Type,
		requirements: reqs,
		scheduler:    scheduler,
		userIndex:    make(map[int]*user.User),
	}, nil
}

// ID returns the slice's identity.
func (s *Slice) ID() int { return s.id }

// Type returns the slice's class.
func (s *Slice) Type() Type { return s.typ }

// Requirement returns the named requirement and whether it is set.
func (s *Slice) Requirement(key string) (float64, bool) {
	v, ok := s.requirements[key]
	return v, ok
}

// Requirements returns a copy of the slice's requirement map.
func (s *Slice) Requirements() map[string]float64 {
	out := make(map[string]float64, len(s.requirements))
	for k, v := range s.requirements {
		out[k] = v
	}
	return out
}

// AddUser assigns u to this slice, propagating the slice's requirements.
// Returns InvalidArgument if a user with the same id is already present.
func (s *Slice) AddUser(u *user.User) error {
	if _, exists := s.userIndex[u.ID()]; exists {
		return fmt.Errorf("%w: user %d is already assigned to slice %d", rerr.InvalidArgument, u.ID(), s.id)
	}
	u.SetRequirements(s.Requirements())
	s.users = append(s.users, u)
	s.userIndex[u.ID()] = u
	return nil
}

// Users returns the slice's users in stable assignment order.
func (s *Slice) Users() []*user.User {
	return s.users
}

// UpdateUserRequirements re-propagates the slice's current requirements to
// every owned user (e.g. after a config reload).
func (s *Slice) UpdateUserRequirements() {
	for _, u := range s.users {
		u.SetRequirements(s.Requirements())
	}
}

// SetDemandThroughput overrides every owned user's flow throughput. Used
// by load-step scenarios that want to drive demand independent of the
// configured flow.
func (s *Slice) SetDemandThroughput(throughput float64) {
	for _, u := range s.users {
		u.SetFlowThroughput(throughput)
	}
}

// ArrivePackets forwards arrive_pkts to every owned user.
func (s *Slice) ArrivePackets() {
	for _, u := range s.users {
		u.ArrivePackets()
	}
}

// Transmit forwards transmit to every owned user, then appends the
// slice's per-TTI history row.
func (s *Slice) Transmit() error {
	var aggThr float64
	for _, u := range s.users {
		if err := u.Transmit(); err != nil {
			return err
		}
		thr, _ := u.ActualThroughput()
		aggThr += thr
	}
	s.histNumRBGs = append(s.histNumRBGs, float64(len(s.rbgs)))
	s.histAggregateThroughput = append(s.histAggregateThroughput, aggThr)
	s.step++
	return nil
}

// AllocateRBG grants g to the slice for the current TTI (before intra-
// scheduling hands it to a specific user).
func (s *Slice) AllocateRBG(g rbg.RBG) {
	s.rbgs = append(s.rbgs, g)
}

// ClearRBGAllocation clears the slice's RBG grant for the current TTI.
func (s *Slice) ClearRBGAllocation() {
	s.rbgs = nil
}

// RBGs returns the RBGs currently granted to the slice.
func (s *Slice) RBGs() []rbg.RBG {
	return s.rbgs
}

// ScheduleRBGs applies the slice's intra-slice scheduler to its current
// RBG grant and users.
func (s *Slice) ScheduleRBGs() {
	s.scheduler.Schedule(s.rbgs, s.users)
}

// RoundRobinPriority returns user ids in the order the slice's intra
// scheduler would next hand out RBGs. Fails with InvalidArgument if the
// slice's scheduler is not a RoundRobin.
func (s *Slice) RoundRobinPriority() ([]int, error) {
	rr, ok := s.scheduler.(*intrasched.RoundRobin)
	if !ok {
		return nil, fmt.Errorf("%w: slice %d's scheduler is not RoundRobin", rerr.InvalidArgument, s.id)
	}
	order := rr.Priority(len(s.users))
	out := make([]int, len(order))
	for i, idx := range order {
		out[i] = s.users[idx].ID()
	}
	return out, nil
}

func (s *Slice) meanOverUsers(f func(*user.User) float64) float64 {
	if len(s.users) == 0 {
		return 0
	}
	var total float64
	for _, u := range s.users {
		total += f(u)
	}
	return total / float64(len(s.users))
}

// BufferOccupancy returns the mean buffer occupancy across owned users.
func (s *Slice) BufferOccupancy() float64 {
	return s.meanOverUsers(func(u *user.User) float64 { return u.BufferOccupancy() })
}

// AvgBufferLatency returns the mean average buffer latency across owned
// users.
func (s *Slice) AvgBufferLatency() float64 {
	return s.meanOverUsers(func(u *user.User) float64 { return u.AvgBufferLatency() })
}

// AvgBufferLatencyTTIs returns the mean average buffer latency across
// owned users, in TTIs — the unit of the latency QoS requirement. The
// reward formula works in seconds (see AvgBufferLatency).
func (s *Slice) AvgBufferLatencyTTIs() float64 {
	return s.meanOverUsers(func(u *user.User) float64 { return u.AvgBufferLatencyTTIs() })
}

// MaxLat returns the owned users' configured maximum buffer latency in
// TTIs (uniform across a slice's users by construction). Returns 0 for
// an empty slice.
func (s *Slice) MaxLat() int {
	if len(s.users) == 0 {
		return 0
	}
	return s.users[0].MaxLat()
}

// PktLossRate returns the mean packet-loss rate across owned users over
// the last w TTIs.
func (s *Slice) PktLossRate(w int) float64 {
	return s.meanOverUsers(func(u *user.User) float64 {
		v, _ := u.PktLossRate(w)
		return v
	})
}

// SentThroughput returns the mean sent throughput across owned users over
// the last w TTIs.
func (s *Slice) SentThroughput(w int) float64 {
	return s.meanOverUsers(func(u *user.User) float64 {
		v, _ := u.SentThroughput(w)
		return v
	})
}

// ArrivedThroughput returns the mean arrived throughput across owned
// users over the last w TTIs.
func (s *Slice) ArrivedThroughput(w int) float64 {
	return s.meanOverUsers(func(u *user.User) float64 {
		v, _ := u.ArrivedThroughput(w)
		return v
	})
}

// LongTermThroughput returns the mean long-term throughput across owned
// users over the last w TTIs.
func (s *Slice) LongTermThroughput(w int) float64 {
	return s.meanOverUsers(func(u *user.User) float64 {
		v, _ := u.LongTermThroughput(w)
		return v
	})
}

// ServedThroughput returns the sum (not mean) of owned users' current
// actual throughput (Σ_rbg bandwidth × SE), i.e. the instantaneous
// bandwidth scheduled to the slice this TTI regardless of whether each
// user's buffer had enough queued data to use all of it.
func (s *Slice) ServedThroughput() float64 {
	var total float64
	for _, u := range s.users {
		thr, err := u.ActualThroughput()
		if err == nil {
			total += thr
		}
	}
	return total
}

// LastSentBits returns the sum, across owned users, of bits sent in the
// most recent TTI.
func (s *Slice) LastSentBits() float64 {
	var total float64
	for _, u := range s.users {
		total += u.LastSentBits()
	}
	return total
}

// LastDroppedBits returns the sum, across owned users, of bits dropped
// (buffer-full or max-latency) in the most recent TTI.
func (s *Slice) LastDroppedBits() float64 {
	var total float64
	for _, u := range s.users {
		total += u.LastDroppedBits()
	}
	return total
}

// AverageSpectralEfficiency returns the mean, across owned users, of the
// average SE over the last w TTIs.
func (s *Slice) AverageSpectralEfficiency(w int) float64 {
	return s.meanOverUsers(func(u *user.User) float64 {
		v, _ := u.AverageSpectralEfficiency(w)
		return v
	})
}

// FifthPercentileThroughput returns the mean fifth-percentile throughput
// across owned users over the last w TTIs.
func (s *Slice) FifthPercentileThroughput(w int) float64 {
	return s.meanOverUsers(func(u *user.User) float64 {
		v, _ := u.FifthPercentileThroughput(w)
		return v
	})
}

// worstUser scans owned users with a comparator worse(candidate, current
// winner), selecting candidate when it returns true. Returns ok=false when the
// slice owns no users.
func (s *Slice) worstUser(metric func(*user.User) float64, worse func(candidate, current float64) bool) (id int, value float64, ok bool) {
	if len(s.users) == 0 {
		return 0, 0, false
	}
	id = s.users[0].ID()
	value = metric(s.users[0])
	for _, u := range s.users[1:] {
		v := metric(u)
		if worse(v, value) {
			value = v
			id = u.ID()
		}
	}
	return id, value, true
}

// WorstUserByRBGs returns the user with the fewest granted RBGs.
func (s *Slice) WorstUserByRBGs() (id, numRBGs int, ok bool) {
	uid, v, ok := s.worstUser(
		func(u *user.User) float64 { return float64(u.NumRBGs()) },
		func(candidate, current float64) bool { return candidate < current },
	)
	return uid, int(v), ok
}

// WorstUserByAvgBufferLatency returns the user with the highest average
// buffer latency.
func (s *Slice) WorstUserByAvgBufferLatency() (id int, latency float64, ok bool) {
	return s.worstUser(
		func(u *user.User) float64 { return u.AvgBufferLatency() },
		func(candidate, current float64) bool { return candidate > current },
	)
}

// WorstUserByBufferOccupancy returns the user with the highest buffer
// occupancy.
func (s *Slice) WorstUserByBufferOccupancy() (id int, occupancy float64, ok bool) {
	return s.worstUser(
		func(u *user.User) float64 { return u.BufferOccupancy() },
		func(candidate, current float64) bool { return candidate > current },
	)
}

// WorstUserByArrivedThroughput returns the user with the highest arrived
// throughput over the last w TTIs.
func (s *Slice) WorstUserByArrivedThroughput(w int) (id int, thr float64, ok bool) {
	return s.worstUser(
		func(u *user.User) float64 { v, _ := u.ArrivedThroughput(w); return v },
		func(candidate, current float64) bool { return candidate > current },
	)
}

// WorstUserBySentThroughput returns the user with the lowest sent
// throughput over the last w TTIs.
func (s *Slice) WorstUserBySentThroughput(w int) (id int, thr float64, ok bool) {
	return s.worstUser(
		func(u *user.User) float64 { v, _ := u.SentThroughput(w); return v },
		func(candidate, current float64) bool { return candidate < current },
	)
}

// WorstUserByPktLoss returns the user with the highest packet-loss rate
// over the last w TTIs.
func (s *Slice) WorstUserByPktLoss(w int) (id int, loss float64, ok bool) {
	return s.worstUser(
		func(u *user.User) float64 { v, _ := u.PktLossRate(w); return v },
		func(candidate, current float64) bool { return candidate > current },
	)
}

// WorstUserBySpectralEfficiency returns the user with the lowest average
// spectral efficiency over the last w TTIs.
func (s *Slice) WorstUserBySpectralEfficiency(w int) (id int, se float64, ok bool) {
	return s.worstUser(
		func(u *user.User) float64 { v, _ := u.AverageSpectralEfficiency(w); return v },
		func(candidate, current float64) bool { return candidate < current },
	)
}

// Step returns the number of completed TTIs.
func (s *Slice) Step() int { return s.step }

// Reset resets every owned user and the slice's own RBG grant/history,
// preserving identity, requirements and membership.
func (s *Slice) Reset() {
	for _, u := range s.users {
		u.Reset()
	}
	s.rbgs = nil
	s.step = 0
	s.histNumRBGs = nil
	s.histAggregateThroughput = nil
	if rr, ok := s.scheduler.(*intrasched.RoundRobin); ok {
		rr.Reset()
	}
}
