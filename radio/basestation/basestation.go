// Package basestation implements the per-TTI pipeline that ties the
// buffer, user, slice and inter-slice scheduling layers together: a
// BaseStation owns a fixed RBG pool, a flat map of slices and users, and
// runs arrive/schedule/transmit each TTI, computing the weighted QoS
// reward from post-transmit slice metrics.
package basestation

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dgwcamk/radiosim/radio/intersched"
	"github.com/dgwcamk/radiosim/radio/intrasched"
	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/rerr"
	"github.com/dgwcamk/radiosim/radio/slice"
	"github.com/dgwcamk/radiosim/radio/user"
)

const (
	weightEMBBThroughput = 0.20
	weightEMBBLatency    = 0.05
	weightEMBBLoss       = 0.05
	weightURLLCThroughput = 0.10
	weightURLLCLatency    = 0.25
	weightURLLCLoss       = 0.25
	weightBELongTerm      = 0.05
	weightBEFifthPerc     = 0.05
)

// Config configures a BaseStation's numerology, RBG pool and seeded
// random generator.
type Config struct {
	ID          int
	DisplayName string

	// TTI is the simulation's transmission time interval in seconds.
	TTI float64

	// RBBandwidth is a single resource block's bandwidth in Hz.
	RBBandwidth float64

	// RBsPerRBG is the number of resource blocks grouped into one RBG.
	RBsPerRBG int

	// NumRBGs is the fixed size of the RBG pool generated at construction.
	NumRBGs int

	// WindowMax bounds the rolling window used for the long-term,
	// fifth-percentile and packet-loss reward terms.
	WindowMax int

	// Seed seeds the basestation's random generator, shared by every flow
	// belonging to every user at this basestation.
	Seed int64
}

// BaseStation owns a fixed RBG pool, a set of Slices (each exclusively
// owning its Users), a flat id->User lookup map, an inter-slice
// scheduler, and the cumulative reward/history arrays spec.md §4.6
// names.
type BaseStation struct {
	id          int
	displayName string
	tti         float64
	rbBandwidth float64
	rbsPerRBG   int
	windowMax   int

	scheduler intersched.Scheduler
	rng       *rand.Rand

	nextSliceID int
	nextUserID  int

	slices     []*slice.Slice
	sliceIndex map[int]*slice.Slice
	users      map[int]*user.User

	rbgs []rbg.RBG

	step   int
	window int

	cumulativeReward float64

	histNumAllocatedRBGs       []float64
	histSchedulerElapsedSeconds []float64
	histReward                 []float64
	histCumulativeReward       []float64
}

// New creates a BaseStation with an RBG pool of cfg.NumRBGs RBGs, each of
// bandwidth cfg.RBsPerRBG*cfg.RBBandwidth, and the given inter-slice
// scheduler. Returns a ConfigError if cfg.RBsPerRBG or cfg.NumRBGs is not
// positive.
func New(cfg Config, scheduler intersched.Scheduler) (*BaseStation, error) {
	if cfg.RBsPerRBG <= 0 {
		return nil, fmt.Errorf("%w: rbs_per_rbg must be positive, got %d", rerr.ConfigError, cfg.RBsPerRBG)
	}
	if cfg.NumRBGs <= 0 {
		return nil, fmt.Errorf("%w: num_rbgs must be positive, got %d", rerr.ConfigError, cfg.NumRBGs)
	}
	if scheduler == nil {
		return nil, fmt.Errorf("%w: basestation requires an inter-slice scheduler", rerr.ConfigError)
	}
	windowMax := cfg.WindowMax
	if windowMax < 1 {
		windowMax = 1
	}
	return &BaseStation{
		id:          cfg.ID,
		displayName: cfg.DisplayName,
		tti:         cfg.TTI,
		rbBandwidth: cfg.RBBandwidth,
		rbsPerRBG:   cfg.RBsPerRBG,
		windowMax:   windowMax,
		scheduler:   scheduler,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		sliceIndex:  make(map[int]*slice.Slice),
		users:       make(map[int]*user.User),
		rbgs:        rbg.New(cfg.NumRBGs, cfg.RBsPerRBG, cfg.RBBandwidth),
		window:      1,
	}, nil
}

// ID returns the basestation's identity.
func (b *BaseStation) ID() int { return b.id }

// DisplayName returns the basestation's human-readable name.
func (b *BaseStation) DisplayName() string { return b.displayName }

// TTI returns the configured transmission time interval in seconds.
func (b *BaseStation) TTI() float64 { return b.tti }

// RBGs returns the basestation's fixed RBG pool.
func (b *BaseStation) RBGs() []rbg.RBG { return b.rbgs }

// Window returns the current rolling-window size used for reward and
// statistics queries.
func (b *BaseStation) Window() int { return b.window }

// AddSlice creates a Slice with a monotonically assigned id and adds it
// to the basestation.
func (b *BaseStation) AddSlice(cfg slice.Config, intraScheduler intrasched.Scheduler) (*slice.Slice, error) {
	id := b.nextSliceID
	s, err := slice.New(id, cfg, intraScheduler)
	if err != nil {
		return nil, err
	}
	b.nextSliceID++
	b.slices = append(b.slices, s)
	b.sliceIndex[id] = s
	return s, nil
}

// Slice returns the slice with the given id, and whether it exists.
func (b *BaseStation) Slice(id int) (*slice.Slice, bool) {
	s, ok := b.sliceIndex[id]
	return s, ok
}

// Slices returns the basestation's slices in assignment order.
func (b *BaseStation) Slices() []*slice.Slice {
	return b.slices
}

// AddUser creates a User with a monotonically assigned id owned by the
// named slice, and registers it in the basestation's flat lookup map.
// Every user at a basestation shares the basestation's random generator
// so a fixed seed reproduces the whole run.
func (b *BaseStation) AddUser(sliceID int, cfg user.Config) (*user.User, error) {
	s, ok := b.sliceIndex[sliceID]
	if !ok {
		return nil, fmt.Errorf("%w: basestation %d has no slice %d", rerr.InvalidArgument, b.id, sliceID)
	}
	id := b.nextUserID
	u, err := user.New(id, cfg, b.rng)
	if err != nil {
		return nil, err
	}
	if err := s.AddUser(u); err != nil {
		return nil, err
	}
	b.nextUserID++
	b.users[id] = u
	return u, nil
}

// User returns the user with the given id via the flat lookup map, and
// whether it exists.
func (b *BaseStation) User(id int) (*user.User, bool) {
	u, ok := b.users[id]
	return u, ok
}

// Step returns the number of completed TTIs.
func (b *BaseStation) Step() int { return b.step }

// CumulativeReward returns the sum of every TTI's reward so far.
func (b *BaseStation) CumulativeReward() float64 { return b.cumulativeReward }

// LastReward returns the most recently computed reward, or 0 before any
// TTI has completed.
func (b *BaseStation) LastReward() float64 {
	if len(b.histReward) == 0 {
		return 0
	}
	return b.histReward[len(b.histReward)-1]
}

// SchedulerElapsed returns the wall-clock durations the inter-slice
// scheduler took on each completed TTI, in seconds.
func (b *BaseStation) SchedulerElapsed() []float64 {
	out := make([]float64, len(b.histSchedulerElapsedSeconds))
	copy(out, b.histSchedulerElapsedSeconds)
	return out
}

// CumulativeRewardHistory returns the running cumulative reward recorded
// after each completed TTI.
func (b *BaseStation) CumulativeRewardHistory() []float64 {
	out := make([]float64, len(b.histCumulativeReward))
	copy(out, b.histCumulativeReward)
	return out
}

// ArrivePackets runs arrive_pkts for every user via its owning slice.
func (b *BaseStation) ArrivePackets() {
	for _, s := range b.slices {
		s.ArrivePackets()
	}
}

// ScheduleRBGs times and invokes the inter-slice scheduler, then applies
// each slice's intra-slice scheduler to the RBGs it was granted. Returns
// a ConfigError if the basestation has no RBGs, or whatever error the
// inter-slice scheduler returns (e.g. ModelError, InvariantViolation).
func (b *BaseStation) ScheduleRBGs() error {
	if len(b.rbgs) == 0 {
		return fmt.Errorf("%w: basestation %d has no RBGs", rerr.ConfigError, b.id)
	}
	start := time.Now()
	err := b.scheduler.Schedule(b.slices, b.rbgs)
	b.histSchedulerElapsedSeconds = append(b.histSchedulerElapsedSeconds, time.Since(start).Seconds())
	if err != nil {
		return err
	}
	for _, s := range b.slices {
		s.ScheduleRBGs()
	}
	return nil
}

// Transmit runs transmit for every user via its owning slice, advances
// the step counter and rolling window, and computes and records this
// TTI's reward.
func (b *BaseStation) Transmit() error {
	for _, s := range b.slices {
		if err := s.Transmit(); err != nil {
			return err
		}
	}

	var allocatedRBGs float64
	for _, s := range b.slices {
		allocatedRBGs += float64(len(s.RBGs()))
	}
	b.histNumAllocatedRBGs = append(b.histNumAllocatedRBGs, allocatedRBGs)

	b.step++
	b.window++
	if b.window > b.windowMax {
		b.window = b.windowMax
	}

	reward := b.computeReward()
	b.cumulativeReward += reward
	b.histReward = append(b.histReward, reward)
	b.histCumulativeReward = append(b.histCumulativeReward, b.cumulativeReward)
	return nil
}

// computeReward implements spec.md §4.6's weighted violation sum: each
// active QoS requirement contributes a negative term when violated and
// zero otherwise, so reward is always in (−∞, 0].
func (b *BaseStation) computeReward() float64 {
	var reward float64
	for _, s := range b.slices {
		thr := s.ServedThroughput()
		lat := s.AvgBufferLatency()
		loss := s.PktLossRate(b.window)
		long := s.LongTermThroughput(b.window)
		fif := s.FifthPercentileThroughput(b.window)

		switch s.Type() {
		case slice.EMBB, slice.URLLC:
			var wThr, wLat, wLoss float64
			if s.Type() == slice.EMBB {
				wThr, wLat, wLoss = weightEMBBThroughput, weightEMBBLatency, weightEMBBLoss
			} else {
				wThr, wLat, wLoss = weightURLLCThroughput, weightURLLCLatency, weightURLLCLoss
			}
			if thrReq, ok := s.Requirement("throughput"); ok && thr < thrReq {
				reward += negPenalty(wThr, thrReq-thr, thrReq)
			}
			if latReqTTIs, ok := s.Requirement("latency"); ok {
				latReq := latReqTTIs * b.tti
				maxLat := float64(s.MaxLat()) * b.tti
				if lat > latReq {
					reward += negPenalty(wLat, lat-latReq, maxLat-latReq)
				}
			}
			if lossReq, ok := s.Requirement("pkt_loss"); ok && loss > lossReq {
				reward += negPenalty(wLoss, loss-lossReq, 1-lossReq)
			}
		case slice.BE:
			if longReq, ok := s.Requirement("long_term_thr"); ok && long < longReq {
				reward += negPenalty(weightBELongTerm, longReq-long, longReq)
			}
			if fifReq, ok := s.Requirement("fifth_perc_thr"); ok && fif < fifReq {
				reward += negPenalty(weightBEFifthPerc, fifReq-fif, fifReq)
			}
		}
	}
	return reward
}

// negPenalty returns -weight*numerator/denominator, or 0 if denominator
// is zero (an unconfigurable requirement, rather than dividing by zero).
func negPenalty(weight, numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return -weight * numerator / denominator
}

// Reset returns the basestation and every owned slice/user to their
// just-constructed state, preserving identity, configuration, RBG pool
// and slice/user membership.
func (b *BaseStation) Reset() {
	b.step = 0
	b.window = 1
	b.cumulativeReward = 0
	b.histNumAllocatedRBGs = nil
	b.histSchedulerElapsedSeconds = nil
	b.histReward = nil
	b.histCumulativeReward = nil
	for _, s := range b.slices {
		s.Reset()
	}
}
