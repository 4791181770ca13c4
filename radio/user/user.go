// Package user implements a single user's per-TTI lifecycle: it owns a
// Flow and a DiscreteBuffer, applies the RBGs granted to it each TTI, and
// maintains the append-only history arrays the scheduling policies and
// telemetry layer read from.
package user

import (
	"fmt"
	"math/rand"

	"github.com/dgwcamk/radiosim/radio/buffer"
	"github.com/dgwcamk/radiosim/radio/flow"
	"github.com/dgwcamk/radiosim/radio/history"
	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/rerr"
)

// Config configures a User's owned Flow and DiscreteBuffer.
type Config struct {
	MaxLat         int
	BufferSize     int64
	PktSize        int64
	FlowType       flow.Type
	FlowThroughput float64
	TTI            float64

	// WindowMax bounds the rolling statistics recorded into history each
	// TTI (fifth-percentile / long-term throughput / loss ratio); queries
	// for a larger window are clamped to the available history regardless.
	WindowMax int
}

// User owns a Flow and a DiscreteBuffer, the RBGs currently granted to it,
// its QoS requirements (inherited from its slice), and its history.
type User struct {
	id  int
	tti float64

	buff *buffer.DiscreteBuffer
	flow *flow.Flow

	se           *float64
	requirements map[string]float64
	rbgs         []rbg.RBG
	windowMax    int
	step         int

	histSpectralEfficiency  []float64
	histAllocatedThroughput []float64
	histNAllocatedRBGs      []float64
	histAvgBufferLatency    []float64
	histDroppBits           []float64
	histSentBits            []float64
	histBuffBits            []float64
	histFifthPercThr        []float64
	histLongTermThr         []float64
	histLossRatio           []float64
}

// New constructs a User with id, a DiscreteBuffer and a Flow configured
// per cfg, sharing rng with every other user at the same basestation so a
// fixed seed reproduces an entire run.
func New(id int, cfg Config, rng *rand.Rand) (*User, error) {
	buff, err := buffer.New(buffer.Config{
		MaxLat:     cfg.MaxLat,
		BufferSize: cfg.BufferSize,
		PktSize:    cfg.PktSize,
		TTI:        cfg.TTI,
	})
	if err != nil {
		return nil, err
	}
	fl, err := flow.New(flow.Config{
		Type:       cfg.FlowType,
		PktSize:    cfg.PktSize,
		Throughput: cfg.FlowThroughput,
	}, rng)
	if err != nil {
		return nil, err
	}
	windowMax := cfg.WindowMax
	if windowMax < 1 {
		windowMax = 1
	}
	return &User{
		id:        id,
		tti:       cfg.TTI,
		buff:      buff,
		flow:      fl,
		windowMax: windowMax,
	}, nil
}

// ID returns the user's identity.
func (u *User) ID() int { return u.id }

// SetSpectralEfficiency sets the current-TTI spectral efficiency in
// bits/s/Hz. Must be called before the first Transmit.
func (u *User) SetSpectralEfficiency(se float64) {
	u.se = &se
}

// SetFlowThroughput changes the user's mean arrival rate in bits/s.
func (u *User) SetFlowThroughput(throughput float64) {
	u.flow.SetThroughput(throughput)
}

// SetRequirements sets the QoS requirements inherited from the owning
// slice, replacing any previous set.
func (u *User) SetRequirements(requirements map[string]float64) {
	u.requirements = requirements
}

// Requirement returns the named requirement and whether it is set.
func (u *User) Requirement(key string) (float64, bool) {
	v, ok := u.requirements[key]
	return v, ok
}

// AllocateRBG grants rbg to the user for the current TTI.
func (u *User) AllocateRBG(r rbg.RBG) {
	u.rbgs = append(u.rbgs, r)
}

// ClearRBGAllocation clears all RBGs granted for the current TTI; called
// before each TTI's scheduling decision.
func (u *User) ClearRBGAllocation() {
	u.rbgs = nil
}

// NumRBGs returns the number of RBGs currently granted.
func (u *User) NumRBGs() int {
	return len(u.rbgs)
}

// ActualThroughput returns Σ_rbg bandwidth × SE. Fails with
// UnsetPrecondition if SE has never been set.
func (u *User) ActualThroughput() (float64, error) {
	if u.se == nil {
		return 0, fmt.Errorf("%w: spectral efficiency not set for user %d", rerr.UnsetPrecondition, u.id)
	}
	var bw float64
	for _, r := range u.rbgs {
		bw += r.Bandwidth
	}
	return bw * *u.se, nil
}

// ArrivePackets draws this TTI's packet count from the Flow and forwards
// it to the buffer, then records the spectral-efficiency and arrived-bits
// history entries.
func (u *User) ArrivePackets() {
	n := u.flow.GeneratePackets(u.tti)
	u.buff.ArrivePackets(n)

	var se float64
	if u.se != nil {
		se = *u.se
	}
	u.histSpectralEfficiency = append(u.histSpectralEfficiency, se)
}

// Transmit computes the actual throughput from granted RBGs and SE,
// forwards it to the buffer, and appends the full per-TTI history row.
// Fails with UnsetPrecondition if SE was never set.
func (u *User) Transmit() error {
	thr, err := u.ActualThroughput()
	if err != nil {
		return err
	}
	u.buff.Transmit(thr)

	dropped, _ := u.buff.DroppedBits(1)
	sent, _ := u.buff.SentBits(1)

	u.histAllocatedThroughput = append(u.histAllocatedThroughput, thr)
	u.histNAllocatedRBGs = append(u.histNAllocatedRBGs, float64(len(u.rbgs)))
	u.histAvgBufferLatency = append(u.histAvgBufferLatency, u.buff.AvgBufferLatencySeconds())
	u.histDroppBits = append(u.histDroppBits, dropped)
	u.histSentBits = append(u.histSentBits, sent)
	u.histBuffBits = append(u.histBuffBits, u.buff.BufferedBits())

	w, _ := history.ClampWindow(u.windowMax, u.step)
	tail := history.Tail(u.histAllocatedThroughput, w)
	u.histFifthPercThr = append(u.histFifthPercThr, history.FifthPercentile(tail))
	u.histLongTermThr = append(u.histLongTermThr, history.Mean(tail))
	lossRatio, _ := u.buff.PktLossRate(w)
	u.histLossRatio = append(u.histLossRatio, lossRatio)

	u.step++
	return nil
}

// Buffer exposes the owned DiscreteBuffer for queries that don't fit this
// package's history-array surface (e.g. the intersched minimum-resource
// computation, which needs the raw age buckets).
func (u *User) Buffer() *buffer.DiscreteBuffer {
	return u.buff
}

// MaxLat returns the owned buffer's configured maximum latency in TTIs.
func (u *User) MaxLat() int { return u.buff.MaxLat() }

// PktSize returns the owned buffer's configured fixed packet size in bits.
func (u *User) PktSize() int64 { return u.buff.PktSize() }

// TTI returns the simulation's transmission time interval in seconds.
func (u *User) TTI() float64 { return u.tti }

// SpectralEfficiency returns the current-TTI SE and whether it has been
// set.
func (u *User) SpectralEfficiency() (float64, bool) {
	if u.se == nil {
		return 0, false
	}
	return *u.se, true
}

// AggregateThroughput returns the sum (not mean) of
// hist_allocated_throughput over the last w TTIs.
func (u *User) AggregateThroughput(w int) (float64, error) {
	w, err := u.window(w)
	if err != nil {
		return 0, err
	}
	return history.Sum(history.Tail(u.histAllocatedThroughput, w)), nil
}

// MinThroughput returns the minimum of hist_allocated_throughput over the
// last w TTIs.
func (u *User) MinThroughput(w int) (float64, error) {
	w, err := u.window(w)
	if err != nil {
		return 0, err
	}
	tail := history.Tail(u.histAllocatedThroughput, w)
	if len(tail) == 0 {
		return 0, nil
	}
	min := tail[0]
	for _, v := range tail[1:] {
		if v < min {
			min = v
		}
	}
	return min, nil
}

func (u *User) window(w int) (int, error) {
	return history.ClampWindow(w, u.step-1)
}

// BufferOccupancy returns the fraction of buffer_size currently occupied.
func (u *User) BufferOccupancy() float64 {
	return u.buff.BufferOccupancy()
}

// AvgBufferLatency returns the lifetime mean buffer latency in seconds.
func (u *User) AvgBufferLatency() float64 {
	return u.buff.AvgBufferLatencySeconds()
}

// AvgBufferLatencyTTIs returns the lifetime mean buffer latency in TTIs,
// the unit of the latency QoS requirement. The reward formula works in
// seconds (see AvgBufferLatency).
func (u *User) AvgBufferLatencyTTIs() float64 {
	return u.buff.AvgBufferLatencyTTIs()
}

// PktLossRate returns the packet-loss ratio over the last w TTIs.
func (u *User) PktLossRate(w int) (float64, error) {
	return u.buff.PktLossRate(w)
}

// SentThroughput returns the mean sent bit rate over the last w TTIs.
func (u *User) SentThroughput(w int) (float64, error) {
	bits, err := u.buff.SentBits(w)
	if err != nil {
		return 0, err
	}
	return bits / (float64(w) * u.tti), nil
}

// ArrivedThroughput returns the mean arrived bit rate over the last w
// TTIs.
func (u *User) ArrivedThroughput(w int) (float64, error) {
	bits, err := u.buff.ArrivedBits(w)
	if err != nil {
		return 0, err
	}
	return bits / (float64(w) * u.tti), nil
}

// LongTermThroughput returns the mean of hist_allocated_throughput over
// the last w TTIs.
func (u *User) LongTermThroughput(w int) (float64, error) {
	w, err := u.window(w)
	if err != nil {
		return 0, err
	}
	return history.Mean(history.Tail(u.histAllocatedThroughput, w)), nil
}

// FifthPercentileThroughput returns the fifth-percentile of
// hist_allocated_throughput over the last w TTIs.
func (u *User) FifthPercentileThroughput(w int) (float64, error) {
	w, err := u.window(w)
	if err != nil {
		return 0, err
	}
	return history.FifthPercentile(history.Tail(u.histAllocatedThroughput, w)), nil
}

// AverageSpectralEfficiency returns the mean SE over the last w TTIs.
func (u *User) AverageSpectralEfficiency(w int) (float64, error) {
	w, err := u.window(w)
	if err != nil {
		return 0, err
	}
	return history.Mean(history.Tail(u.histSpectralEfficiency, w)), nil
}

// LastSentThroughput returns the most recent TTI's sent bit rate, or 0
// before any TTI has completed.
func (u *User) LastSentThroughput() float64 {
	if len(u.histSentBits) == 0 {
		return 0
	}
	return u.histSentBits[len(u.histSentBits)-1] / u.tti
}

// LastSentBits returns the raw bit count sent in the most recent TTI, or
// 0 before any TTI has completed.
func (u *User) LastSentBits() float64 {
	if len(u.histSentBits) == 0 {
		return 0
	}
	return u.histSentBits[len(u.histSentBits)-1]
}

// LastDroppedBits returns the raw bit count dropped (buffer-full or
// max-latency) in the most recent TTI, or 0 before any TTI has completed.
func (u *User) LastDroppedBits() float64 {
	if len(u.histDroppBits) == 0 {
		return 0
	}
	return u.histDroppBits[len(u.histDroppBits)-1]
}

// LastArrivedThroughput returns the most recent TTI's arrived bit rate,
// or 0 before any TTI has completed.
func (u *User) LastArrivedThroughput() float64 {
	if len(u.histAllocatedThroughput) == 0 {
		return 0
	}
	bits, err := u.buff.ArrivedBits(1)
	if err != nil {
		return 0
	}
	return bits / u.tti
}

// BufferArray returns a copy of the current age-bucket packet counts.
func (u *User) BufferArray() []int64 {
	return u.buff.BufferArray()
}

// Step returns the number of completed TTIs.
func (u *User) Step() int {
	return u.step
}

// Reset returns the user to its just-constructed state, preserving
// identity, configuration and requirements but clearing flow/buffer state
// and all history.
func (u *User) Reset() {
	u.buff.Reset()
	u.se = nil
	u.rbgs = nil
	u.step = 0
	u.histSpectralEfficiency = nil
	u.histAllocatedThroughput = nil
	u.histNAllocatedRBGs = nil
	u.histAvgBufferLatency = nil
	u.histDroppBits = nil
	u.histSentBits = nil
	u.histBuffBits = nil
	u.histFifthPercThr = nil
	u.histLongTermThr = nil
	u.histLossRatio = nil
}
