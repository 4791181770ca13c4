// Package buffer implements the per-user age-bucketed discrete packet
// buffer. Packets are never modeled as individual objects in steady state:
// the buffer counts packets by age (TTIs since arrival), which keeps
// per-TTI work O(max_lat) regardless of arrival rate.
package buffer

import (
	"fmt"

	"github.com/dgwcamk/radiosim/radio/history"
	"github.com/dgwcamk/radiosim/radio/rerr"
)

// Config configures a DiscreteBuffer.
type Config struct {
	// MaxLat is the maximum number of TTIs a packet may sit in the buffer
	// before being dropped. Must be >= 2.
	MaxLat int

	// BufferSize is the maximum number of bits the buffer may hold.
	BufferSize int64

	// PktSize is the fixed packet size in bits.
	PktSize int64

	// TTI is the simulation's transmission time interval in seconds, used
	// to convert bit rates into per-TTI bit budgets.
	TTI float64
}

// DiscreteBuffer is a user's queue represented as an ordered sequence of
// non-negative packet counts by age bucket, plus parallel lifetime-sent
// counters used to compute average buffer latency.
type DiscreteBuffer struct {
	cfg Config

	buff []int64 // buff[i] = packets that arrived i TTIs ago
	sent []int64 // sent[i] = lifetime count of packets sent from age bucket i

	partialPktBits float64

	step int

	histArrivPkts           []float64 // packets that arrived this TTI
	histSentPkts            []float64 // packets sent this TTI
	histBuffPkts            []float64 // sum(buff) recorded at the START of arrive_pkts
	histDroppBufferFullPkts []float64
	histDroppMaxLatPkts     []float64
}

// New creates a DiscreteBuffer. Returns a ConfigError if cfg.MaxLat < 2.
func New(cfg Config) (*DiscreteBuffer, error) {
	if cfg.MaxLat < 2 {
		return nil, fmt.Errorf("%w: max_lat must be >= 2, got %d", rerr.ConfigError, cfg.MaxLat)
	}
	return &DiscreteBuffer{
		cfg:  cfg,
		buff: make([]int64, cfg.MaxLat),
		sent: make([]int64, cfg.MaxLat),
	}, nil
}

// Reset returns the buffer to its just-constructed state.
func (b *DiscreteBuffer) Reset() {
	for i := range b.buff {
		b.buff[i] = 0
		b.sent[i] = 0
	}
	b.partialPktBits = 0
	b.step = 0
	b.histArrivPkts = nil
	b.histSentPkts = nil
	b.histBuffPkts = nil
	b.histDroppBufferFullPkts = nil
	b.histDroppMaxLatPkts = nil
}

// Step returns the number of TTIs that have completed (i.e. the number of
// Transmit calls so far).
func (b *DiscreteBuffer) Step() int {
	return b.step
}

func sumInt64(s []int64) int64 {
	var total int64
	for _, v := range s {
		total += v
	}
	return total
}

// ArrivePackets records n packets arriving in the current TTI. It records
// the pre-arrival occupancy (for the packet-loss-rate anchor, see
// PktLossRate), accounts for buffer-full drops, and adds the surviving
// packets to the freshest age bucket.
func (b *DiscreteBuffer) ArrivePackets(n int) {
	bitsInBuff := sumInt64(b.buff) * b.cfg.PktSize
	b.histBuffPkts = append(b.histBuffPkts, float64(sumInt64(b.buff)))

	overflow := int64(n)*b.cfg.PktSize + bitsInBuff - b.cfg.BufferSize
	if overflow < 0 {
		overflow = 0
	}
	droppedByFull := ceilDiv(overflow, b.cfg.PktSize)
	if droppedByFull > int64(n) {
		droppedByFull = int64(n)
	}

	b.histArrivPkts = append(b.histArrivPkts, float64(n))
	b.histDroppBufferFullPkts = append(b.histDroppBufferFullPkts, float64(droppedByFull))

	b.buff[0] += int64(n) - droppedByFull
}

// ceilDiv returns ceil(a/b) for non-negative a and positive b.
func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Transmit services up to throughput*TTI+carried-fractional-bits worth of
// packets from the oldest age bucket downward, then advances the TTI:
// records and clears the max-latency drop, shifts every bucket one age
// older, and increments the step counter.
func (b *DiscreteBuffer) Transmit(throughput float64) {
	budget := throughput*b.cfg.TTI + b.partialPktBits

	sentThisTTI := int64(0)
	maxLat := b.cfg.MaxLat
	for i := maxLat - 1; i >= 0; i-- {
		for b.buff[i] > 0 {
			if budget < float64(b.cfg.PktSize) {
				goto advance
			}
			budget -= float64(b.cfg.PktSize)
			b.buff[i]--
			b.sent[i]++
			sentThisTTI++
		}
	}
advance:
	b.partialPktBits = budget
	b.histSentPkts = append(b.histSentPkts, float64(sentThisTTI))

	b.advanceTTI()
}

// advanceTTI implements the __advance_TTI step: the oldest bucket's
// remaining count is a max-latency drop; a non-zero max-lat drop discards
// any carried partial-packet work; buckets shift one age older; the step
// counter increments.
func (b *DiscreteBuffer) advanceTTI() {
	maxLat := b.cfg.MaxLat
	droppedMaxLat := b.buff[maxLat-1]
	b.histDroppMaxLatPkts = append(b.histDroppMaxLatPkts, float64(droppedMaxLat))
	if droppedMaxLat > 0 {
		b.partialPktBits = 0
	}
	for i := maxLat - 1; i >= 1; i-- {
		b.buff[i] = b.buff[i-1]
	}
	b.buff[0] = 0
	b.step++
}

// PartialPktBits returns the fractional bits carried into the next TTI.
func (b *DiscreteBuffer) PartialPktBits() float64 {
	return b.partialPktBits
}

// BufferArray returns a copy of the current age-bucket counts, oldest-last
// mirrors construction order: index i holds packets that arrived i TTIs
// ago.
func (b *DiscreteBuffer) BufferArray() []int64 {
	out := make([]int64, len(b.buff))
	copy(out, b.buff)
	return out
}

// BufferedBits returns the bits currently queued in the buffer.
func (b *DiscreteBuffer) BufferedBits() float64 {
	return float64(sumInt64(b.buff) * b.cfg.PktSize)
}

// MaxLat returns the configured maximum latency in TTIs.
func (b *DiscreteBuffer) MaxLat() int {
	return b.cfg.MaxLat
}

// PktSize returns the configured fixed packet size in bits.
func (b *DiscreteBuffer) PktSize() int64 {
	return b.cfg.PktSize
}

// TTI returns the configured TTI in seconds.
func (b *DiscreteBuffer) TTI() float64 {
	return b.cfg.TTI
}

// BufferedPackets returns the number of packets currently queued.
func (b *DiscreteBuffer) BufferedPackets() int64 {
	return sumInt64(b.buff)
}

// BufferCapacityPkts returns the buffer's capacity in whole packets.
func (b *DiscreteBuffer) BufferCapacityPkts() int64 {
	return b.cfg.BufferSize / b.cfg.PktSize
}

// OldestBucketPkts returns buff[max_lat-1]: the packets that will be
// dropped as max-latency if not serviced this TTI.
func (b *DiscreteBuffer) OldestBucketPkts() int64 {
	return b.buff[b.cfg.MaxLat-1]
}

// PktsWaitedAtLeast returns the number of packets whose age is >= i TTIs,
// i.e. sum(buff[i:]).
func (b *DiscreteBuffer) PktsWaitedAtLeast(i int) int64 {
	if i < 0 {
		i = 0
	}
	var total int64
	for ; i < len(b.buff); i++ {
		total += b.buff[i]
	}
	return total
}

// DroppedPackets returns the packets dropped (buffer-full + max-latency)
// over the last w TTIs, with the same warm-up and clamping rules as
// DroppedBits.
func (b *DiscreteBuffer) DroppedPackets(w int) (float64, error) {
	bits, err := b.DroppedBits(w)
	if err != nil {
		return 0, err
	}
	return bits / float64(b.cfg.PktSize), nil
}

// BuffPktsAt returns hist_buff_pkts[idx], clamped to 0 when idx is out of
// range (before the buffer's history began).
func (b *DiscreteBuffer) BuffPktsAt(idx int) float64 {
	if idx < 0 || idx >= len(b.histBuffPkts) {
		return 0
	}
	return b.histBuffPkts[idx]
}

// BufferOccupancy returns the fraction [0,1] of BufferSize currently
// occupied. Per spec this is read after ArrivePackets but before Transmit
// within a TTI; callers that want the post-arrival/pre-transmit value
// should call it at that point in the pipeline.
func (b *DiscreteBuffer) BufferOccupancy() float64 {
	if b.cfg.BufferSize == 0 {
		return 0
	}
	return b.BufferedBits() / float64(b.cfg.BufferSize)
}

// window clamps w to b.step+1: the number of arrival entries recorded once
// the current TTI's ArrivePackets has run (b.step itself counts the
// completed Transmit calls).
func (b *DiscreteBuffer) window(w int) (int, error) {
	return history.ClampWindow(w, b.step)
}

// DroppedBits returns the bits dropped (buffer-full + max-latency) over the
// last w TTIs. The max-latency component is treated as zero until
// step >= MaxLat (warm-up), since no bucket has reached end-of-life yet.
func (b *DiscreteBuffer) DroppedBits(w int) (float64, error) {
	w, err := b.window(w)
	if err != nil {
		return 0, err
	}
	full := history.Sum(history.Tail(b.histDroppBufferFullPkts, w))
	var maxLat float64
	if b.step >= b.cfg.MaxLat {
		maxLat = history.Sum(history.Tail(b.histDroppMaxLatPkts, w))
	}
	return (full + maxLat) * float64(b.cfg.PktSize), nil
}

// ArrivedBits returns the bits that arrived over the last w TTIs.
func (b *DiscreteBuffer) ArrivedBits(w int) (float64, error) {
	w, err := b.window(w)
	if err != nil {
		return 0, err
	}
	return history.Sum(history.Tail(b.histArrivPkts, w)) * float64(b.cfg.PktSize), nil
}

// SentBits returns the bits sent over the last w TTIs.
func (b *DiscreteBuffer) SentBits(w int) (float64, error) {
	w, err := b.window(w)
	if err != nil {
		return 0, err
	}
	return history.Sum(history.Tail(b.histSentPkts, w)) * float64(b.cfg.PktSize), nil
}

// AvgBufferLatencyTTIs returns the lifetime mean of (age buckets weighted
// by packets sent from them), in TTIs. Returns 0 if no packet has ever been
// sent.
func (b *DiscreteBuffer) AvgBufferLatencyTTIs() float64 {
	var weighted, total float64
	for i, s := range b.sent {
		weighted += float64(i) * float64(s)
		total += float64(s)
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// AvgBufferLatencySeconds returns AvgBufferLatencyTTIs converted to
// seconds using the buffer's configured TTI.
func (b *DiscreteBuffer) AvgBufferLatencySeconds() float64 {
	return b.AvgBufferLatencyTTIs() * b.cfg.TTI
}

// PktLossRate returns dropped_bits(w) / (arrived_bits(w) +
// pkt_size*hist_buff_pkts[step-w]), anchoring the window's starting
// occupancy before any arrivals in the window. The index step-w is
// clamped to 0 when it would underflow (small step counts / warm-up);
// returns 0 when the denominator is zero.
func (b *DiscreteBuffer) PktLossRate(w int) (float64, error) {
	w, err := b.window(w)
	if err != nil {
		return 0, err
	}
	dropped, _ := b.DroppedBits(w)
	arrived, _ := b.ArrivedBits(w)

	anchorIdx := b.step - w
	var anchorPkts float64
	if anchorIdx >= 0 && anchorIdx < len(b.histBuffPkts) {
		anchorPkts = b.histBuffPkts[anchorIdx]
	}
	denominator := arrived + anchorPkts*float64(b.cfg.PktSize)
	if denominator == 0 {
		return 0, nil
	}
	return dropped / denominator, nil
}
