// Package flow implements the per-TTI packet arrival process attached to
// each user's DiscreteBuffer.
package flow

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/dgwcamk/radiosim/radio/rerr"
)

// Type identifies which stochastic process generates packet counts.
type Type string

// Poisson is the only flow type specified; unknown types are a ConfigError.
const Poisson Type = "poisson"

// Config configures a Flow.
type Config struct {
	// Type selects the generation process. Only Poisson is recognized.
	Type Type

	// PktSize is the fixed packet size in bits.
	PktSize int64

	// Throughput is the mean arrival rate in bits/s.
	Throughput float64
}

// Flow generates the packet count arriving at a user's buffer each TTI.
// It keeps fractional bits across TTIs so the long-run arrival rate is
// exact despite integer packet quantization.
type Flow struct {
	typ            Type
	pktSize        int64
	throughput     float64
	rng            *rand.Rand
	partialPktBits float64
}

// New creates a Flow. rng must not be nil; it is the basestation's seeded
// generator, shared across all flows at that basestation so a fixed seed
// reproduces an entire run deterministically. Returns a ConfigError if
// cfg.Type is not recognized.
func New(cfg Config, rng *rand.Rand) (*Flow, error) {
	if cfg.Type != Poisson {
		return nil, fmt.Errorf("%w: unknown flow type %q", rerr.ConfigError, cfg.Type)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: flow requires a random generator", rerr.ConfigError)
	}
	return &Flow{
		typ:        cfg.Type,
		pktSize:    cfg.PktSize,
		throughput: cfg.Throughput,
		rng:        rng,
	}, nil
}

// SetThroughput changes the mean arrival rate in bits/s, effective on the
// next GeneratePackets call. Useful for simulating load steps mid-run.
func (f *Flow) SetThroughput(throughput float64) {
	f.throughput = throughput
}

// Throughput returns the currently configured mean arrival rate in bits/s.
func (f *Flow) Throughput() float64 {
	return f.throughput
}

// GeneratePackets draws the packet count arriving in the current TTI.
// bits ~ Poisson(throughput) * tti plus the fractional remainder carried
// from the previous TTI; emits floor(bits/pkt_size) packets and stores the
// new remainder.
func (f *Flow) GeneratePackets(tti float64) int {
	bits := poisson(f.rng, f.throughput)*tti + f.partialPktBits
	pkts := int(bits / float64(f.pktSize))
	f.partialPktBits = bits - float64(pkts)*float64(f.pktSize)
	return pkts
}

// poisson draws a Poisson(mean) sample via Knuth's multiplicative
// algorithm for mean <= 500. Above that, exp(-mean) would underflow, so
// the sample comes from the normal approximation N(mean, mean), rounded
// and clamped at 0. mean <= 0 always yields 0. This is implemented directly
// rather than pulled from a stats library: it is ~10 lines, needs to run
// against the caller-supplied *rand.Rand for reproducibility under a fixed
// seed, and no pack example wires a statistics/distribution library for
// this purpose.
func poisson(rng *rand.Rand, mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	if mean > 500 {
		k := math.Round(mean + math.Sqrt(mean)*rng.NormFloat64())
		return math.Max(k, 0)
	}
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			break
		}
	}
	return float64(k - 1)
}
