// Package simulation implements the top-level TTI driver: it derives the
// 5G numerology (TTI, sub-carrier width, RB bandwidth) from a single
// option, owns the basestations, and sequences arrive→schedule→transmit
// across all of them each tick.
package simulation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dgwcamk/radiosim/radio/basestation"
	"github.com/dgwcamk/radiosim/radio/intersched"
	"github.com/dgwcamk/radiosim/radio/rerr"
)

// Config configures a Simulation's 5G numerology. TTI = 2^-Option5G * 1ms,
// sub_carrier_width = 2^Option5G * 15kHz, rb_bandwidth = 12 *
// sub_carrier_width.
type Config struct {
	// Option5G selects the 5G numerology option, 0 through 4.
	Option5G int

	// Parallel fans the arrive/schedule/transmit phases of independent
	// basestations out across goroutines, with a barrier between phases.
	// Basestations share no mutable state, so this changes only wall-clock
	// behavior, never simulation semantics.
	Parallel bool
}

// AddBaseStationConfig configures a basestation added to a Simulation.
// Bandwidth and RBsPerRBG are converted into an RBG pool size using the
// simulation's derived rb_bandwidth: n_rbgs = floor(bandwidth/rb_bandwidth)
// / RBsPerRBG.
type AddBaseStationConfig struct {
	DisplayName string
	Bandwidth   float64 // Hz
	RBsPerRBG   int
	WindowMax   int
	Seed        int64
	Scheduler   intersched.Scheduler
}

// Simulation owns a set of basestations and drives them through the
// three-phase TTI pipeline. IDs are assigned by monotonically increasing
// integers, in basestation-add order.
type Simulation struct {
	option5G        int
	tti             float64
	subCarrierWidth float64
	rbBandwidth     float64
	parallel        bool

	step int

	nextBaseStationID int
	basestations      []*basestation.BaseStation
	baseStationIndex  map[int]*basestation.BaseStation
}

// New creates a Simulation. Returns a ConfigError if cfg.Option5G is
// outside [0,4].
func New(cfg Config) (*Simulation, error) {
	if cfg.Option5G < 0 || cfg.Option5G > 4 {
		return nil, fmt.Errorf("%w: option_5g must be 0-4, got %d", rerr.ConfigError, cfg.Option5G)
	}
	scale := 1 << uint(cfg.Option5G)
	tti := 1e-3 / float64(scale)
	subCarrierWidth := 15e3 * float64(scale)
	return &Simulation{
		option5G:         cfg.Option5G,
		tti:              tti,
		subCarrierWidth:  subCarrierWidth,
		rbBandwidth:      12 * subCarrierWidth,
		parallel:         cfg.Parallel,
		baseStationIndex: make(map[int]*basestation.BaseStation),
	}, nil
}

// Option5G returns the 5G numerology option the simulation was built with.
func (s *Simulation) Option5G() int { return s.option5G }

// TTI returns the derived transmission time interval in seconds.
func (s *Simulation) TTI() float64 { return s.tti }

// SubCarrierWidth returns the derived sub-carrier width in Hz.
func (s *Simulation) SubCarrierWidth() float64 { return s.subCarrierWidth }

// RBBandwidth returns the derived resource-block bandwidth in Hz.
func (s *Simulation) RBBandwidth() float64 { return s.rbBandwidth }

// Step returns the number of completed ticks.
func (s *Simulation) Step() int { return s.step }

// AddBaseStation creates a BaseStation with a monotonically assigned id,
// sizing its RBG pool from cfg.Bandwidth and cfg.RBsPerRBG using the
// simulation's derived rb_bandwidth.
func (s *Simulation) AddBaseStation(cfg AddBaseStationConfig) (*basestation.BaseStation, error) {
	if cfg.RBsPerRBG <= 0 {
		return nil, fmt.Errorf("%w: rbs_per_rbg must be positive, got %d", rerr.ConfigError, cfg.RBsPerRBG)
	}
	nRBs := int(cfg.Bandwidth / s.rbBandwidth)
	nRBGs := nRBs / cfg.RBsPerRBG

	id := s.nextBaseStationID
	bs, err := basestation.New(basestation.Config{
		ID:          id,
		DisplayName: cfg.DisplayName,
		TTI:         s.tti,
		RBBandwidth: s.rbBandwidth,
		RBsPerRBG:   cfg.RBsPerRBG,
		NumRBGs:     nRBGs,
		WindowMax:   cfg.WindowMax,
		Seed:        cfg.Seed,
	}, cfg.Scheduler)
	if err != nil {
		return nil, err
	}
	s.nextBaseStationID++
	s.basestations = append(s.basestations, bs)
	s.baseStationIndex[id] = bs
	return bs, nil
}

// BaseStation returns the basestation with the given id, and whether it
// exists.
func (s *Simulation) BaseStation(id int) (*basestation.BaseStation, bool) {
	bs, ok := s.baseStationIndex[id]
	return bs, ok
}

// BaseStations returns the simulation's basestations in add order.
func (s *Simulation) BaseStations() []*basestation.BaseStation {
	return s.basestations
}

// Tick runs one complete TTI: arrive_packets, schedule_rbgs, transmit, in
// that strict order across every basestation. Each phase completes for
// every basestation before the next begins, preserving the invariant
// that reward at step t is computed from post-transmit state.
func (s *Simulation) Tick(ctx context.Context) error {
	s.arrivePackets(ctx)
	if err := s.scheduleRBGs(ctx); err != nil {
		return err
	}
	if err := s.transmit(ctx); err != nil {
		return err
	}
	s.step++
	return nil
}

func (s *Simulation) arrivePackets(ctx context.Context) {
	if !s.parallel {
		for _, bs := range s.basestations {
			bs.ArrivePackets()
		}
		return
	}
	g, _ := errgroup.WithContext(ctx)
	for _, bs := range s.basestations {
		bs := bs
		g.Go(func() error {
			bs.ArrivePackets()
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Simulation) scheduleRBGs(ctx context.Context) error {
	if !s.parallel {
		for _, bs := range s.basestations {
			if err := bs.ScheduleRBGs(); err != nil {
				return err
			}
		}
		return nil
	}
	g, _ := errgroup.WithContext(ctx)
	for _, bs := range s.basestations {
		bs := bs
		g.Go(func() error { return bs.ScheduleRBGs() })
	}
	return g.Wait()
}

func (s *Simulation) transmit(ctx context.Context) error {
	if !s.parallel {
		for _, bs := range s.basestations {
			if err := bs.Transmit(); err != nil {
				return err
			}
		}
		return nil
	}
	g, _ := errgroup.WithContext(ctx)
	for _, bs := range s.basestations {
		bs := bs
		g.Go(func() error { return bs.Transmit() })
	}
	return g.Wait()
}

// Reset returns every owned basestation to its just-constructed state and
// resets the simulation's own step counter.
func (s *Simulation) Reset() {
	s.step = 0
	for _, bs := range s.basestations {
		bs.Reset()
	}
}
