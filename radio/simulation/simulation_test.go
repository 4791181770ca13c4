package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/dgwcamk/radiosim/radio/flow"
	"github.com/dgwcamk/radiosim/radio/intersched"
	"github.com/dgwcamk/radiosim/radio/intrasched"
	"github.com/dgwcamk/radiosim/radio/rerr"
	"github.com/dgwcamk/radiosim/radio/slice"
	"github.com/dgwcamk/radiosim/radio/user"
)

func TestNew_RejectsInvalidOption(t *testing.T) {
	_, err := New(Config{Option5G: 5})
	if !errors.Is(err, rerr.ConfigError) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestNew_DerivesNumerology(t *testing.T) {
	s, err := New(Config{Option5G: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.TTI() != 0.5e-3 {
		t.Fatalf("expected TTI 0.5ms, got %v", s.TTI())
	}
	if s.SubCarrierWidth() != 30e3 {
		t.Fatalf("expected sub-carrier width 30kHz, got %v", s.SubCarrierWidth())
	}
	if s.RBBandwidth() != 360e3 {
		t.Fatalf("expected rb bandwidth 360kHz, got %v", s.RBBandwidth())
	}
}

func TestAddBaseStation_SizesRBGPoolFromBandwidth(t *testing.T) {
	s, _ := New(Config{Option5G: 0})
	bs, err := s.AddBaseStation(AddBaseStationConfig{
		DisplayName: "bs0",
		Bandwidth:   10 * s.RBBandwidth(),
		RBsPerRBG:   2,
		WindowMax:   10,
		Scheduler:   intersched.NewRoundRobin(),
	})
	if err != nil {
		t.Fatalf("AddBaseStation: %v", err)
	}
	if len(bs.RBGs()) != 5 {
		t.Fatalf("expected 5 RBGs (10 RBs / 2 per RBG), got %d", len(bs.RBGs()))
	}
}

func TestAddBaseStation_AssignsMonotonicIDs(t *testing.T) {
	s, _ := New(Config{Option5G: 0})
	bs1, _ := s.AddBaseStation(AddBaseStationConfig{Bandwidth: 10 * s.RBBandwidth(), RBsPerRBG: 1, Scheduler: intersched.NewRoundRobin()})
	bs2, _ := s.AddBaseStation(AddBaseStationConfig{Bandwidth: 10 * s.RBBandwidth(), RBsPerRBG: 1, Scheduler: intersched.NewRoundRobin()})
	if bs1.ID() != 0 || bs2.ID() != 1 {
		t.Fatalf("expected ids 0,1, got %d,%d", bs1.ID(), bs2.ID())
	}
}

func buildSingleUserSimulation(t *testing.T, parallel bool) (*Simulation, *user.User) {
	t.Helper()
	s, err := New(Config{Option5G: 0, Parallel: parallel})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bs, err := s.AddBaseStation(AddBaseStationConfig{
		DisplayName: "bs0",
		Bandwidth:   10 * s.RBBandwidth(),
		RBsPerRBG:   1,
		WindowMax:   10,
		Scheduler:   intersched.NewRoundRobin(),
	})
	if err != nil {
		t.Fatalf("AddBaseStation: %v", err)
	}
	sl, err := bs.AddSlice(slice.Config{Type: slice.BE}, intrasched.NewRoundRobin())
	if err != nil {
		t.Fatalf("AddSlice: %v", err)
	}
	u, err := bs.AddUser(sl.ID(), user.Config{
		MaxLat: 3, BufferSize: 100000, PktSize: 1000,
		FlowType: flow.Poisson, FlowThroughput: 500, TTI: s.TTI(), WindowMax: 10,
	})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	u.SetSpectralEfficiency(1.0)
	return s, u
}

func TestTick_AdvancesStepSequentially(t *testing.T) {
	s, u := buildSingleUserSimulation(t, false)
	for i := 0; i < 3; i++ {
		if err := s.Tick(context.Background()); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		u.SetSpectralEfficiency(1.0)
	}
	if s.Step() != 3 {
		t.Fatalf("expected step 3, got %d", s.Step())
	}
}

func TestTick_AdvancesStepInParallelMode(t *testing.T) {
	s, u := buildSingleUserSimulation(t, true)
	for i := 0; i < 3; i++ {
		if err := s.Tick(context.Background()); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		u.SetSpectralEfficiency(1.0)
	}
	if s.Step() != 3 {
		t.Fatalf("expected step 3, got %d", s.Step())
	}
}

func TestReset_ClearsSimulationAndBaseStationStep(t *testing.T) {
	s, u := buildSingleUserSimulation(t, false)
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	_ = u
	s.Reset()
	if s.Step() != 0 {
		t.Fatalf("expected step 0 after Reset, got %d", s.Step())
	}
	bs, _ := s.BaseStation(0)
	if bs.Step() != 0 {
		t.Fatalf("expected basestation step 0 after Reset, got %d", bs.Step())
	}
}
