package intersched

import (
	"math/rand"
	"testing"
	"time"

	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/slice"
)

func TestOptimalHeuristic_MeetsThroughputFloor(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := newTestSlice(t, 0, slice.EMBB, map[string]float64{"throughput": 500}, 1, rng)
	slices := []*slice.Slice{s}
	rbgs := rbg.New(10, 1, 180000)

	h := NewOptimalHeuristic(180000, 1, 10)
	if err := h.Schedule(slices, rbgs); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(s.RBGs()) == 0 {
		t.Fatal("expected at least one RBG granted to satisfy the throughput floor")
	}
}

func TestOptimalHeuristic_ZeroRequirementsGrantsNothingWithoutUseAllResources(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := newTestSlice(t, 0, slice.BE, nil, 1, rng)
	slices := []*slice.Slice{s}
	rbgs := rbg.New(4, 1, 180000)

	h := NewOptimalHeuristic(180000, 1, 10)
	if err := h.Schedule(slices, rbgs); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(s.RBGs()) != 0 {
		t.Fatalf("expected no allocation when no requirement demands RBGs, got %d", len(s.RBGs()))
	}
}

func TestOptimalHeuristic_UseAllResourcesDistributesResidual(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := newTestSlice(t, 0, slice.BE, nil, 1, rng)
	slices := []*slice.Slice{s}
	rbgs := rbg.New(4, 1, 180000)

	h := NewOptimalHeuristic(180000, 1, 10)
	h.UseAllResources = true
	if err := h.Schedule(slices, rbgs); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(s.RBGs()) != 4 {
		t.Fatalf("expected UseAllResources to hand out all 4 RBGs, got %d", len(s.RBGs()))
	}
}

func TestOptimalHeuristic_OverDemandScalesDownProportionally(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s1 := newTestSlice(t, 0, slice.EMBB, map[string]float64{"throughput": 1e9}, 1, rng)
	s2 := newTestSlice(t, 1, slice.EMBB, map[string]float64{"throughput": 1e9}, 1, rng)
	slices := []*slice.Slice{s1, s2}
	rbgs := rbg.New(4, 1, 180000)

	h := NewOptimalHeuristic(180000, 1, 10)
	if err := h.Schedule(slices, rbgs); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	total := len(s1.RBGs()) + len(s2.RBGs())
	if total != 4 {
		t.Fatalf("expected exactly the RBG pool size (4) allocated under scale-down, got %d", total)
	}
}

func TestOptimalHeuristic_ZeroSpectralEfficiencyTerminates(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := newTestSlice(t, 0, slice.EMBB, map[string]float64{"throughput": 500}, 2, rng)
	for _, u := range s.Users() {
		u.SetSpectralEfficiency(0)
	}
	slices := []*slice.Slice{s}
	rbgs := rbg.New(4, 1, 180000)

	h := NewOptimalHeuristic(180000, 1, 10)
	done := make(chan error, 1)
	go func() { done <- h.Schedule(slices, rbgs) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Schedule: %v", err)
		}
		total := len(s.RBGs())
		if total != 4 {
			t.Fatalf("expected all 4 RBGs allocated to the sole infeasible slice, got %d", total)
		}
	case <-time.After(time.Second):
		t.Fatal("Schedule hung on zero-SE users with a positive throughput requirement")
	}
}

func TestOptimalHeuristic_WindowAdvancesAndResets(t *testing.T) {
	h := NewOptimalHeuristic(180000, 1, 5)
	rng := rand.New(rand.NewSource(1))
	s := newTestSlice(t, 0, slice.BE, nil, 1, rng)
	rbgs := rbg.New(2, 1, 180000)

	for i := 0; i < 3; i++ {
		if err := h.Schedule([]*slice.Slice{s}, rbgs); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}
	if h.Window() != 4 {
		t.Fatalf("expected window to advance to 4 after 3 schedules, got %d", h.Window())
	}
	h.Reset()
	if h.Window() != 1 {
		t.Fatalf("expected Reset to return window to 1, got %d", h.Window())
	}
}
