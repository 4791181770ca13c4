package intersched

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/rerr"
	"github.com/dgwcamk/radiosim/radio/slice"
)

func TestOptimal_NoSolverFails(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := newTestSlice(t, 0, slice.BE, nil, 1, rng)
	o := NewOptimal(nil)
	err := o.Schedule([]*slice.Slice{s}, rbg.New(2, 1, 180000))
	if !errors.Is(err, rerr.ModelError) {
		t.Fatalf("expected ModelError with no solver configured, got %v", err)
	}
}

func TestOptimal_AppliesSolverResult(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s1 := newTestSlice(t, 0, slice.BE, nil, 1, rng)
	s2 := newTestSlice(t, 1, slice.BE, nil, 1, rng)
	solve := func(slices []*slice.Slice, nRBGs int) ([]int, error) {
		return []int{1, nRBGs - 1}, nil
	}
	o := NewOptimal(solve)
	rbgs := rbg.New(3, 1, 180000)
	if err := o.Schedule([]*slice.Slice{s1, s2}, rbgs); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(s1.RBGs()) != 1 || len(s2.RBGs()) != 2 {
		t.Fatalf("expected [1,2] RBGs, got [%d,%d]", len(s1.RBGs()), len(s2.RBGs()))
	}
}

func TestOptimal_SolverErrorWrapsModelError(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := newTestSlice(t, 0, slice.BE, nil, 1, rng)
	solve := func(slices []*slice.Slice, nRBGs int) ([]int, error) {
		return nil, errors.New("infeasible")
	}
	o := NewOptimal(solve)
	err := o.Schedule([]*slice.Slice{s}, rbg.New(2, 1, 180000))
	if !errors.Is(err, rerr.ModelError) {
		t.Fatalf("expected ModelError, got %v", err)
	}
}
