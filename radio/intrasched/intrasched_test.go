package intrasched

import (
	"math/rand"
	"testing"

	"github.com/dgwcamk/radiosim/radio/flow"
	"github.com/dgwcamk/radiosim/radio/rbg"
	"github.com/dgwcamk/radiosim/radio/user"
)

func newUsers(t *testing.T, n int) []*user.User {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	out := make([]*user.User, n)
	for i := 0; i < n; i++ {
		u, err := user.New(i, user.Config{
			MaxLat: 5, BufferSize: 1 << 20, PktSize: 1000,
			FlowType: flow.Poisson, FlowThroughput: 0, TTI: 0.001, WindowMax: 10,
		}, rng)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = u
	}
	return out
}

func TestRoundRobin_CyclesFairly(t *testing.T) {
	users := newUsers(t, 3)
	rbgs := rbg.New(3, 1, 180000)
	sched := NewRoundRobin()

	sched.Schedule(rbgs, users)
	for i, u := range users {
		if u.NumRBGs() != 1 {
			t.Fatalf("user %d got %d RBGs, want 1", i, u.NumRBGs())
		}
	}
}

func TestRoundRobin_PersistsOffsetAcrossTTIs(t *testing.T) {
	users := newUsers(t, 3)
	oneRBG := rbg.New(1, 1, 180000)
	sched := NewRoundRobin()

	sched.Schedule(oneRBG, users) // user 0 gets it
	if users[0].NumRBGs() != 1 || users[1].NumRBGs() != 0 {
		t.Fatalf("expected user 0 to receive the RBG first")
	}

	sched.Schedule(oneRBG, users) // user 1 should get it next TTI
	if users[1].NumRBGs() != 1 {
		t.Fatalf("expected user 1 to receive the RBG second")
	}
	if users[0].NumRBGs() != 0 {
		t.Fatalf("expected user 0's prior allocation to be cleared")
	}
}

func TestRoundRobin_EmptyUserList(t *testing.T) {
	sched := NewRoundRobin()
	sched.Schedule(rbg.New(2, 1, 1), nil) // must not panic
}
