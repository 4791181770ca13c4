package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(mfs) != 0 {
		// Gauges/counters with no observations yet don't appear until a
		// label combination is touched; registration alone shouldn't error.
		t.Logf("gathered %d metric families before any observation", len(mfs))
	}
	c.SetReward(0, -0.5, -1.5)
	mfs, err = reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected at least one metric family after SetReward")
	}
}

func TestObserveSchedulerDuration_TracksPercentiles(t *testing.T) {
	c := New(prometheus.NewRegistry())
	for i := 0; i < 100; i++ {
		c.ObserveSchedulerDuration(0, time.Duration(i+1)*time.Microsecond)
	}
	p50, ok := c.SchedulerLatencyPercentile(0, 50)
	if !ok {
		t.Fatal("expected a recorded percentile")
	}
	if p50 <= 0 {
		t.Fatalf("expected positive p50, got %v", p50)
	}
}

func TestSchedulerLatencyPercentile_FalseWithoutObservations(t *testing.T) {
	c := New(prometheus.NewRegistry())
	if _, ok := c.SchedulerLatencyPercentile(0, 50); ok {
		t.Fatal("expected ok=false with no observations recorded")
	}
}

func TestAddSentBits_IgnoresNonPositive(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.AddSentBits(0, 0, -5)
	c.AddSentBits(0, 0, 0)
	c.AddSentBits(0, 0, 1000)
	got := testutil.ToFloat64(c.SentBits.WithLabelValues("0", "0"))
	if got != 1000 {
		t.Fatalf("expected counter value 1000, got %v", got)
	}
}
