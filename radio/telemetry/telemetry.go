// Package telemetry exposes per-basestation simulation metrics to
// Prometheus and records a high-resolution scheduler-latency histogram
// for offline analysis, mirroring the ambient observability stack the
// rest of this simulator's dependencies come from.
package telemetry

import (
	"strconv"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "radiosim"
	subsystem = "basestation"

	labelBaseStation = "basestation"
	labelSlice       = "slice"
)

// Collector holds all radiosim Prometheus metrics. One Collector is
// shared across every basestation in a simulation; per-basestation and
// per-slice series are distinguished by label.
type Collector struct {
	// Reward is the current TTI's reward for each basestation.
	Reward *prometheus.GaugeVec

	// CumulativeReward is the running total reward for each basestation.
	CumulativeReward *prometheus.GaugeVec

	// AllocatedRBGs is the number of RBGs granted to a slice this TTI.
	AllocatedRBGs *prometheus.GaugeVec

	// SentBits counts bits successfully transmitted out of a slice's
	// users' buffers.
	SentBits *prometheus.CounterVec

	// DroppedBits counts bits dropped (buffer-full or max-latency) from a
	// slice's users' buffers.
	DroppedBits *prometheus.CounterVec

	// SchedulerDuration observes the wall-clock time the inter-slice
	// scheduler took, per basestation.
	SchedulerDuration *prometheus.HistogramVec

	// schedulerLatencyHist is a higher-resolution side channel for
	// reporting exact scheduler-latency percentiles (hdrhistogram trades
	// Prometheus's fixed bucket boundaries for exact quantiles at the
	// cost of not being scrapeable), keyed by basestation id.
	schedulerLatencyHist map[int]*hdrhistogram.Histogram
}

// New creates a Collector and registers all its metrics against reg. If
// reg is nil, prometheus.DefaultRegisterer is used.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := newCollector()
	reg.MustRegister(
		c.Reward,
		c.CumulativeReward,
		c.AllocatedRBGs,
		c.SentBits,
		c.DroppedBits,
		c.SchedulerDuration,
	)
	return c
}

func newCollector() *Collector {
	bsLabels := []string{labelBaseStation}
	sliceLabels := []string{labelBaseStation, labelSlice}

	return &Collector{
		Reward: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reward",
			Help:      "QoS-violation reward for the most recently completed TTI.",
		}, bsLabels),

		CumulativeReward: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cumulative_reward",
			Help:      "Running sum of per-TTI reward since the last reset.",
		}, bsLabels),

		AllocatedRBGs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "slice",
			Name:      "allocated_rbgs",
			Help:      "Number of RBGs granted to a slice in the most recent TTI.",
		}, sliceLabels),

		SentBits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slice",
			Name:      "sent_bits_total",
			Help:      "Total bits transmitted from a slice's users' buffers.",
		}, sliceLabels),

		DroppedBits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slice",
			Name:      "dropped_bits_total",
			Help:      "Total bits dropped (buffer-full or max-latency) from a slice's users' buffers.",
		}, sliceLabels),

		SchedulerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scheduler_duration_seconds",
			Help:      "Wall-clock time the inter-slice scheduler took per TTI.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, bsLabels),

		schedulerLatencyHist: make(map[int]*hdrhistogram.Histogram),
	}
}

// ObserveSchedulerDuration records d for basestation id, both into the
// Prometheus histogram and the HDR side channel used for exact
// percentile reporting.
func (c *Collector) ObserveSchedulerDuration(basestationID int, d time.Duration) {
	label := basestationLabel(basestationID)
	c.SchedulerDuration.WithLabelValues(label).Observe(d.Seconds())

	h, ok := c.schedulerLatencyHist[basestationID]
	if !ok {
		h = hdrhistogram.New(1, 10_000_000_000, 3) // 1ns to 10s, 3 significant digits
		c.schedulerLatencyHist[basestationID] = h
	}
	h.RecordValue(d.Nanoseconds())
}

// SchedulerLatencyPercentile returns the p-th percentile (0-100) of
// recorded scheduler durations for basestation id, in seconds, and false
// if no duration has ever been recorded.
func (c *Collector) SchedulerLatencyPercentile(basestationID int, p float64) (float64, bool) {
	h, ok := c.schedulerLatencyHist[basestationID]
	if !ok || h.TotalCount() == 0 {
		return 0, false
	}
	return float64(h.ValueAtQuantile(p)) / 1e9, true
}

// SetReward records the current-TTI and cumulative reward for a
// basestation.
func (c *Collector) SetReward(basestationID int, reward, cumulative float64) {
	label := basestationLabel(basestationID)
	c.Reward.WithLabelValues(label).Set(reward)
	c.CumulativeReward.WithLabelValues(label).Set(cumulative)
}

// SetAllocatedRBGs records the RBG count granted to a slice this TTI.
func (c *Collector) SetAllocatedRBGs(basestationID, sliceID int, n int) {
	c.AllocatedRBGs.WithLabelValues(basestationLabel(basestationID), sliceLabel(sliceID)).Set(float64(n))
}

// AddSentBits increments the sent-bits counter for a slice.
func (c *Collector) AddSentBits(basestationID, sliceID int, bits float64) {
	if bits <= 0 {
		return
	}
	c.SentBits.WithLabelValues(basestationLabel(basestationID), sliceLabel(sliceID)).Add(bits)
}

// AddDroppedBits increments the dropped-bits counter for a slice.
func (c *Collector) AddDroppedBits(basestationID, sliceID int, bits float64) {
	if bits <= 0 {
		return
	}
	c.DroppedBits.WithLabelValues(basestationLabel(basestationID), sliceLabel(sliceID)).Add(bits)
}

func basestationLabel(id int) string {
	return strconv.Itoa(id)
}

func sliceLabel(id int) string {
	return strconv.Itoa(id)
}
