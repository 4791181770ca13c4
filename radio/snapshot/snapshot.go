// Package snapshot serializes a Simulation's state to an opaque blob a
// separate plotting or analysis pipeline can read back without replaying
// any TTIs. The wire format is plain JSON, optionally gzip-compressed;
// neither is prescribed by the simulator's domain model, so this package
// treats them as the serialization boundary rather than exposing them on
// the core radio/* types.
package snapshot

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgwcamk/radiosim/radio/basestation"
	"github.com/dgwcamk/radiosim/radio/rerr"
	"github.com/dgwcamk/radiosim/radio/simulation"
	"github.com/dgwcamk/radiosim/radio/slice"
	"github.com/dgwcamk/radiosim/radio/user"
)

// User is the persisted view of a single user.
type User struct {
	ID               int     `json:"id"`
	MaxLat           int     `json:"max_lat"`
	PktSize          int64   `json:"pkt_size"`
	NumRBGs          int     `json:"num_rbgs"`
	BufferOccupancy  float64 `json:"buffer_occupancy"`
	AvgBufferLatency float64 `json:"avg_buffer_latency"`
	Step             int     `json:"step"`
}

// Slice is the persisted view of a single slice, including every user it
// owns and the per-TTI history arrays the plotting pipeline reads.
type Slice struct {
	ID           int                `json:"id"`
	Type         string             `json:"type"`
	Requirements map[string]float64 `json:"requirements"`
	Step         int                `json:"step"`
	Users        []User             `json:"users"`

	HistNumRBGs             []float64 `json:"hist_num_rbgs"`
	HistAggregateThroughput []float64 `json:"hist_aggregate_throughput"`
}

// BaseStation is the persisted view of a single basestation, including
// every slice it owns and its own per-TTI history arrays.
type BaseStation struct {
	ID               int     `json:"id"`
	DisplayName      string  `json:"display_name"`
	TTI              float64 `json:"tti"`
	Step             int     `json:"step"`
	Window           int     `json:"window"`
	CumulativeReward float64 `json:"cumulative_reward"`
	Slices           []Slice `json:"slices"`

	HistNumAllocatedRBGs        []float64 `json:"hist_num_allocated_rbgs"`
	HistSchedulerElapsedSeconds []float64 `json:"hist_scheduler_elapsed_seconds"`
	HistReward                  []float64 `json:"hist_reward"`
	HistCumulativeReward         []float64 `json:"hist_cumulative_reward"`
}

// Snapshot is the persisted view of an entire Simulation.
type Snapshot struct {
	Option5G        int     `json:"option_5g"`
	TTI             float64 `json:"tti"`
	SubCarrierWidth float64 `json:"sub_carrier_width"`
	RBBandwidth     float64 `json:"rb_bandwidth"`
	Step            int     `json:"step"`
	BaseStations    []BaseStation `json:"basestations"`
}

// Of builds a Snapshot from the current state of sim. The result is a deep
// copy: mutating sim afterwards does not affect the returned Snapshot.
func Of(sim *simulation.Simulation) Snapshot {
	snap := Snapshot{
		Option5G:        sim.Option5G(),
		TTI:             sim.TTI(),
		SubCarrierWidth: sim.SubCarrierWidth(),
		RBBandwidth:     sim.RBBandwidth(),
		Step:            sim.Step(),
	}
	for _, bs := range sim.BaseStations() {
		snap.BaseStations = append(snap.BaseStations, ofBaseStation(bs))
	}
	return snap
}

func ofBaseStation(bs *basestation.BaseStation) BaseStation {
	out := BaseStation{
		ID:                          bs.ID(),
		DisplayName:                 bs.DisplayName(),
		TTI:                         bs.TTI(),
		Step:                        bs.Step(),
		Window:                      bs.Window(),
		CumulativeReward:            bs.CumulativeReward(),
		HistSchedulerElapsedSeconds: bs.SchedulerElapsed(),
	}
	for _, s := range bs.Slices() {
		out.Slices = append(out.Slices, ofSlice(s))
	}
	return out
}

func ofSlice(s *slice.Slice) Slice {
	out := Slice{
		ID:           s.ID(),
		Type:         string(s.Type()),
		Requirements: s.Requirements(),
		Step:         s.Step(),
	}
	for _, u := range s.Users() {
		out.Users = append(out.Users, ofUser(u))
	}
	return out
}

func ofUser(u *user.User) User {
	return User{
		ID:               u.ID(),
		MaxLat:           u.MaxLat(),
		PktSize:          u.PktSize(),
		NumRBGs:          u.NumRBGs(),
		BufferOccupancy:  u.BufferOccupancy(),
		AvgBufferLatency: u.AvgBufferLatency(),
		Step:             u.Step(),
	}
}

// Write encodes snap as JSON to w.
func Write(w io.Writer, snap Snapshot) error {
	return json.NewEncoder(w).Encode(snap)
}

// Read decodes a Snapshot previously written with Write.
func Read(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decoding snapshot: %v", rerr.InvalidArgument, err)
	}
	return snap, nil
}

// SaveFile writes snap to path as JSON, gzip-compressing it when path ends
// in ".gz".
func SaveFile(path string, snap Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating snapshot file: %v", rerr.ConfigError, err)
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".gz") {
		return Write(f, snap)
	}
	gw := gzip.NewWriter(f)
	if err := Write(gw, snap); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

// LoadFile reads a Snapshot from path, transparently gunzipping it when
// path ends in ".gz".
func LoadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: opening snapshot file: %v", rerr.ConfigError, err)
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".gz") {
		return Read(f)
	}
	gr, err := gzip.NewReader(f)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: opening gzip snapshot: %v", rerr.ConfigError, err)
	}
	defer gr.Close()
	return Read(gr)
}
