package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgwcamk/radiosim/radio/flow"
	"github.com/dgwcamk/radiosim/radio/intersched"
	"github.com/dgwcamk/radiosim/radio/intrasched"
	"github.com/dgwcamk/radiosim/radio/simulation"
	"github.com/dgwcamk/radiosim/radio/slice"
	"github.com/dgwcamk/radiosim/radio/user"
)

func buildSimulation(t *testing.T) *simulation.Simulation {
	t.Helper()
	sim, err := simulation.New(simulation.Config{Option5G: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bs, err := sim.AddBaseStation(simulation.AddBaseStationConfig{
		DisplayName: "bs0",
		Bandwidth:   10 * sim.RBBandwidth(),
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
		FlowType: flow.Poisson, FlowThroughput: 500, TTI: sim.TTI(), WindowMax: 10,
	})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	u.SetSpectralEfficiency(1.0)
	return sim
}

func TestOf_CapturesBaseStationsSlicesUsers(t *testing.T) {
	sim := buildSimulation(t)
	snap := Of(sim)
	if len(snap.BaseStations) != 1 {
		t.Fatalf("expected 1 basestation, got %d", len(snap.BaseStations))
	}
	if len(snap.BaseStations[0].Slices) != 1 {
		t.Fatalf("expected 1 slice, got %d", len(snap.BaseStations[0].Slices))
	}
	if len(snap.BaseStations[0].Slices[0].Users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(snap.BaseStations[0].Slices[0].Users))
	}
}

func TestWriteRead_RoundTrips(t *testing.T) {
	sim := buildSimulation(t)
	snap := Of(sim)

	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.RBBandwidth != snap.RBBandwidth {
		t.Fatalf("expected rb bandwidth %v, got %v", snap.RBBandwidth, got.RBBandwidth)
	}
	if len(got.BaseStations) != len(snap.BaseStations) {
		t.Fatalf("expected %d basestations, got %d", len(snap.BaseStations), len(got.BaseStations))
	}
}

func TestSaveLoadFile_PlainJSON(t *testing.T) {
	sim := buildSimulation(t)
	snap := Of(sim)
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := SaveFile(path, snap); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Step != snap.Step {
		t.Fatalf("expected step %d, got %d", snap.Step, got.Step)
	}
}

func TestSaveLoadFile_Gzip(t *testing.T) {
	sim := buildSimulation(t)
	for i := 0; i < 2; i++ {
		sim.Tick(nil)
		for _, bs := range sim.BaseStations() {
			for _, sl := range bs.Slices() {
				for _, u := range sl.Users() {
					u.SetSpectralEfficiency(1.0)
				}
			}
		}
	}
	snap := Of(sim)
	path := filepath.Join(t.TempDir(), "snap.json.gz")
	if err := SaveFile(path, snap); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	plain, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if bytes.Contains(plain, []byte("basestations")) {
		t.Fatal("expected gzip-compressed output, found plaintext JSON field name")
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.BaseStations[0].Step != snap.BaseStations[0].Step {
		t.Fatalf("expected basestation step %d, got %d", snap.BaseStations[0].Step, got.BaseStations[0].Step)
	}
}

func TestRead_InvalidJSONFails(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not json")))
	if err == nil {
		t.Fatal("expected an error decoding invalid JSON")
	}
}
