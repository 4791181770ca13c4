package buffer

import (
	"errors"
	"testing"

	"github.com/dgwcamk/radiosim/radio/rerr"
)

func TestNew_RejectsSmallMaxLat(t *testing.T) {
	_, err := New(Config{MaxLat: 1, BufferSize: 1000, PktSize: 1000, TTI: 0.001})
	if !errors.Is(err, rerr.ConfigError) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

// TestMaxLatencyDrop mirrors S1: with MaxLat=3 and SE=0 throughout, a single
// packet arriving in the first TTI and never served is dropped once it has
// aged through every bucket (after exactly MaxLat unserved TTIs), and the
// buffer is empty from that point on.
func TestMaxLatencyDrop(t *testing.T) {
	b, err := New(Config{MaxLat: 3, BufferSize: 10000, PktSize: 1000, TTI: 0.001})
	if err != nil {
		t.Fatal(err)
	}

	b.ArrivePackets(1)
	b.Transmit(0) // step 0->1
	b.Transmit(0) // step 1->2
	b.Transmit(0) // step 2->3: packet has aged through buckets 0,1,2 unserved

	want := []float64{0, 0, 1}
	got := b.histDroppMaxLatPkts
	if len(got) != len(want) {
		t.Fatalf("hist_dropp_max_lat_pkts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hist_dropp_max_lat_pkts = %v, want %v", got, want)
		}
	}

	for _, n := range b.BufferArray() {
		if n != 0 {
			t.Fatalf("expected empty buffer after drop, got %v", b.BufferArray())
		}
	}

	b.Transmit(0) // an extra idle TTI: no further drops once buffer is empty
	if last := b.histDroppMaxLatPkts[len(b.histDroppMaxLatPkts)-1]; last != 0 {
		t.Fatalf("expected no further drop on empty buffer, got %v", last)
	}
}

// TestPartialBitConservation mirrors S2: a constant 750-bits/TTI grant
// accumulates fractional packet-bits across TTIs until a full packet (1000
// bits) can be sent, carrying the exact remainder forward.
func TestPartialBitConservation(t *testing.T) {
	b, err := New(Config{MaxLat: 5, BufferSize: 10000, PktSize: 1000, TTI: 0.001})
	if err != nil {
		t.Fatal(err)
	}

	b.ArrivePackets(1)

	b.Transmit(750000) // budget = 750 bits/TTI; not enough for one packet yet
	if b.PartialPktBits() != 750 {
		t.Fatalf("partial_pkt_bits after step 0 = %v, want 750", b.PartialPktBits())
	}
	if sent := b.histSentPkts[len(b.histSentPkts)-1]; sent != 0 {
		t.Fatalf("hist_sent_pkts[0] = %v, want 0", sent)
	}

	b.Transmit(750000) // budget = 750 + 750 = 1500 >= 1000: one packet sent
	if sent := b.histSentPkts[len(b.histSentPkts)-1]; sent != 1 {
		t.Fatalf("hist_sent_pkts[1] = %v, want 1", sent)
	}
	if b.PartialPktBits() != 500 {
		t.Fatalf("partial_pkt_bits after step 1 = %v, want 500", b.PartialPktBits())
	}
}

func TestArrivePackets_BufferFullDrop(t *testing.T) {
	b, err := New(Config{MaxLat: 5, BufferSize: 2000, PktSize: 1000, TTI: 0.001})
	if err != nil {
		t.Fatal(err)
	}

	b.ArrivePackets(5) // only room for 2 packets; 3 must be dropped as buffer-full
	if got := b.BufferedBits(); got != 2000 {
		t.Fatalf("BufferedBits() = %v, want 2000", got)
	}
	dropped := b.histDroppBufferFullPkts[len(b.histDroppBufferFullPkts)-1]
	if dropped != 3 {
		t.Fatalf("hist_dropp_buffer_full_pkts = %v, want 3", dropped)
	}
}

func TestWindow_ClampsToAvailableHistory(t *testing.T) {
	b, err := New(Config{MaxLat: 5, BufferSize: 100000, PktSize: 1000, TTI: 0.001})
	if err != nil {
		t.Fatal(err)
	}
	b.ArrivePackets(1)
	b.Transmit(1e9)

	arrived, err := b.ArrivedBits(100) // far larger than the 1 completed TTI
	if err != nil {
		t.Fatal(err)
	}
	if arrived != 1000 {
		t.Fatalf("ArrivedBits(100) = %v, want 1000 (clamped to available history)", arrived)
	}

	if _, err := b.ArrivedBits(0); !errors.Is(err, rerr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument for w=0, got %v", err)
	}
}

func TestBitConservation_ArrivedEqualsSentPlusDropped(t *testing.T) {
	b, err := New(Config{MaxLat: 3, BufferSize: 5000, PktSize: 1000, TTI: 0.001})
	if err != nil {
		t.Fatal(err)
	}

	b.ArrivePackets(4) // buffer_size allows 5 pkts, so none dropped as full yet
	b.Transmit(1000000)
	b.ArrivePackets(0)
	b.Transmit(1000000)
	b.ArrivePackets(0)
	b.Transmit(1000000)

	arrived, _ := b.ArrivedBits(3)
	sent, _ := b.SentBits(3)
	dropped, _ := b.DroppedBits(3)
	buffered := b.BufferedBits()

	if arrived != sent+dropped+buffered {
		t.Fatalf("conservation violated: arrived=%v sent=%v dropped=%v buffered=%v", arrived, sent, dropped, buffered)
	}
}

// TestPktLossRate mirrors S6: over a window where dropped bits are 700 and
// arrived bits plus the window's starting occupancy total 7000, the loss
// rate is 700/7000 = 0.10.
func TestPktLossRate(t *testing.T) {
	b, err := New(Config{MaxLat: 10, BufferSize: 6300, PktSize: 100, TTI: 0.001})
	if err != nil {
		t.Fatal(err)
	}

	// Seed 20 packets (2000 bits) already resident before the measured
	// window starts; this is the window's starting occupancy.
	b.ArrivePackets(20)
	b.Transmit(0)

	// Measured window: 5 TTIs of 10 arrivals each (5000 bits), never
	// transmitting. Occupancy grows 20, 30, 40, 50, 60 packets; the last
	// arrival overflows the 63-packet buffer by 7 packets (700 bits).
	for i := 0; i < 5; i++ {
		b.ArrivePackets(10)
		b.Transmit(0)
	}

	rate, err := b.PktLossRate(5)
	if err != nil {
		t.Fatal(err)
	}
	if rate != 0.1 {
		t.Fatalf("PktLossRate() = %v, want 0.1", rate)
	}
}

func TestReset(t *testing.T) {
	b, err := New(Config{MaxLat: 3, BufferSize: 10000, PktSize: 1000, TTI: 0.001})
	if err != nil {
		t.Fatal(err)
	}
	b.ArrivePackets(3)
	b.Transmit(500)
	b.Reset()

	if b.Step() != 0 {
		t.Fatalf("Step() after Reset = %d, want 0", b.Step())
	}
	if b.BufferedBits() != 0 {
		t.Fatalf("BufferedBits() after Reset = %v, want 0", b.BufferedBits())
	}
	if b.PartialPktBits() != 0 {
		t.Fatalf("PartialPktBits() after Reset = %v, want 0", b.PartialPktBits())
	}
}
