package decay

import (
	"math"
	"strings"
	"testing"

	"github.com/danielpatrickdp/worldsim/internal/world"
)

func TestDecayMonotonic(t *testing.T) {
	cases := []struct {
		v, rate float64
	}{
		{0, 0},
		{0.5, 0.01},
		{0.005, 0.01},
		{1, 0.25},
		{0.3, 0},
	}
	for _, c := range cases {
		got := Decay(c.v, c.rate)
		if got > c.v {
			t.Fatalf("Decay(%v, %v) = %v increased", c.v, c.rate, got)
		}
		if got < 0 {
			t.Fatalf("Decay(%v, %v) = %v went negative", c.v, c.rate, got)
		}
	}
}

func TestDecayFloorsAtZero(t *testing.T) {
	if got := Decay(0.005, 0.01); got != 0 {
		t.Fatalf("expected floor at 0, got %v", got)
	}
}

func TestInvertThenDecayApproximatesIdentity(t *testing.T) {
	// Retrodiction is a linear approximation: Invert multiplies by (1+r)
	// while Decay subtracts r, so the round-trip error is r*(v*(1+r)-1)
	// scale, small for small r.
	const rate = 0.02
	for _, v := range []float64{0.1, 0.5, 0.9} {
		back := Decay(Invert(v, rate), rate)
		if math.Abs(back-v) > rate {
			t.Fatalf("round-trip %v -> %v drifted more than %v", v, back, rate)
		}
	}
}

func TestEngineAppliesToOverlaysAndLogs(t *testing.T) {
	st := world.New("run-decay")
	st.Overlays.Set(world.ChannelHope, 0.5)

	e := NewEngine(0.1)
	e.ApplyToOverlays(st)

	if v, _ := st.Overlays.Get(world.ChannelHope); math.Abs(v-0.4) > 1e-9 {
		t.Fatalf("hope after decay: got %v, want 0.4", v)
	}
	if len(st.EventLog) != len(world.CoreChannels()) {
		t.Fatalf("expected one audit line per core channel, got %d", len(st.EventLog))
	}
	if !strings.Contains(st.EventLog[0], "decay overlay") {
		t.Fatalf("unexpected audit line: %s", st.EventLog[0])
	}
}

func TestEngineCallSiteOverride(t *testing.T) {
	st := world.New("run-decay")
	st.Overlays.Set(world.ChannelHope, 0.5)

	e := NewEngine(0.01)
	e.ApplyToOverlays(st, 0.3)

	if v, _ := st.Overlays.Get(world.ChannelHope); math.Abs(v-0.2) > 1e-9 {
		t.Fatalf("override rate ignored: got %v, want 0.2", v)
	}
}

func TestEngineRegisteredVariables(t *testing.T) {
	st := world.New("run-decay")
	st.Variables.Set("tension", 0.4)
	st.Variables.Set("faction", "north")

	e := NewEngine(0.1, "tension", "faction", "missing")
	e.ApplyToVariables(st)

	if f, _ := st.Variables.GetFloat("tension"); math.Abs(f-0.3) > 1e-9 {
		t.Fatalf("tension after decay: got %v, want 0.3", f)
	}
	if s, _ := st.Variables.Get("faction"); s != "north" {
		t.Fatal("non-numeric variable should be untouched")
	}
}

func TestEngineDefaultRate(t *testing.T) {
	e := NewEngine(0)
	if e.Rate() != DefaultRate {
		t.Fatalf("expected default rate %v, got %v", DefaultRate, e.Rate())
	}
}
