package engine

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/worldsim/internal/decay"
	"github.com/danielpatrickdp/worldsim/internal/rules"
	"github.com/danielpatrickdp/worldsim/internal/shadow"
	"github.com/danielpatrickdp/worldsim/internal/world"
)

// recordingApplier captures the hope value it saw and emits fixed deltas.
type recordingApplier struct {
	hopeSeen []float64
	deltas   map[string]float64
	fired    []string
}

func (r *recordingApplier) Apply(st *world.WorldState, active []rules.Rule) (map[string]float64, []string) {
	v, _ := st.Overlays.Get(world.ChannelHope)
	r.hopeSeen = append(r.hopeSeen, v)
	out := make(map[string]float64, len(r.deltas))
	for k, d := range r.deltas {
		cur, _ := st.Variables.GetFloat(k)
		st.Variables.Set(k, cur+d)
		out[k] = d
	}
	return out, r.fired
}

// fixedCorrector always returns the same gravity delta.
type fixedCorrector struct{ delta float64 }

func (f fixedCorrector) Correct(string, float64) float64 { return f.delta }
func (f fixedCorrector) Lambda() float64                 { return 0 }

func makeMonitor(t *testing.T, window int, vars ...string) *shadow.Monitor {
	t.Helper()
	m, err := shadow.NewMonitor(shadow.Config{
		Enabled:           true,
		Threshold:         0.5,
		WindowSteps:       window,
		CriticalVariables: vars,
	}, nil)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	return m
}

func TestSimulateForwardValidatesBeforeAnyTurn(t *testing.T) {
	o := New(DefaultConfig(), nil, nil, nil, nil, nil, nil)

	st := world.New("run-x")
	if _, err := o.SimulateForward(st, 0, ModeSummary); err == nil {
		t.Fatal("expected error for non-positive turns")
	}

	st.RunID = ""
	if _, err := o.SimulateForward(st, 2, ModeSummary); err == nil {
		t.Fatal("expected validation error before any turn")
	}
	if st.Turn != 0 {
		t.Fatal("no turn should have executed on invalid state")
	}
}

func TestDecayRunsBeforeRules(t *testing.T) {
	app := &recordingApplier{}
	o := New(Config{}, decay.NewEngine(0.1), rules.NewRegistry(), app, nil, nil, nil)

	st := world.New("run-order")
	st.Overlays.Set(world.ChannelHope, 0.5)

	if _, err := o.SimulateForward(st, 1, ModeSummary); err != nil {
		t.Fatalf("SimulateForward: %v", err)
	}
	if len(app.hopeSeen) != 1 || math.Abs(app.hopeSeen[0]-0.4) > 1e-9 {
		t.Fatalf("rule engine should see post-decay hope 0.4, saw %v", app.hopeSeen)
	}
}

func TestGravityDisabledPassesThrough(t *testing.T) {
	app := &recordingApplier{deltas: map[string]float64{"tension": 0.2}}
	o := New(Config{GravityEnabled: false}, nil, rules.NewRegistry(), app, fixedCorrector{delta: -0.1}, nil, nil)

	st := world.New("run-nograv")
	res, err := o.SimulateForward(st, 1, ModeSummary)
	if err != nil {
		t.Fatalf("SimulateForward: %v", err)
	}
	if len(res[0].GravityDeltas) != 0 {
		t.Fatalf("gravity disabled must produce no gravity deltas: %v", res[0].GravityDeltas)
	}
	if f, _ := st.Variables.GetFloat("tension"); math.Abs(f-0.2) > 1e-9 {
		t.Fatalf("causal delta should pass through unmodified, got %v", f)
	}
}

func TestGravityCombinesIntoFinalValue(t *testing.T) {
	app := &recordingApplier{deltas: map[string]float64{"tension": 0.2}}
	o := New(Config{GravityEnabled: true}, nil, rules.NewRegistry(), app, fixedCorrector{delta: -0.05}, nil, nil)

	st := world.New("run-grav")
	res, err := o.SimulateForward(st, 1, ModeSummary)
	if err != nil {
		t.Fatalf("SimulateForward: %v", err)
	}
	if d := res[0].GravityDeltas["tension"]; math.Abs(d-(-0.05)) > 1e-9 {
		t.Fatalf("gravity delta: got %v, want -0.05", d)
	}
	if f, _ := st.Variables.GetFloat("tension"); math.Abs(f-0.15) > 1e-9 {
		t.Fatalf("final value should combine causal and gravity deltas, got %v", f)
	}
}

func TestShadowTriggerSurfacedNotFatal(t *testing.T) {
	app := &recordingApplier{deltas: map[string]float64{"tension": 0.001}}
	o := New(Config{GravityEnabled: true}, nil, rules.NewRegistry(), app, fixedCorrector{delta: -0.5},
		makeMonitor(t, 1, "tension"), nil)

	st := world.New("run-shadow")
	res, err := o.SimulateForward(st, 3, ModeSummary)
	if err != nil {
		t.Fatalf("SimulateForward: %v", err)
	}
	if !res[0].ShadowTriggered {
		t.Fatal("expected shadow trigger to surface in the turn result")
	}
	if len(res) != 3 {
		t.Fatal("trigger must not abort the run")
	}
	if res[0].ShadowVariables[0] != "tension" {
		t.Fatalf("unexpected problem list: %v", res[0].ShadowVariables)
	}
}

func TestFullModeCarriesSnapshotAndFiredRules(t *testing.T) {
	app := &recordingApplier{fired: []string{"r-1"}}
	o := New(Config{}, nil, rules.NewRegistry(), app, nil, nil, nil)

	st := world.New("run-full")
	full, err := o.SimulateForward(st, 1, ModeFull)
	if err != nil {
		t.Fatalf("SimulateForward full: %v", err)
	}
	if full[0].State == nil || len(full[0].FiredRules) != 1 {
		t.Fatalf("full mode should carry state snapshot and fired rules: %+v", full[0])
	}

	st2 := world.New("run-summary")
	summary, err := o.SimulateForward(st2, 1, ModeSummary)
	if err != nil {
		t.Fatalf("SimulateForward summary: %v", err)
	}
	if summary[0].State != nil || summary[0].FiredRules != nil {
		t.Fatal("summary mode must omit state snapshot and fired rules")
	}
}

func TestTurnsAdvanceAndStateMutatesInPlace(t *testing.T) {
	o := New(Config{}, decay.NewEngine(0.01), nil, &recordingApplier{}, nil, nil, nil)

	st := world.New("run-adv")
	res, err := o.SimulateForward(st, 4, ModeSummary)
	if err != nil {
		t.Fatalf("SimulateForward: %v", err)
	}
	if st.Turn != 4 {
		t.Fatalf("state should advance in place to turn 4, got %d", st.Turn)
	}
	for i, r := range res {
		if r.Turn != i {
			t.Fatalf("result %d carries turn %d", i, r.Turn)
		}
	}
}

func TestRetrodictInvertsDecay(t *testing.T) {
	o := New(Config{}, decay.NewEngine(0.1), nil, nil, nil, nil, nil)

	st := world.New("run-retro")
	st.Overlays.Set(world.ChannelHope, 0.5)

	res, err := o.Retrodict(st, 2)
	if err != nil {
		t.Fatalf("Retrodict: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(res))
	}
	if math.Abs(res[0].Overlays[world.ChannelHope]-0.55) > 1e-9 {
		t.Fatalf("first prior: got %v, want 0.55", res[0].Overlays[world.ChannelHope])
	}
	if math.Abs(res[0].Deltas[world.ChannelHope]-0.05) > 1e-9 {
		t.Fatalf("first delta: got %v, want 0.05", res[0].Deltas[world.ChannelHope])
	}
	// Second step compounds on the first prior.
	if math.Abs(res[1].Overlays[world.ChannelHope]-0.605) > 1e-9 {
		t.Fatalf("second prior: got %v, want 0.605", res[1].Overlays[world.ChannelHope])
	}
	// Retrodiction must not touch the live state.
	if v, _ := st.Overlays.Get(world.ChannelHope); v != 0.5 {
		t.Fatalf("retrodiction mutated state: %v", v)
	}
}

func TestRetrodictThenDecayApproximatesOriginal(t *testing.T) {
	rate := 0.05
	o := New(Config{}, decay.NewEngine(rate), nil, nil, nil, nil, nil)

	st := world.New("run-approx")
	st.Overlays.Set(world.ChannelHope, 0.42)

	res, err := o.Retrodict(st, 1)
	if err != nil {
		t.Fatalf("Retrodict: %v", err)
	}
	back := decay.Decay(res[0].Overlays[world.ChannelHope], rate)
	if math.Abs(back-0.42) > rate {
		t.Fatalf("round-trip drifted beyond linear-approximation error: %v", back)
	}
}
