package engine

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/worldsim/internal/rules"
	"github.com/danielpatrickdp/worldsim/internal/world"
)

func TestThresholdApplierFiresOnTagMean(t *testing.T) {
	st := world.New("run-app")
	st.Overlays.Set(world.ChannelHope, 0.8)
	st.Overlays.Set(world.ChannelTrust, 0.4)

	active := []rules.Rule{
		{
			ID:        "hope-feeds-tension",
			Tags:      []string{world.ChannelHope, world.ChannelTrust}, // mean 0.6
			Threshold: 0.6,
			Enabled:   true,
			Effect:    map[string]any{"tension": 0.25},
		},
		{
			ID:        "never-fires",
			Tags:      []string{world.ChannelDespair}, // 0.0
			Threshold: 0.5,
			Enabled:   true,
			Effect:    map[string]any{"tension": 99.0},
		},
	}

	causal, fired := ThresholdApplier{}.Apply(st, active)
	if len(fired) != 1 || fired[0] != "hope-feeds-tension" {
		t.Fatalf("expected only the first rule to fire, got %v", fired)
	}
	if math.Abs(causal["tension"]-0.25) > 1e-9 {
		t.Fatalf("causal delta: got %v", causal["tension"])
	}
	if f, _ := st.Variables.GetFloat("tension"); math.Abs(f-0.25) > 1e-9 {
		t.Fatalf("variable not mutated: %v", f)
	}
}

func TestThresholdApplierRoutesEffects(t *testing.T) {
	st := world.New("run-route")
	st.Overlays.Set(world.ChannelHope, 1)

	active := []rules.Rule{{
		ID:        "multi-effect",
		Tags:      []string{world.ChannelHope},
		Threshold: 0.5,
		Enabled:   true,
		Effect: map[string]any{
			world.ChannelDespair: 0.3,
			"capital:equities":   2.0,
			"pressure":           0.1,
			"note":               "not numeric",
		},
	}}

	causal, fired := ThresholdApplier{}.Apply(st, active)
	if len(fired) != 1 {
		t.Fatalf("expected rule to fire, got %v", fired)
	}
	if v, _ := st.Overlays.Get(world.ChannelDespair); math.Abs(v-0.3) > 1e-9 {
		t.Fatalf("overlay effect: got %v", v)
	}
	if v, _ := st.Capital.Get("equities"); math.Abs(v-2.0) > 1e-9 {
		t.Fatalf("capital effect: got %v", v)
	}
	if f, _ := st.Variables.GetFloat("pressure"); math.Abs(f-0.1) > 1e-9 {
		t.Fatalf("variable effect: got %v", f)
	}
	if _, ok := causal["note"]; ok {
		t.Fatal("non-numeric effect should be skipped")
	}
}

func TestThresholdApplierNoTagsNeverFires(t *testing.T) {
	st := world.New("run-notags")
	_, fired := ThresholdApplier{}.Apply(st, []rules.Rule{{ID: "bare", Threshold: 0, Enabled: true}})
	if len(fired) != 0 {
		t.Fatalf("tagless rule must not fire, got %v", fired)
	}
}

func TestDefaultTaggerRegimes(t *testing.T) {
	cases := []struct {
		name     string
		overlays map[string]float64
		want     string
	}{
		{"collapse", map[string]float64{world.ChannelDespair: 0.8, world.ChannelHope: 0.2}, RegimeCollapseRisk},
		{"rage", map[string]float64{world.ChannelRage: 0.7}, RegimeRageSpiral},
		{"exhaustion", map[string]float64{world.ChannelFatigue: 0.8}, RegimeExhaustion},
		{"hope", map[string]float64{world.ChannelHope: 0.7, world.ChannelDespair: 0.1}, RegimeHopeRising},
		{"drift", map[string]float64{}, RegimeStableDrift},
		{"hope outweighs despair", map[string]float64{world.ChannelDespair: 0.7, world.ChannelHope: 0.9}, RegimeHopeRising},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := (DefaultTagger{}).Tag(c.overlays); got != c.want {
				t.Fatalf("Tag(%v) = %q, want %q", c.overlays, got, c.want)
			}
		})
	}
}

func TestDefaultAnnotatorLabels(t *testing.T) {
	st := world.New("run-ann")
	st.Overlays.Set(world.ChannelTrust, 1)

	res := &TurnResult{}
	conf, label := DefaultAnnotator{}.Annotate(res, st)
	if label != "high" || conf != 1 {
		t.Fatalf("calm high-trust turn: got %v %q", conf, label)
	}

	st.Overlays.Set(world.ChannelTrust, 0)
	res = &TurnResult{CausalDeltas: map[string]float64{"x": 2}}
	conf, label = DefaultAnnotator{}.Annotate(res, st)
	if label != "low" {
		t.Fatalf("volatile zero-trust turn: got %v %q", conf, label)
	}
}
