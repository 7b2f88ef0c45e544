package gravity

import (
	"math"
	"testing"
)

func TestDefaultsFillUnsetFields(t *testing.T) {
	g := NewEWMACorrector(Config{})
	if g.Lambda() != DefaultConfig().Lambda {
		t.Fatalf("lambda default: got %v", g.Lambda())
	}
	if g.cfg.EWMASpan != DefaultConfig().EWMASpan {
		t.Fatalf("ewma span default: got %v", g.cfg.EWMASpan)
	}
}

func TestCorrectOpposesCausalTrend(t *testing.T) {
	g := NewEWMACorrector(Config{Lambda: 0.5, EWMASpan: 1})
	// Span 1 means the smoothed trend equals the latest delta.
	got := g.Correct("x", 0.4)
	if math.Abs(got-(-0.2)) > 1e-12 {
		t.Fatalf("correction: got %v, want -0.2", got)
	}
	got = g.Correct("x", -0.4)
	if got <= 0 {
		t.Fatalf("correction should oppose negative trend, got %v", got)
	}
}

func TestFirstObservationSeedsTrend(t *testing.T) {
	g := NewEWMACorrector(Config{Lambda: 1, EWMASpan: 9})
	// First sample seeds the EWMA rather than blending against zero.
	if got := g.Correct("x", 0.3); math.Abs(got-(-0.3)) > 1e-12 {
		t.Fatalf("first correction: got %v, want -0.3", got)
	}
}

func TestAdaptiveLambdaStaysBounded(t *testing.T) {
	g := NewEWMACorrector(Config{
		Lambda:               0.1,
		LearningRate:         0.9,
		EWMASpan:             1,
		EnableAdaptiveLambda: true,
		AdaptiveLambdaMin:    0.05,
		AdaptiveLambdaMax:    0.2,
	})
	for i := 0; i < 50; i++ {
		g.Correct("x", 10)
	}
	if g.Lambda() > 0.2 {
		t.Fatalf("lambda escaped max bound: %v", g.Lambda())
	}
	for i := 0; i < 50; i++ {
		g.Correct("x", 0)
	}
	if g.Lambda() < 0.05 {
		t.Fatalf("lambda escaped min bound: %v", g.Lambda())
	}
}

func TestWeightPruningDropsQuietVariables(t *testing.T) {
	g := NewEWMACorrector(Config{Lambda: 0.1, EWMASpan: 1, EnableWeightPruning: true})
	g.Correct("x", 1e-9)
	if _, tracked := g.trend["x"]; tracked {
		t.Fatal("near-zero trend should have been pruned")
	}
}
