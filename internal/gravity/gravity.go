// Package gravity defines the residual-correction contract consumed by the
// stepping engine, plus a default EWMA-based corrector. The engine depends
// only on the Corrector interface; the numerical update rule here is a
// reference implementation, not normative.
package gravity

import "math"

// #region config

// Config is the parameter contract for a gravity corrector. Any zero field
// falls back to the engine default via DefaultConfig / withDefaults.
type Config struct {
	Lambda                   float64 `yaml:"lambda"`
	LearningRate             float64 `yaml:"learning_rate"`
	EWMASpan                 int     `yaml:"ewma_span"`
	EnableAdaptiveLambda     bool    `yaml:"enable_adaptive_lambda"`
	AdaptiveLambdaMin        float64 `yaml:"adaptive_lambda_min"`
	AdaptiveLambdaMax        float64 `yaml:"adaptive_lambda_max"`
	EnableWeightPruning      bool    `yaml:"enable_weight_pruning"`
	EnableShadowModelTrigger bool    `yaml:"enable_shadow_model_trigger"`
	ShadowVarianceThreshold  float64 `yaml:"shadow_model_variance_threshold"`
}

// DefaultConfig returns the standard corrector parameters.
func DefaultConfig() Config {
	return Config{
		Lambda:                  0.1,
		LearningRate:            0.05,
		EWMASpan:                5,
		AdaptiveLambdaMin:       0.01,
		AdaptiveLambdaMax:       0.5,
		ShadowVarianceThreshold: 0.6,
	}
}

// withDefaults fills unset zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Lambda == 0 {
		c.Lambda = d.Lambda
	}
	if c.LearningRate == 0 {
		c.LearningRate = d.LearningRate
	}
	if c.EWMASpan == 0 {
		c.EWMASpan = d.EWMASpan
	}
	if c.AdaptiveLambdaMin == 0 {
		c.AdaptiveLambdaMin = d.AdaptiveLambdaMin
	}
	if c.AdaptiveLambdaMax == 0 {
		c.AdaptiveLambdaMax = d.AdaptiveLambdaMax
	}
	if c.ShadowVarianceThreshold == 0 {
		c.ShadowVarianceThreshold = d.ShadowVarianceThreshold
	}
	return c
}

// #endregion config

// #region corrector

// Corrector computes a residual correction delta for one variable given the
// causal delta produced by the rule engine this turn.
type Corrector interface {
	Correct(variable string, causalDelta float64) float64
	Lambda() float64
}

// #endregion corrector

// #region ewma-corrector

// pruneEpsilon is the per-variable weight floor below which pruning drops
// the tracked trend entirely.
const pruneEpsilon = 1e-6

// EWMACorrector tracks an exponentially-weighted moving average of the
// causal delta trend per variable and pulls against it, scaled by lambda.
// Lambda is nudged by the learning rate within the adaptive bounds when
// adaptive mode is enabled.
type EWMACorrector struct {
	cfg    Config
	lambda float64
	alpha  float64
	trend  map[string]float64
	seen   map[string]bool
}

// NewEWMACorrector builds the default corrector from the config contract.
func NewEWMACorrector(cfg Config) *EWMACorrector {
	cfg = cfg.withDefaults()
	return &EWMACorrector{
		cfg:    cfg,
		lambda: cfg.Lambda,
		alpha:  2.0 / (float64(cfg.EWMASpan) + 1.0),
		trend:  make(map[string]float64),
		seen:   make(map[string]bool),
	}
}

// Correct returns the gravity delta for one variable: the negated
// EWMA-smoothed residual trend scaled by the current lambda.
func (g *EWMACorrector) Correct(variable string, causalDelta float64) float64 {
	prev := g.trend[variable]
	var smoothed float64
	if !g.seen[variable] {
		smoothed = causalDelta
		g.seen[variable] = true
	} else {
		smoothed = g.alpha*causalDelta + (1-g.alpha)*prev
	}
	g.trend[variable] = smoothed

	if g.cfg.EnableWeightPruning && math.Abs(smoothed) < pruneEpsilon {
		delete(g.trend, variable)
		delete(g.seen, variable)
		return 0
	}

	correction := -g.lambda * smoothed

	if g.cfg.EnableAdaptiveLambda {
		// Larger residual trends push lambda up, quiet ones let it relax.
		g.lambda += g.cfg.LearningRate * (math.Abs(smoothed) - g.lambda)
		if g.lambda < g.cfg.AdaptiveLambdaMin {
			g.lambda = g.cfg.AdaptiveLambdaMin
		}
		if g.lambda > g.cfg.AdaptiveLambdaMax {
			g.lambda = g.cfg.AdaptiveLambdaMax
		}
	}

	return correction
}

// Lambda returns the current correction strength.
func (g *EWMACorrector) Lambda() float64 {
	return g.lambda
}

// #endregion ewma-corrector
