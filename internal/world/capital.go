package world

import "fmt"

// #region default-assets

// AssetCash is excluded from total exposure.
const AssetCash = "cash"

// DefaultAssets lists the four named default exposures (cash is separate).
func DefaultAssets() []string {
	return []string{"equities", "bonds", "commodities", "reserves"}
}

// #endregion default-assets

// #region capital-struct

// CapitalExposure holds named non-negative scalar exposures. Negative writes
// are clamped to zero and reported back to the caller as a warning.
type CapitalExposure struct {
	Exposures map[string]float64 `json:"exposures"`
}

// NewCapital returns exposures with the default assets and cash zeroed.
func NewCapital() *CapitalExposure {
	c := &CapitalExposure{Exposures: make(map[string]float64, 8)}
	for _, name := range DefaultAssets() {
		c.Exposures[name] = 0
	}
	c.Exposures[AssetCash] = 0
	return c
}

// #endregion capital-struct

// #region accessors

// Get returns the exposure for an asset and whether it exists.
func (c *CapitalExposure) Get(asset string) (float64, bool) {
	v, ok := c.Exposures[asset]
	return v, ok
}

// Set writes an exposure. Negative values are clamped to zero; the returned
// warning is non-empty when clamping occurred. Unknown assets are created.
func (c *CapitalExposure) Set(asset string, v float64) (warning string) {
	if c.Exposures == nil {
		c.Exposures = make(map[string]float64)
	}
	if v < 0 {
		warning = fmt.Sprintf("capital %s: negative exposure %v clamped to 0", asset, v)
		v = 0
	}
	c.Exposures[asset] = v
	return warning
}

// TotalExposure sums every asset except cash.
func (c *CapitalExposure) TotalExposure() float64 {
	var total float64
	for asset, v := range c.Exposures {
		if asset == AssetCash {
			continue
		}
		total += v
	}
	return total
}

// Snapshot returns a copy of all exposures.
func (c *CapitalExposure) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(c.Exposures))
	for k, v := range c.Exposures {
		out[k] = v
	}
	return out
}

// Clone deep-copies the exposures.
func (c *CapitalExposure) Clone() *CapitalExposure {
	return &CapitalExposure{Exposures: c.Snapshot()}
}

// Validate checks that every exposure is non-negative.
func (c *CapitalExposure) Validate() error {
	for asset, v := range c.Exposures {
		if v < 0 {
			return fmt.Errorf("capital: asset %q exposure %v is negative", asset, v)
		}
	}
	return nil
}

// #endregion accessors
