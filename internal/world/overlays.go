package world

import (
	"fmt"
	"sort"
)

// #region core-channels

// Core overlay channels, always present on every state.
const (
	ChannelHope    = "hope"
	ChannelDespair = "despair"
	ChannelRage    = "rage"
	ChannelFatigue = "fatigue"
	ChannelTrust   = "trust"
)

// CoreChannels lists the five always-present overlay channels in canonical order.
func CoreChannels() []string {
	return []string{ChannelHope, ChannelDespair, ChannelRage, ChannelFatigue, ChannelTrust}
}

// #endregion core-channels

// #region channel-meta

// ChannelMeta describes a dynamic overlay channel.
type ChannelMeta struct {
	Category    string `json:"category"`
	Parent      string `json:"parent,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority"`
}

// Relationship is a directed typed edge from one channel to another.
type Relationship struct {
	Type     string  `json:"type"`
	Target   string  `json:"target"`
	Strength float64 `json:"strength"`
}

// #endregion channel-meta

// #region overlays-struct

// SymbolicOverlays holds the named scalar channels of the narrative state.
// Core channels are always present; dynamic channels carry metadata and
// optional directed relationships. Every write clamps into [0, 1].
type SymbolicOverlays struct {
	Values        map[string]float64        `json:"values"`
	Meta          map[string]ChannelMeta    `json:"meta,omitempty"`
	Relationships map[string][]Relationship `json:"relationships,omitempty"`
}

// NewOverlays returns overlays with the five core channels zeroed.
func NewOverlays() *SymbolicOverlays {
	o := &SymbolicOverlays{
		Values:        make(map[string]float64, 8),
		Meta:          make(map[string]ChannelMeta),
		Relationships: make(map[string][]Relationship),
	}
	for _, name := range CoreChannels() {
		o.Values[name] = 0
	}
	return o
}

// #endregion overlays-struct

// #region accessors

// Get returns the value of a channel and whether it exists.
func (o *SymbolicOverlays) Get(name string) (float64, bool) {
	v, ok := o.Values[name]
	return v, ok
}

// Set writes a channel value, clamping into [0, 1]. Out-of-range values are
// clamped silently, not rejected. Writing an unknown name creates a dynamic
// channel with empty metadata.
func (o *SymbolicOverlays) Set(name string, v float64) {
	o.ensureMaps()
	if _, known := o.Values[name]; !known {
		if _, hasMeta := o.Meta[name]; !hasMeta {
			o.Meta[name] = ChannelMeta{Category: "dynamic"}
		}
	}
	o.Values[name] = clamp01(v)
}

// AddChannel registers a dynamic channel with explicit metadata.
func (o *SymbolicOverlays) AddChannel(name string, value float64, meta ChannelMeta) {
	o.ensureMaps()
	o.Meta[name] = meta
	o.Values[name] = clamp01(value)
}

// Relate records a directed relationship from one channel to another.
// Both endpoints must exist.
func (o *SymbolicOverlays) Relate(from, relType, target string, strength float64) error {
	o.ensureMaps()
	if _, ok := o.Values[from]; !ok {
		return fmt.Errorf("relate: unknown channel %q", from)
	}
	if _, ok := o.Values[target]; !ok {
		return fmt.Errorf("relate: unknown channel %q", target)
	}
	o.Relationships[from] = append(o.Relationships[from], Relationship{
		Type:     relType,
		Target:   target,
		Strength: strength,
	})
	return nil
}

// #endregion accessors

// #region hierarchy

// Children returns the names of channels whose Parent is the given channel.
func (o *SymbolicOverlays) Children(name string) []string {
	var out []string
	for child, meta := range o.Meta {
		if meta.Parent == name {
			out = append(out, child)
		}
	}
	sort.Strings(out)
	return out
}

// DominantSiblings returns channels sharing the given channel's parent whose
// value is at least threshold, sorted descending by value. The channel itself
// is excluded.
func (o *SymbolicOverlays) DominantSiblings(name string, threshold float64) []string {
	parent := o.Meta[name].Parent
	var out []string
	for sib, meta := range o.Meta {
		if sib == name || meta.Parent != parent {
			continue
		}
		if o.Values[sib] >= threshold {
			out = append(out, sib)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if o.Values[out[i]] != o.Values[out[j]] {
			return o.Values[out[i]] > o.Values[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// #endregion hierarchy

// #region snapshot

// Snapshot returns a copy of all channel values.
func (o *SymbolicOverlays) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(o.Values))
	for k, v := range o.Values {
		out[k] = v
	}
	return out
}

// Clone deep-copies the overlays.
func (o *SymbolicOverlays) Clone() *SymbolicOverlays {
	c := &SymbolicOverlays{
		Values:        make(map[string]float64, len(o.Values)),
		Meta:          make(map[string]ChannelMeta, len(o.Meta)),
		Relationships: make(map[string][]Relationship, len(o.Relationships)),
	}
	for k, v := range o.Values {
		c.Values[k] = v
	}
	for k, v := range o.Meta {
		c.Meta[k] = v
	}
	for k, rels := range o.Relationships {
		c.Relationships[k] = append([]Relationship(nil), rels...)
	}
	return c
}

// Validate checks that core channels exist and every value is in [0, 1].
// Values can only escape range if a caller bypasses the accessors (e.g.
// hand-built JSON).
func (o *SymbolicOverlays) Validate() error {
	for _, name := range CoreChannels() {
		if _, ok := o.Values[name]; !ok {
			return fmt.Errorf("overlays: missing core channel %q", name)
		}
	}
	for name, v := range o.Values {
		if v < 0 || v > 1 {
			return fmt.Errorf("overlays: channel %q value %v out of [0,1]", name, v)
		}
	}
	return nil
}

// #endregion snapshot

// #region helpers

// ensureMaps backfills nil maps left behind by a bare JSON unmarshal.
func (o *SymbolicOverlays) ensureMaps() {
	if o.Values == nil {
		o.Values = make(map[string]float64)
	}
	if o.Meta == nil {
		o.Meta = make(map[string]ChannelMeta)
	}
	if o.Relationships == nil {
		o.Relationships = make(map[string][]Relationship)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
