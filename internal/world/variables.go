package world

// #region variables

// Variables is an open, arbitrarily-keyed bag of simulation variables.
// Values may be numeric or anything else JSON-representable; the bag
// round-trips losslessly through a plain map.
type Variables map[string]any

// NewVariables returns an empty bag.
func NewVariables() Variables {
	return make(Variables)
}

// Get returns a variable and whether it exists.
func (v Variables) Get(key string) (any, bool) {
	val, ok := v[key]
	return val, ok
}

// GetFloat returns a numeric variable as float64. Non-numeric or missing
// variables report ok=false.
func (v Variables) GetFloat(key string) (float64, bool) {
	switch x := v[key].(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// Set writes a variable.
func (v Variables) Set(key string, val any) {
	v[key] = val
}

// Delete removes a variable.
func (v Variables) Delete(key string) {
	delete(v, key)
}

// Has reports whether a variable exists.
func (v Variables) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// ToMap returns the bag as a plain map (shared values, same shape the bag
// was built from).
func (v Variables) ToMap() map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Clone deep-copies the bag, descending into nested maps and slices.
func (v Variables) Clone() Variables {
	c := make(Variables, len(v))
	for k, val := range v {
		c[k] = deepCopyValue(val)
	}
	return c
}

// #endregion variables

// #region deep-copy

func deepCopyValue(val any) any {
	switch x := val.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, inner := range x {
			m[k] = deepCopyValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, inner := range x {
			s[i] = deepCopyValue(inner)
		}
		return s
	case []float64:
		return append([]float64(nil), x...)
	case []string:
		return append([]string(nil), x...)
	default:
		return x
	}
}

// #endregion deep-copy
