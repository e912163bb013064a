// Package linalg contains the iterative solver stack for the tracer
// transport system: a stabilized bi-conjugate-gradient solver, sequential
// and overlapping-Schwarz operators, ILU(0) based preconditioners, and a
// composite solver configured through a small property tree.
package linalg

import "github.com/spf13/cast"

// PropertyTree is a loose-typed configuration tree keyed by dotted paths
// (e.g. "preconditioner.type"). Lookups coerce the stored value to the
// requested type and fall back to the given default when the key is absent
// or not coercible.
type PropertyTree struct {
	entries map[string]interface{}
}

// NewPropertyTree returns an empty tree.
func NewPropertyTree() *PropertyTree {
	return &PropertyTree{entries: make(map[string]interface{})}
}

// Put stores a value under a dotted path, replacing any previous value.
func (t *PropertyTree) Put(key string, value interface{}) {
	t.entries[key] = value
}

// Has reports whether a key is present.
func (t *PropertyTree) Has(key string) bool {
	_, ok := t.entries[key]
	return ok
}

// GetString returns the value at key coerced to a string, or def.
func (t *PropertyTree) GetString(key, def string) string {
	v, ok := t.entries[key]
	if !ok {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return s
}

// GetInt returns the value at key coerced to an int, or def.
func (t *PropertyTree) GetInt(key string, def int) int {
	v, ok := t.entries[key]
	if !ok {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

// GetFloat64 returns the value at key coerced to a float64, or def.
func (t *PropertyTree) GetFloat64(key string, def float64) float64 {
	v, ok := t.entries[key]
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// GetBool returns the value at key coerced to a bool, or def.
func (t *PropertyTree) GetBool(key string, def bool) bool {
	v, ok := t.entries[key]
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}
