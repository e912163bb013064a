// Package tracer implements passive-tracer transport over a reservoir grid:
// per-species concentration fields, a transport Jacobian whose sparsity
// follows the grid connectivity, and sequential or partition-distributed
// iterative solves of the resulting linear systems.
package tracer

import (
	"fmt"
	"sort"
)

// Phase is the fluid phase a tracer travels with.
type Phase uint8

const (
	WaterPhase Phase = iota
	OilPhase
	GasPhase
)

func (p Phase) String() string {
	switch p {
	case WaterPhase:
		return "water"
	case OilPhase:
		return "oil"
	case GasPhase:
		return "gas"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// DepthTable is a piecewise-linear correlation from depth to initial tracer
// concentration, the TVDPF-style initialization source of an input deck.
// Evaluation clamps outside the tabulated depth range.
type DepthTable struct {
	depths         []float64
	concentrations []float64
}

// NewDepthTable builds a correlation from parallel depth/concentration
// columns. Depths must be strictly ascending and at least two rows long.
func NewDepthTable(depths, concentrations []float64) (*DepthTable, error) {
	if len(depths) != len(concentrations) {
		return nil, fmt.Errorf("tracer: depth table has %d depths but %d concentrations",
			len(depths), len(concentrations))
	}
	if len(depths) < 2 {
		return nil, fmt.Errorf("tracer: depth table needs at least two rows, got %d", len(depths))
	}
	for i := 1; i < len(depths); i++ {
		if depths[i] <= depths[i-1] {
			return nil, fmt.Errorf("tracer: depth table rows must be strictly ascending, row %d is not", i)
		}
	}
	return &DepthTable{
		depths:         append([]float64(nil), depths...),
		concentrations: append([]float64(nil), concentrations...),
	}, nil
}

// Evaluate returns the concentration at a depth.
func (t *DepthTable) Evaluate(depth float64) float64 {
	n := len(t.depths)
	if depth <= t.depths[0] {
		return t.concentrations[0]
	}
	if depth >= t.depths[n-1] {
		return t.concentrations[n-1]
	}
	hi := sort.SearchFloat64s(t.depths, depth)
	lo := hi - 1
	w := (depth - t.depths[lo]) / (t.depths[hi] - t.depths[lo])
	return t.concentrations[lo] + w*(t.concentrations[hi]-t.concentrations[lo])
}

// Species describes one tracer of the input deck. Exactly one of
// FreeConcentration and DepthCorrelation must be set unless the run is
// restarted from persisted state.
type Species struct {
	// Name identifies the tracer in the deck.
	Name string

	// OutputFile is the name the tracer's field is reported under; defaults
	// to Name when empty.
	OutputFile string

	// Phase the tracer travels with.
	Phase Phase

	// FreeConcentration is a per-Cartesian-cell initial concentration table
	// (TBLK-style). Its length must be at least the Cartesian cell count.
	FreeConcentration []float64

	// DepthCorrelation gives the initial concentration as a function of the
	// cell centroid depth (TVDPF-style).
	DepthCorrelation *DepthTable
}
