// Package mesh defines the grid capabilities the tracer core consumes: an
// iterable element view with a per-element dof stencil, a mapping between
// the active dof space and the structured Cartesian cell space of the input
// deck, and dof centroid lookup. A structured box grid implementation is
// provided for tests and small drivers; production grids are supplied by
// the surrounding simulator.
package mesh

// Stencil enumerates the dofs interacting through one mesh element. Update
// rebinds the stencil to an element; the primary dofs are those the element
// contributes matrix rows for, and the full dof list always contains every
// primary dof (a stencil that omits its own primary dof violates the mesh
// contract).
type Stencil interface {
	Update(element int)
	NumPrimaryDof() int
	NumDof() int
	// GlobalSpaceIndex maps a stencil-local dof position to the global
	// active dof index. Positions below NumPrimaryDof are the primary dofs.
	GlobalSpaceIndex(pos int) int
}

// GridView is the element-iteration capability of a grid.
type GridView interface {
	NumElements() int
	NumDof() int
	// NewStencil returns a stencil bound to this view, initially unbound to
	// any element.
	NewStencil() Stencil
}

// CartesianMapper relates the active dof space to the structured Cartesian
// cell space used by input tables. The mapping is a bijection restricted to
// active cells.
type CartesianMapper interface {
	// CartesianSize returns the total Cartesian cell count, active or not.
	CartesianSize() int
	// CartesianIndex returns the Cartesian cell of an active dof.
	CartesianIndex(dof int) int
}

// CentroidFunc returns the geometric centroid of a dof's cell. The third
// coordinate is depth.
type CentroidFunc func(dof int) [3]float64

// Parallel is implemented by grid views whose dofs are spread across more
// than one partition.
type Parallel interface {
	NumPartitions() int
}

// PartitionMapped is implemented by distributed grid views that can expose
// their per-dof partition assignment. Grids that are Parallel but not
// PartitionMapped do not support distributed tracer solves.
type PartitionMapped interface {
	Partition(dof int) int
}
