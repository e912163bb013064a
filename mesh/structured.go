package mesh

import (
	"fmt"
)

// StructuredGrid is a Cartesian box of nx*ny*nz cells with optional inactive
// cells. Elements are the active cells; each element carries one
// cell-centered dof, and the element stencil couples a cell with its active
// face neighbors. Dofs are numbered in Cartesian cell order restricted to
// the active cells.
type StructuredGrid struct {
	Nx, Ny, Nz int
	Dx, Dy, Dz float64
	Origin     [3]float64

	cartToActive []int // -1 for inactive cells
	activeToCart []int

	owner         []int // per-dof partition assignment, nil when undecomposed
	numPartitions int
}

// NewStructuredGrid creates a box grid with uniform cell sizes. The listed
// Cartesian cells are marked inactive.
func NewStructuredGrid(nx, ny, nz int, dx, dy, dz float64, inactive ...int) (*StructuredGrid, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("mesh: invalid grid dimensions %dx%dx%d", nx, ny, nz)
	}
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return nil, fmt.Errorf("mesh: invalid cell sizes %gx%gx%g", dx, dy, dz)
	}
	size := nx * ny * nz
	g := &StructuredGrid{
		Nx: nx, Ny: ny, Nz: nz,
		Dx: dx, Dy: dy, Dz: dz,
		cartToActive:  make([]int, size),
		numPartitions: 1,
	}
	for i := range g.cartToActive {
		g.cartToActive[i] = 0
	}
	for _, cart := range inactive {
		if cart < 0 || cart >= size {
			return nil, fmt.Errorf("mesh: inactive cell %d out of range [0,%d)", cart, size)
		}
		g.cartToActive[cart] = -1
	}
	for cart := 0; cart < size; cart++ {
		if g.cartToActive[cart] < 0 {
			continue
		}
		g.cartToActive[cart] = len(g.activeToCart)
		g.activeToCart = append(g.activeToCart, cart)
	}
	if len(g.activeToCart) == 0 {
		return nil, fmt.Errorf("mesh: grid has no active cells")
	}
	return g, nil
}

// SetPartitions decomposes the active dofs. owner assigns each dof to a
// partition in [0,numPartitions).
func (g *StructuredGrid) SetPartitions(owner []int, numPartitions int) error {
	if len(owner) != g.NumDof() {
		return fmt.Errorf("mesh: owner length %d does not match %d dofs", len(owner), g.NumDof())
	}
	if numPartitions < 1 {
		return fmt.Errorf("mesh: invalid partition count %d", numPartitions)
	}
	for dof, p := range owner {
		if p < 0 || p >= numPartitions {
			return fmt.Errorf("mesh: dof %d assigned to partition %d of %d", dof, p, numPartitions)
		}
	}
	g.owner = append([]int(nil), owner...)
	g.numPartitions = numPartitions
	return nil
}

// NumElements returns the active cell count.
func (g *StructuredGrid) NumElements() int { return len(g.activeToCart) }

// NumDof returns the active dof count (one per active cell).
func (g *StructuredGrid) NumDof() int { return len(g.activeToCart) }

// CartesianSize returns the total Cartesian cell count.
func (g *StructuredGrid) CartesianSize() int { return g.Nx * g.Ny * g.Nz }

// CartesianIndex returns the Cartesian cell of an active dof.
func (g *StructuredGrid) CartesianIndex(dof int) int { return g.activeToCart[dof] }

// ActiveIndex returns the dof of a Cartesian cell, or -1 if inactive.
func (g *StructuredGrid) ActiveIndex(cart int) int { return g.cartToActive[cart] }

// NumPartitions returns the partition count of the decomposition, 1 when
// the grid is not decomposed.
func (g *StructuredGrid) NumPartitions() int { return g.numPartitions }

// Partition returns the partition owning a dof.
func (g *StructuredGrid) Partition(dof int) int {
	if g.owner == nil {
		return 0
	}
	return g.owner[dof]
}

// Centroid returns the cell center of a dof. The third coordinate is depth.
func (g *StructuredGrid) Centroid(dof int) [3]float64 {
	cart := g.activeToCart[dof]
	i := cart % g.Nx
	j := (cart / g.Nx) % g.Ny
	k := cart / (g.Nx * g.Ny)
	return [3]float64{
		g.Origin[0] + (float64(i)+0.5)*g.Dx,
		g.Origin[1] + (float64(j)+0.5)*g.Dy,
		g.Origin[2] + (float64(k)+0.5)*g.Dz,
	}
}

// NewStencil returns a cell-centered finite-volume stencil over this grid.
func (g *StructuredGrid) NewStencil() Stencil {
	return &fvStencil{grid: g}
}

// fvStencil couples an active cell with its active face neighbors. The
// primary dof is the cell itself and is always the first stencil entry.
type fvStencil struct {
	grid *StructuredGrid
	dofs []int
}

func (s *fvStencil) Update(element int) {
	g := s.grid
	s.dofs = s.dofs[:0]
	s.dofs = append(s.dofs, element)

	cart := g.activeToCart[element]
	i := cart % g.Nx
	j := (cart / g.Nx) % g.Ny
	k := cart / (g.Nx * g.Ny)

	s.addNeighbor(i-1, j, k)
	s.addNeighbor(i+1, j, k)
	s.addNeighbor(i, j-1, k)
	s.addNeighbor(i, j+1, k)
	s.addNeighbor(i, j, k-1)
	s.addNeighbor(i, j, k+1)
}

func (s *fvStencil) addNeighbor(i, j, k int) {
	g := s.grid
	if i < 0 || i >= g.Nx || j < 0 || j >= g.Ny || k < 0 || k >= g.Nz {
		return
	}
	if dof := g.cartToActive[i+g.Nx*(j+g.Ny*k)]; dof >= 0 {
		s.dofs = append(s.dofs, dof)
	}
}

func (s *fvStencil) NumPrimaryDof() int { return 1 }

func (s *fvStencil) NumDof() int { return len(s.dofs) }

func (s *fvStencil) GlobalSpaceIndex(pos int) int { return s.dofs[pos] }
