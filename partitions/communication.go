// Package partitions describes how the active degrees of freedom of a mesh
// are split across partitions, and builds the owner/overlap communication
// structure that the distributed tracer solver needs: for every partition,
// the dofs it owns plus one ghost layer of structurally connected dofs owned
// by its neighbors.
package partitions

import (
	"fmt"
	"sort"
)

// Adjacency exposes the structural connectivity the ghost layer is derived
// from. A committed sparse matrix satisfies it.
type Adjacency interface {
	// N returns the number of dofs.
	N() int
	// RowIndices returns the dofs structurally connected to dof i,
	// including i itself.
	RowIndices(i int) []int
}

// Communication is the owner/overlap decomposition of a dof space. For each
// partition it records the owned dofs followed by the overlap (ghost) dofs,
// with bidirectional global/local index maps.
type Communication struct {
	numPartitions int
	owner         []int // dof -> owning partition

	local         [][]int       // [p] -> global dof ids, owned first then ghosts
	numOwned      []int         // [p] -> count of owned dofs
	globalToLocal []map[int]int // [p][global] -> local
}

// NewCommunication builds the decomposition from a per-dof owner assignment
// and the structural adjacency. Every dof connected to an owned dof but
// owned elsewhere becomes a ghost of that partition.
func NewCommunication(owner []int, numPartitions int, adj Adjacency) (*Communication, error) {
	n := adj.N()
	if len(owner) != n {
		return nil, fmt.Errorf("partitions: owner length %d does not match %d dofs", len(owner), n)
	}
	if numPartitions < 1 {
		return nil, fmt.Errorf("partitions: invalid partition count %d", numPartitions)
	}
	for dof, p := range owner {
		if p < 0 || p >= numPartitions {
			return nil, fmt.Errorf("partitions: dof %d assigned to partition %d, have %d partitions",
				dof, p, numPartitions)
		}
	}

	c := &Communication{
		numPartitions: numPartitions,
		owner:         make([]int, n),
		local:         make([][]int, numPartitions),
		numOwned:      make([]int, numPartitions),
		globalToLocal: make([]map[int]int, numPartitions),
	}
	copy(c.owner, owner)

	// Owned dofs, ascending by global index.
	for dof := 0; dof < n; dof++ {
		p := owner[dof]
		c.local[p] = append(c.local[p], dof)
	}
	for p := 0; p < numPartitions; p++ {
		c.numOwned[p] = len(c.local[p])
	}

	// One ghost layer from the structural connectivity.
	for p := 0; p < numPartitions; p++ {
		seen := make(map[int]bool, len(c.local[p]))
		for _, dof := range c.local[p] {
			seen[dof] = true
		}
		var ghosts []int
		for _, dof := range c.local[p][:c.numOwned[p]] {
			for _, nb := range adj.RowIndices(dof) {
				if !seen[nb] {
					seen[nb] = true
					ghosts = append(ghosts, nb)
				}
			}
		}
		sort.Ints(ghosts)
		c.local[p] = append(c.local[p], ghosts...)

		g2l := make(map[int]int, len(c.local[p]))
		for l, g := range c.local[p] {
			g2l[g] = l
		}
		c.globalToLocal[p] = g2l
	}
	return c, nil
}

// NumPartitions returns the partition count.
func (c *Communication) NumPartitions() int { return c.numPartitions }

// Owner returns the partition owning a dof.
func (c *Communication) Owner(dof int) int { return c.owner[dof] }

// NumOwned returns how many dofs a partition owns.
func (c *Communication) NumOwned(p int) int { return c.numOwned[p] }

// LocalSize returns the number of owned plus ghost dofs of a partition.
func (c *Communication) LocalSize(p int) int { return len(c.local[p]) }

// LocalDofs returns the global dof ids of a partition, owned first then
// ghosts. The slice aliases internal storage.
func (c *Communication) LocalDofs(p int) []int { return c.local[p] }

// LocalIndex returns the local index of a global dof within partition p, or
// -1 if the dof is neither owned by nor a ghost of p.
func (c *Communication) LocalIndex(p, dof int) int {
	if l, ok := c.globalToLocal[p][dof]; ok {
		return l
	}
	return -1
}

// Gather copies the partition's owned and ghost values out of a global
// vector into a local one (the pick step of a halo exchange).
func (c *Communication) Gather(p int, global, local []float64) {
	dofs := c.local[p]
	if len(local) != len(dofs) {
		panic(fmt.Sprintf("partitions: Gather local length %d, partition %d has %d dofs",
			len(local), p, len(dofs)))
	}
	for l, g := range dofs {
		local[l] = global[g]
	}
}

// ScatterOwned copies the partition's owned values from a local vector back
// into a global one, leaving ghost positions to their owners (the place
// step of a halo exchange).
func (c *Communication) ScatterOwned(p int, local, global []float64) {
	dofs := c.local[p]
	if len(local) != len(dofs) {
		panic(fmt.Sprintf("partitions: ScatterOwned local length %d, partition %d has %d dofs",
			len(local), p, len(dofs)))
	}
	for l := 0; l < c.numOwned[p]; l++ {
		global[dofs[l]] = local[l]
	}
}
