package partitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineAdjacency is the connectivity of a 1D chain: every dof neighbors
// itself and its immediate predecessors/successors.
type lineAdjacency struct {
	n    int
	rows [][]int
}

func newLineAdjacency(n int) *lineAdjacency {
	a := &lineAdjacency{n: n, rows: make([][]int, n)}
	for i := 0; i < n; i++ {
		if i > 0 {
			a.rows[i] = append(a.rows[i], i-1)
		}
		a.rows[i] = append(a.rows[i], i)
		if i < n-1 {
			a.rows[i] = append(a.rows[i], i+1)
		}
	}
	return a
}

func (a *lineAdjacency) N() int                 { return a.n }
func (a *lineAdjacency) RowIndices(i int) []int { return a.rows[i] }

func TestBlockPartitionDofs(t *testing.T) {
	owner, err := BlockPartitionDofs(7, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1}, owner)

	owner, err = BlockPartitionDofs(4, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, owner)

	_, err = BlockPartitionDofs(3, 0)
	assert.Error(t, err)
	_, err = BlockPartitionDofs(3, 5)
	assert.Error(t, err)
}

func TestCommunicationGhostLayer(t *testing.T) {
	adj := newLineAdjacency(6)
	owner := []int{0, 0, 0, 1, 1, 1}
	comm, err := NewCommunication(owner, 2, adj)
	require.NoError(t, err)

	assert.Equal(t, 2, comm.NumPartitions())
	assert.Equal(t, 3, comm.NumOwned(0))
	assert.Equal(t, 3, comm.NumOwned(1))

	// Each partition picks up exactly one ghost dof across the cut.
	assert.Equal(t, []int{0, 1, 2, 3}, comm.LocalDofs(0))
	assert.Equal(t, []int{3, 4, 5, 2}, comm.LocalDofs(1))
	assert.Equal(t, 4, comm.LocalSize(0))

	assert.Equal(t, 0, comm.Owner(1))
	assert.Equal(t, 1, comm.Owner(4))

	assert.Equal(t, 3, comm.LocalIndex(0, 3), "ghost dof is addressable locally")
	assert.Equal(t, -1, comm.LocalIndex(0, 5), "distant dof is not")
}

func TestCommunicationGatherScatter(t *testing.T) {
	adj := newLineAdjacency(6)
	owner := []int{0, 0, 0, 1, 1, 1}
	comm, err := NewCommunication(owner, 2, adj)
	require.NoError(t, err)

	global := []float64{10, 11, 12, 13, 14, 15}
	local := make([]float64, comm.LocalSize(0))
	comm.Gather(0, global, local)
	assert.Equal(t, []float64{10, 11, 12, 13}, local)

	// Scatter writes back owned values only; the ghost slot is ignored.
	local[0] = 100
	local[3] = 999
	comm.ScatterOwned(0, local, global)
	assert.Equal(t, []float64{100, 11, 12, 13, 14, 15}, global)
}

func TestCommunicationValidation(t *testing.T) {
	adj := newLineAdjacency(4)

	_, err := NewCommunication([]int{0, 0, 0}, 1, adj)
	assert.Error(t, err, "owner length must match dof count")

	_, err = NewCommunication([]int{0, 0, 0, 2}, 2, adj)
	assert.Error(t, err, "partition id out of range")

	_, err = NewCommunication([]int{0, 0, 0, 0}, 0, adj)
	assert.Error(t, err)
}
