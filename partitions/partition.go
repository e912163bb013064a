package partitions

import (
	"fmt"
	"math"
)

// BlockPartitionDofs assigns n dofs to numPartitions consecutive blocks of
// near-equal size. Useful for tests and for grids without their own
// decomposition.
func BlockPartitionDofs(n, numPartitions int) ([]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("partitions: negative dof count %d", n)
	}
	if numPartitions < 1 || numPartitions > n {
		return nil, fmt.Errorf("partitions: cannot split %d dofs into %d partitions", n, numPartitions)
	}
	blockSize := int(math.Ceil(float64(n) / float64(numPartitions)))
	owner := make([]int, n)
	for i := 0; i < n; i++ {
		p := i / blockSize
		if p >= numPartitions {
			p = numPartitions - 1
		}
		owner[i] = p
	}
	return owner, nil
}
