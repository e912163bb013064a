package linalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/porousflow/tracerkernel/partitions"
)

func TestParOverILU0MatchesSequentialSolution(t *testing.T) {
	n := 16
	m := tridiagonal(n)

	owner, err := partitions.BlockPartitionDofs(n, 2)
	require.NoError(t, err)
	comm, err := partitions.NewCommunication(owner, 2, m)
	require.NoError(t, err)

	op, err := NewOverlappingSchwarzOperator(m, comm)
	require.NoError(t, err)

	prm := NewPropertyTree()
	prm.Put("solver", "bicgstab")
	prm.Put("preconditioner.type", "ParOverILU0")
	prm.Put("tol", 1e-10)
	prm.Put("maxiter", 200)
	solver, err := NewFlexibleSolver(op, prm)
	require.NoError(t, err)

	b := make([]float64, n)
	for i := range b {
		b[i] = float64(i)/float64(n) - 0.4
	}
	x := make([]float64, n)
	res := solver.Apply(x, b)
	require.True(t, res.Converged)

	// Sequential reference on the same system.
	seqPre, err := NewSeqILU0(m)
	require.NoError(t, err)
	seq := NewBiCGSTAB(NewMatrixAdapter(m), seqPre, 1e-10, 200, 0)
	xs := make([]float64, n)
	seqRes := seq.Apply(xs, b)
	require.True(t, seqRes.Converged)

	assert.InDeltaSlice(t, xs, x, 1e-6)
	assert.LessOrEqual(t, residualNorm(m, x, b), 1e-10*floats.Norm(b, 2)+1e-12)
}

func TestParOverILU0SinglePartitionIsExactILU0(t *testing.T) {
	// With one partition the overlapping preconditioner degenerates to
	// plain ILU(0), which is exact on a tridiagonal matrix.
	n := 8
	m := tridiagonal(n)

	owner, err := partitions.BlockPartitionDofs(n, 1)
	require.NoError(t, err)
	comm, err := partitions.NewCommunication(owner, 1, m)
	require.NoError(t, err)

	pre, err := NewParOverILU0(m, comm)
	require.NoError(t, err)

	b := make([]float64, n)
	b[3] = 1
	x := make([]float64, n)
	pre.Solve(x, b)

	y := make([]float64, n)
	m.MulVec(y, x)
	assert.InDeltaSlice(t, b, y, 1e-12)
}

func TestOverlappingSchwarzOperatorRequiresComm(t *testing.T) {
	m := tridiagonal(4)
	_, err := NewOverlappingSchwarzOperator(m, nil)
	assert.Error(t, err)
	_, err = NewParOverILU0(m, nil)
	assert.Error(t, err)
}
