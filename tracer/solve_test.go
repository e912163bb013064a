package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/porousflow/tracerkernel/mesh"
	"github.com/porousflow/tracerkernel/sparse"
)

// columnModel builds an initialized model over a vertical column of n cells
// and fills its matrix with the 1D Laplacian transport stencil.
func columnModel(t *testing.T, n, numPartitions int) *Model {
	t.Helper()
	g, err := mesh.NewStructuredGrid(1, 1, n, 10, 10, 50)
	require.NoError(t, err)
	if numPartitions > 1 {
		owner := make([]int, n)
		block := (n + numPartitions - 1) / numPartitions
		for i := range owner {
			owner[i] = i / block
		}
		require.NoError(t, g.SetPartitions(owner, numPartitions))
	}

	table := make([]float64, n)
	m := NewModel(g, g, g.Centroid, []Species{{
		Name:              "FTR1",
		Phase:             WaterPhase,
		FreeConcentration: table,
	}})
	require.NoError(t, m.Init(false, n, testGasPhaseIdx, testOilPhaseIdx, testWaterPhaseIdx))

	M := m.Matrix()
	for i := 0; i < M.N(); i++ {
		for _, j := range M.RowIndices(i) {
			if i == j {
				M.Set(i, j, 2)
			} else {
				M.Set(i, j, -1)
			}
		}
	}
	return m
}

func residualNorm(m *sparse.Matrix, x, b []float64) float64 {
	r := make([]float64, len(b))
	m.MulVec(r, x)
	floats.Scale(-1, r)
	floats.Add(r, b)
	return floats.Norm(r, 2)
}

func TestLinearSolveSequential(t *testing.T) {
	m := columnModel(t, 10, 1)
	M := m.Matrix()

	b := make([]float64, M.N())
	for i := range b {
		b[i] = float64(i%4) - 1.5
	}
	x := make([]float64, M.N())
	// Garbage initial guess, must be discarded.
	for i := range x {
		x[i] = 1e6
	}

	converged, err := m.LinearSolve(M, x, b)
	require.NoError(t, err)
	assert.True(t, converged)
	assert.LessOrEqual(t, residualNorm(M, x, b), 1e-2*floats.Norm(b, 2)+1e-12)
}

func TestLinearSolveZeroRhs(t *testing.T) {
	m := columnModel(t, 6, 1)
	M := m.Matrix()

	x := make([]float64, M.N())
	for i := range x {
		x[i] = 3.5
	}
	b := make([]float64, M.N())

	converged, err := m.LinearSolve(M, x, b)
	require.NoError(t, err)
	assert.True(t, converged)
	assert.InDeltaSlice(t, b, x, 1e-14, "zero right-hand side yields the zero solution")
}

func TestLinearSolveBatchwiseMatchesSingle(t *testing.T) {
	m := columnModel(t, 12, 1)
	M := m.Matrix()
	n := M.N()

	bs := [][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	for i := 0; i < n; i++ {
		bs[0][i] = 1
		bs[1][i] = float64(i) / float64(n)
		bs[2][i] = float64((i%2)*2 - 1)
	}

	xs := [][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	converged, err := m.LinearSolveBatchwise(M, xs, bs)
	require.NoError(t, err)
	assert.True(t, converged)

	for k := range bs {
		single := make([]float64, n)
		ok, err := m.LinearSolve(M, single, bs[k])
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDeltaSlice(t, single, xs[k], 1e-12, "rhs %d", k)
	}
}

func TestLinearSolveBatchwiseLengthMismatch(t *testing.T) {
	m := columnModel(t, 4, 1)
	M := m.Matrix()
	_, err := m.LinearSolveBatchwise(M, make([][]float64, 1), make([][]float64, 2))
	assert.Error(t, err)
}

func TestLinearSolveDistributed(t *testing.T) {
	m := columnModel(t, 16, 2)
	M := m.Matrix()

	b := make([]float64, M.N())
	for i := range b {
		b[i] = float64(i%3) - 1
	}
	x := make([]float64, M.N())

	converged, err := m.LinearSolve(M, x, b)
	require.NoError(t, err)
	assert.True(t, converged)
	assert.LessOrEqual(t, residualNorm(M, x, b), 1e-2*floats.Norm(b, 2)+1e-12)
}

func TestLinearSolveBatchwiseDistributed(t *testing.T) {
	m := columnModel(t, 16, 4)
	M := m.Matrix()
	n := M.N()

	bs := [][]float64{make([]float64, n), make([]float64, n)}
	for i := 0; i < n; i++ {
		bs[0][i] = 1
		bs[1][i] = float64(i) - 7.5
	}
	xs := [][]float64{make([]float64, n), make([]float64, n)}

	converged, err := m.LinearSolveBatchwise(M, xs, bs)
	require.NoError(t, err)
	assert.True(t, converged)
	for k := range bs {
		assert.LessOrEqual(t, residualNorm(M, xs[k], bs[k]), 1e-2*floats.Norm(bs[k], 2)+1e-12)
	}
}

// parallelOnlyGrid reports a decomposition but cannot expose the per-dof
// partition assignment the distributed solver needs.
type parallelOnlyGrid struct {
	g *mesh.StructuredGrid
}

func (p parallelOnlyGrid) NumElements() int         { return p.g.NumElements() }
func (p parallelOnlyGrid) NumDof() int              { return p.g.NumDof() }
func (p parallelOnlyGrid) NewStencil() mesh.Stencil { return p.g.NewStencil() }
func (p parallelOnlyGrid) NumPartitions() int       { return 2 }

func TestLinearSolveUnsupportedDistributedGrid(t *testing.T) {
	g, err := mesh.NewStructuredGrid(1, 1, 6, 10, 10, 50)
	require.NoError(t, err)

	m := NewModel(parallelOnlyGrid{g}, g, g.Centroid, []Species{{
		Name:              "FTR1",
		Phase:             WaterPhase,
		FreeConcentration: make([]float64, 6),
	}})
	require.NoError(t, m.Init(false, 6, testGasPhaseIdx, testOilPhaseIdx, testWaterPhaseIdx))

	M := m.Matrix()
	for i := 0; i < M.N(); i++ {
		for _, j := range M.RowIndices(i) {
			if i == j {
				M.Set(i, j, 2)
			} else {
				M.Set(i, j, -1)
			}
		}
	}

	x := make([]float64, M.N())
	b := make([]float64, M.N())
	b[0] = 1

	converged, err := m.LinearSolve(M, x, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
	assert.False(t, converged)

	_, err = m.LinearSolveBatchwise(M, [][]float64{x}, [][]float64{b})
	assert.Error(t, err)
}
