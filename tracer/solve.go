package tracer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/porousflow/tracerkernel/linalg"
	"github.com/porousflow/tracerkernel/mesh"
	"github.com/porousflow/tracerkernel/partitions"
	"github.com/porousflow/tracerkernel/sparse"
)

// Tracer systems are solved to a fixed, fairly loose tolerance: the
// transport equations are linear in the concentrations and near-symmetric,
// and the time stepping tolerates this accuracy.
const (
	solverTolerance = 1e-2
	solverMaxIter   = 100
	solverVerbosity = 0
)

func solverProperties() *linalg.PropertyTree {
	prm := linalg.NewPropertyTree()
	prm.Put("maxiter", solverMaxIter)
	prm.Put("tol", solverTolerance)
	prm.Put("verbosity", solverVerbosity)
	prm.Put("solver", "bicgstab")
	prm.Put("preconditioner.type", "ParOverILU0")
	return prm
}

func (m *Model) numPartitions() int {
	if par, ok := m.grid.(mesh.Parallel); ok {
		return par.NumPartitions()
	}
	return 1
}

// newParallelFlexibleSolver builds the distributed operator and composite
// solver for a matrix. Grids that cannot expose their partition assignment
// do not support distributed tracer solves and fail here rather than
// degrading to a sequential solve on each partition.
func (m *Model) newParallelFlexibleSolver(M *sparse.Matrix, prm *linalg.PropertyTree) (*linalg.FlexibleSolver, error) {
	pm, ok := m.grid.(mesh.PartitionMapped)
	if !ok {
		return nil, fmt.Errorf("tracer: grid type %T not supported for parallel tracers", m.grid)
	}
	owner := make([]int, M.N())
	for dof := range owner {
		owner[dof] = pm.Partition(dof)
	}
	comm, err := partitions.NewCommunication(owner, m.numPartitions(), M)
	if err != nil {
		return nil, err
	}
	op, err := linalg.NewOverlappingSchwarzOperator(M, comm)
	if err != nil {
		return nil, err
	}
	return linalg.NewFlexibleSolver(op, prm)
}

func newSequentialSolver(M *sparse.Matrix) (*linalg.BiCGSTABSolver, error) {
	op := linalg.NewMatrixAdapter(M)
	precond, err := linalg.NewSeqILU0(M)
	if err != nil {
		return nil, err
	}
	return linalg.NewBiCGSTAB(op, precond, solverTolerance, solverMaxIter, solverVerbosity), nil
}

type appliable interface {
	Apply(x, b []float64) linalg.Result
}

func (m *Model) newSolver(M *sparse.Matrix) (appliable, error) {
	if m.numPartitions() > 1 {
		return m.newParallelFlexibleSolver(M, solverProperties())
	}
	return newSequentialSolver(M)
}

// LinearSolve solves M*x = b for one right-hand side. x is zeroed before
// the solve; any initial guess is discarded. The returned flag reports
// convergence; errors report unsupported or singular configurations, which
// are fatal rather than retry-able.
//
// On a decomposed grid this is a collective operation over all partitions.
func (m *Model) LinearSolve(M *sparse.Matrix, x, b []float64) (bool, error) {
	solver, err := m.newSolver(M)
	if err != nil {
		return false, err
	}
	zero(x)
	res := solver.Apply(x, b)
	if !res.Converged {
		logrus.WithFields(logrus.Fields{
			"iterations": res.Iterations,
			"reduction":  res.Reduction,
		}).Warn("tracer linear solve did not converge")
	}
	return res.Converged, nil
}

// LinearSolveBatchwise solves M*x[i] = b[i] for a list of right-hand sides,
// reusing one operator, preconditioner and solver across all of them. Each
// x[i] is zeroed first. The returned flag is the conjunction of the per-RHS
// convergence flags.
//
// On a decomposed grid this is a collective operation over all partitions.
func (m *Model) LinearSolveBatchwise(M *sparse.Matrix, x, b [][]float64) (bool, error) {
	if len(x) != len(b) {
		return false, fmt.Errorf("tracer: batch solve with %d solutions but %d right-hand sides", len(x), len(b))
	}
	solver, err := m.newSolver(M)
	if err != nil {
		return false, err
	}
	converged := true
	for i := range b {
		zero(x[i])
		res := solver.Apply(x[i], b[i])
		if !res.Converged {
			logrus.WithFields(logrus.Fields{
				"rhs":        i,
				"iterations": res.Iterations,
				"reduction":  res.Reduction,
			}).Warn("tracer linear solve did not converge")
		}
		converged = converged && res.Converged
	}
	return converged, nil
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}
