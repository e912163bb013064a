package linalg

import (
	"fmt"
)

// Default solver parameters for composite solvers built from a property
// tree whose keys are absent.
const (
	DefaultTolerance = 1e-2
	DefaultMaxIter   = 100
)

// FlexibleSolver is a composite iterative solver assembled at run time from
// a property tree: the "solver" key selects the Krylov method and
// "preconditioner.type" the preconditioner. Unknown kinds are configuration
// errors.
type FlexibleSolver struct {
	solver *BiCGSTABSolver
}

// NewFlexibleSolver builds a solver for op from the property tree. The
// overlapping preconditioners need op to be an OverlappingSchwarzOperator;
// plain operators get the sequential equivalents.
func NewFlexibleSolver(op Operator, prm *PropertyTree) (*FlexibleSolver, error) {
	tol := prm.GetFloat64("tol", DefaultTolerance)
	maxIter := prm.GetInt("maxiter", DefaultMaxIter)
	verbosity := prm.GetInt("verbosity", 0)

	var precond Preconditioner
	var err error
	precondType := prm.GetString("preconditioner.type", "ParOverILU0")
	switch precondType {
	case "ParOverILU0":
		schwarz, ok := op.(*OverlappingSchwarzOperator)
		if !ok {
			return nil, fmt.Errorf("linalg: preconditioner %q requires an overlapping Schwarz operator, got %T",
				precondType, op)
		}
		precond, err = NewParOverILU0(schwarz.A, schwarz.Comm)
	case "ILU0":
		switch typed := op.(type) {
		case *MatrixAdapter:
			precond, err = NewSeqILU0(typed.A)
		case *OverlappingSchwarzOperator:
			precond, err = NewSeqILU0(typed.A)
		default:
			return nil, fmt.Errorf("linalg: preconditioner %q requires a matrix-backed operator, got %T",
				precondType, op)
		}
	default:
		return nil, fmt.Errorf("linalg: unknown preconditioner type %q", precondType)
	}
	if err != nil {
		return nil, err
	}

	solverKind := prm.GetString("solver", "bicgstab")
	if solverKind != "bicgstab" {
		return nil, fmt.Errorf("linalg: unknown solver kind %q", solverKind)
	}
	return &FlexibleSolver{
		solver: NewBiCGSTAB(op, precond, tol, maxIter, verbosity),
	}, nil
}

// Apply solves op*x = b with x as the initial guess.
func (f *FlexibleSolver) Apply(x, b []float64) Result {
	return f.solver.Apply(x, b)
}
