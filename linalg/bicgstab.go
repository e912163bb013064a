package linalg

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// breakdownTol guards the BiCGSTAB scalar divisions; falling below it means
// the Krylov process has stagnated and the solve is reported as not
// converged.
const breakdownTol = 1e-80

// Result reports the outcome of an iterative solve.
type Result struct {
	Converged  bool
	Iterations int
	Reduction  float64 // final residual norm over initial residual norm
}

// BiCGSTABSolver is a preconditioned stabilized bi-conjugate-gradient
// solver. Convergence is reached when the residual norm has been reduced by
// the configured tolerance relative to the initial residual.
type BiCGSTABSolver struct {
	op        Operator
	precond   Preconditioner
	tol       float64
	maxIter   int
	verbosity int

	// scratch vectors, sized on first Apply
	r, r0, p, phat, v, s, shat, t []float64
}

// NewBiCGSTAB creates a solver around an operator and preconditioner.
func NewBiCGSTAB(op Operator, precond Preconditioner, tol float64, maxIter, verbosity int) *BiCGSTABSolver {
	return &BiCGSTABSolver{
		op:        op,
		precond:   precond,
		tol:       tol,
		maxIter:   maxIter,
		verbosity: verbosity,
	}
}

func (s *BiCGSTABSolver) alloc(n int) {
	if len(s.r) == n {
		return
	}
	s.r = make([]float64, n)
	s.r0 = make([]float64, n)
	s.p = make([]float64, n)
	s.phat = make([]float64, n)
	s.v = make([]float64, n)
	s.s = make([]float64, n)
	s.shat = make([]float64, n)
	s.t = make([]float64, n)
}

// Apply solves op*x = b, using x as the initial guess, and updates x in
// place.
func (s *BiCGSTABSolver) Apply(x, b []float64) Result {
	n := s.op.N()
	if len(x) != n || len(b) != n {
		panic(fmt.Sprintf("bicgstab: length mismatch: x=%d b=%d n=%d", len(x), len(b), n))
	}
	s.alloc(n)

	// r = b - A x
	s.op.Apply(s.r, x)
	floats.Scale(-1, s.r)
	floats.Add(s.r, b)
	copy(s.r0, s.r)

	norm0 := floats.Norm(s.r, 2)
	if norm0*norm0 < breakdownTol {
		// Right-hand side already satisfied.
		return Result{Converged: true, Iterations: 0, Reduction: 0}
	}
	target := s.tol * norm0

	var rho, alpha, omega float64
	for it := 1; it <= s.maxIter; it++ {
		rho1 := floats.Dot(s.r0, s.r)
		if rho1 < breakdownTol && rho1 > -breakdownTol {
			return Result{Converged: false, Iterations: it, Reduction: floats.Norm(s.r, 2) / norm0}
		}
		if it == 1 {
			copy(s.p, s.r)
		} else {
			beta := (rho1 / rho) * (alpha / omega)
			// p = r + beta*(p - omega*v)
			floats.AddScaled(s.p, -omega, s.v)
			floats.Scale(beta, s.p)
			floats.Add(s.p, s.r)
		}
		rho = rho1

		s.precond.Solve(s.phat, s.p)
		s.op.Apply(s.v, s.phat)
		r0v := floats.Dot(s.r0, s.v)
		if r0v < breakdownTol && r0v > -breakdownTol {
			return Result{Converged: false, Iterations: it, Reduction: floats.Norm(s.r, 2) / norm0}
		}
		alpha = rho1 / r0v

		// s = r - alpha*v
		copy(s.s, s.r)
		floats.AddScaled(s.s, -alpha, s.v)
		if norm := floats.Norm(s.s, 2); norm <= target {
			floats.AddScaled(x, alpha, s.phat)
			s.logIteration(it, norm/norm0)
			return Result{Converged: true, Iterations: it, Reduction: norm / norm0}
		}

		s.precond.Solve(s.shat, s.s)
		s.op.Apply(s.t, s.shat)
		tt := floats.Dot(s.t, s.t)
		if tt < breakdownTol {
			return Result{Converged: false, Iterations: it, Reduction: floats.Norm(s.s, 2) / norm0}
		}
		omega = floats.Dot(s.t, s.s) / tt

		floats.AddScaled(x, alpha, s.phat)
		floats.AddScaled(x, omega, s.shat)

		// r = s - omega*t
		copy(s.r, s.s)
		floats.AddScaled(s.r, -omega, s.t)

		norm := floats.Norm(s.r, 2)
		s.logIteration(it, norm/norm0)
		if norm <= target {
			return Result{Converged: true, Iterations: it, Reduction: norm / norm0}
		}
		if omega < breakdownTol && omega > -breakdownTol {
			return Result{Converged: false, Iterations: it, Reduction: norm / norm0}
		}
	}
	return Result{Converged: false, Iterations: s.maxIter, Reduction: floats.Norm(s.r, 2) / norm0}
}

func (s *BiCGSTABSolver) logIteration(it int, reduction float64) {
	if s.verbosity > 0 {
		logrus.WithFields(logrus.Fields{
			"iteration": it,
			"reduction": reduction,
		}).Debug("bicgstab")
	}
}
