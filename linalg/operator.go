package linalg

import (
	"github.com/porousflow/tracerkernel/sparse"
)

// Operator applies a linear operator: dst = A*x.
type Operator interface {
	Apply(dst, x []float64)
	// N returns the dimension of the operator.
	N() int
}

// Preconditioner applies an approximate inverse: dst ~= A^-1 * rhs.
type Preconditioner interface {
	Solve(dst, rhs []float64)
}

// MatrixAdapter wraps a committed sparse matrix as a plain single-process
// operator.
type MatrixAdapter struct {
	A *sparse.Matrix
}

// NewMatrixAdapter wraps m.
func NewMatrixAdapter(m *sparse.Matrix) *MatrixAdapter {
	return &MatrixAdapter{A: m}
}

// Apply computes dst = A*x.
func (a *MatrixAdapter) Apply(dst, x []float64) { a.A.MulVec(dst, x) }

// N returns the matrix dimension.
func (a *MatrixAdapter) N() int { return a.A.N() }

// SeqILU0 is the sequential ILU(0) preconditioner.
type SeqILU0 struct {
	f *sparse.ILU0
}

// NewSeqILU0 factorizes m.
func NewSeqILU0(m *sparse.Matrix) (*SeqILU0, error) {
	f, err := sparse.NewILU0(m)
	if err != nil {
		return nil, err
	}
	return &SeqILU0{f: f}, nil
}

// Solve applies the factorization.
func (p *SeqILU0) Solve(dst, rhs []float64) { p.f.Solve(dst, rhs) }
