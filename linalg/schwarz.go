package linalg

import (
	"fmt"

	"github.com/porousflow/tracerkernel/partitions"
	"github.com/porousflow/tracerkernel/sparse"
)

// OverlappingSchwarzOperator applies a sparse matrix over a dof space that
// is split across partitions with an overlap layer. The partitions share one
// address space here, so the product itself needs no exchange; the operator
// carries the communication structure for the preconditioners built from it.
type OverlappingSchwarzOperator struct {
	A    *sparse.Matrix
	Comm *partitions.Communication
}

// NewOverlappingSchwarzOperator wraps m with its partition communication.
func NewOverlappingSchwarzOperator(m *sparse.Matrix, comm *partitions.Communication) (*OverlappingSchwarzOperator, error) {
	if comm == nil {
		return nil, fmt.Errorf("linalg: overlapping Schwarz operator requires a partition communication")
	}
	return &OverlappingSchwarzOperator{A: m, Comm: comm}, nil
}

// Apply computes dst = A*x.
func (o *OverlappingSchwarzOperator) Apply(dst, x []float64) { o.A.MulVec(dst, x) }

// N returns the operator dimension.
func (o *OverlappingSchwarzOperator) N() int { return o.A.N() }

// ParOverILU0 is the parallel overlapping ILU(0) preconditioner: each
// partition factorizes the submatrix over its owned-plus-overlap dofs and
// solves it locally; the combined result takes each dof's value from its
// owning partition (restricted additive Schwarz).
type ParOverILU0 struct {
	comm *partitions.Communication
	subs []*subdomainILU
}

type subdomainILU struct {
	partition int
	factor    *sparse.ILU0
	xl, yl    []float64 // local gather/solve buffers
}

// NewParOverILU0 extracts and factorizes the per-partition submatrices of m.
func NewParOverILU0(m *sparse.Matrix, comm *partitions.Communication) (*ParOverILU0, error) {
	if comm == nil {
		return nil, fmt.Errorf("linalg: ParOverILU0 requires a partition communication")
	}
	pre := &ParOverILU0{
		comm: comm,
		subs: make([]*subdomainILU, comm.NumPartitions()),
	}
	for p := 0; p < comm.NumPartitions(); p++ {
		sub, err := newSubdomainILU(m, comm, p)
		if err != nil {
			return nil, fmt.Errorf("linalg: partition %d: %w", p, err)
		}
		pre.subs[p] = sub
	}
	return pre, nil
}

func newSubdomainILU(m *sparse.Matrix, comm *partitions.Communication, p int) (*subdomainILU, error) {
	dofs := comm.LocalDofs(p)
	nl := len(dofs)

	// Restrict the global structure to the partition's dof set, using the
	// same two-phase build protocol as the global matrix.
	local := sparse.NewMatrix(nl)
	for l, g := range dofs {
		size := 0
		for _, col := range m.RowIndices(g) {
			if comm.LocalIndex(p, col) >= 0 {
				size++
			}
		}
		local.SetRowSize(l, size)
	}
	local.EndRowSizes()
	for l, g := range dofs {
		for _, col := range m.RowIndices(g) {
			if lc := comm.LocalIndex(p, col); lc >= 0 {
				local.AddIndex(l, lc)
			}
		}
	}
	local.EndIndices()
	for l, g := range dofs {
		cols := m.RowIndices(g)
		vals := m.RowValues(g)
		for k, col := range cols {
			if lc := comm.LocalIndex(p, col); lc >= 0 {
				local.Set(l, lc, vals[k])
			}
		}
	}

	factor, err := sparse.NewILU0(local)
	if err != nil {
		return nil, err
	}
	return &subdomainILU{
		partition: p,
		factor:    factor,
		xl:        make([]float64, nl),
		yl:        make([]float64, nl),
	}, nil
}

// Solve applies the preconditioner: dst ~= A^-1 rhs.
func (pre *ParOverILU0) Solve(dst, rhs []float64) {
	for _, sub := range pre.subs {
		pre.comm.Gather(sub.partition, rhs, sub.xl)
		sub.factor.Solve(sub.yl, sub.xl)
		pre.comm.ScatterOwned(sub.partition, sub.yl, dst)
	}
}
