package sparse

import "fmt"

// SingularLimit is the absolute pivot threshold below which an incomplete
// factorization treats a diagonal entry as singular. Kept this tight so that
// well-conditioned systems with small-magnitude entries are not falsely
// rejected.
const SingularLimit = 1e-30

// ILU0 is a zero-fill-in incomplete LU factorization of a Matrix. L and U
// share the sparsity pattern of the source matrix; L has a unit diagonal and
// is stored without it.
type ILU0 struct {
	n      int
	rowPtr []int
	cols   []int
	vals   []float64
	diag   []int // storage position of each row's diagonal entry
}

// NewILU0 factorizes a. The structure must contain every diagonal entry and
// must be committed. a is not modified.
func NewILU0(a *Matrix) (*ILU0, error) {
	a.checkBuilt("NewILU0")
	n := a.n
	f := &ILU0{
		n:      n,
		rowPtr: a.rowPtr,
		cols:   a.cols,
		vals:   make([]float64, len(a.vals)),
		diag:   make([]int, n),
	}
	copy(f.vals, a.vals)

	for i := 0; i < n; i++ {
		k := a.find(i, i)
		if k < 0 {
			return nil, fmt.Errorf("ilu0: row %d has no diagonal entry", i)
		}
		f.diag[i] = k
	}

	// pos[c] maps column c to its storage slot within the current row.
	pos := make([]int, n)
	for i := range pos {
		pos[i] = -1
	}

	for i := 0; i < n; i++ {
		lo, hi := f.rowPtr[i], f.rowPtr[i+1]
		for k := lo; k < hi; k++ {
			pos[f.cols[k]] = k
		}
		// Eliminate using all prior rows that appear in this row.
		for k := lo; k < hi && f.cols[k] < i; k++ {
			j := f.cols[k]
			pivot := f.vals[f.diag[j]]
			if pivot < SingularLimit && pivot > -SingularLimit {
				return nil, fmt.Errorf("ilu0: singular pivot in row %d", j)
			}
			lij := f.vals[k] / pivot
			f.vals[k] = lij
			for kk := f.diag[j] + 1; kk < f.rowPtr[j+1]; kk++ {
				if p := pos[f.cols[kk]]; p >= 0 {
					f.vals[p] -= lij * f.vals[kk]
				}
			}
		}
		d := f.vals[f.diag[i]]
		if d < SingularLimit && d > -SingularLimit {
			return nil, fmt.Errorf("ilu0: singular pivot in row %d", i)
		}
		for k := lo; k < hi; k++ {
			pos[f.cols[k]] = -1
		}
	}
	return f, nil
}

// Solve applies the factorization: dst = (LU)^-1 rhs. dst and rhs may alias.
func (f *ILU0) Solve(dst, rhs []float64) {
	if len(dst) != f.n || len(rhs) != f.n {
		panic(fmt.Sprintf("ilu0: Solve length mismatch: dst=%d rhs=%d n=%d",
			len(dst), len(rhs), f.n))
	}
	// Forward substitution with unit lower triangle.
	for i := 0; i < f.n; i++ {
		sum := rhs[i]
		for k := f.rowPtr[i]; f.cols[k] < i; k++ {
			sum -= f.vals[k] * dst[f.cols[k]]
		}
		dst[i] = sum
	}
	// Backward substitution.
	for i := f.n - 1; i >= 0; i-- {
		sum := dst[i]
		for k := f.diag[i] + 1; k < f.rowPtr[i+1]; k++ {
			sum -= f.vals[k] * dst[f.cols[k]]
		}
		dst[i] = sum / f.vals[f.diag[i]]
	}
}
