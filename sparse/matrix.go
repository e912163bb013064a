// Package sparse provides the exact-size compressed-row matrix used for the
// tracer transport Jacobian, together with its zero-fill-in incomplete LU
// factorization.
//
// The matrix is built in two phases: first every row declares its entry
// count, then every row is filled with its column indices. Storage is sized
// exactly from the declared counts, so there is no slack and no growth after
// the structure has been committed. Structural misuse (declaring or inserting
// after a commit, overflowing a row, writing an entry outside the pattern) is
// a programming-contract violation and panics.
package sparse

import (
	"fmt"
	"sort"
)

type buildStage uint8

const (
	stageRowSizes buildStage = iota // declaring per-row entry counts
	stageIndices                    // inserting column indices
	stageBuilt                      // structure committed, numeric fill only
)

// Matrix is a square compressed-row sparse matrix with an immutable
// structure. After EndIndices only the numeric entries may change.
type Matrix struct {
	n      int
	stage  buildStage
	rowPtr []int // length n+1 after EndRowSizes
	cols   []int
	vals   []float64

	rowSize []int // declared entry counts, stageRowSizes only
	rowFill []int // next free slot per row, stageIndices only
}

// NewMatrix creates an n-by-n matrix in the size-declaration stage.
func NewMatrix(n int) *Matrix {
	if n < 0 {
		panic(fmt.Sprintf("sparse: negative matrix dimension %d", n))
	}
	return &Matrix{
		n:       n,
		stage:   stageRowSizes,
		rowSize: make([]int, n),
	}
}

// N returns the number of rows (and columns).
func (m *Matrix) N() int { return m.n }

// NNZ returns the number of structural entries. Valid once EndRowSizes has
// been called.
func (m *Matrix) NNZ() int { return len(m.cols) }

func (m *Matrix) checkRow(row int) {
	if row < 0 || row >= m.n {
		panic(fmt.Sprintf("sparse: row %d out of range [0,%d)", row, m.n))
	}
}

// SetRowSize declares the number of structural entries of a row.
func (m *Matrix) SetRowSize(row, size int) {
	if m.stage != stageRowSizes {
		panic("sparse: SetRowSize after EndRowSizes")
	}
	m.checkRow(row)
	if size < 0 || size > m.n {
		panic(fmt.Sprintf("sparse: row %d size %d out of range [0,%d]", row, size, m.n))
	}
	m.rowSize[row] = size
}

// EndRowSizes commits the declared row sizes and allocates the column and
// value storage exactly.
func (m *Matrix) EndRowSizes() {
	if m.stage != stageRowSizes {
		panic("sparse: EndRowSizes called twice")
	}
	m.rowPtr = make([]int, m.n+1)
	for i, size := range m.rowSize {
		m.rowPtr[i+1] = m.rowPtr[i] + size
	}
	nnz := m.rowPtr[m.n]
	m.cols = make([]int, nnz)
	m.vals = make([]float64, nnz)
	m.rowFill = make([]int, m.n)
	m.rowSize = nil
	m.stage = stageIndices
}

// AddIndex appends a column index to a row's structure. Every row must
// receive exactly as many indices as it declared.
func (m *Matrix) AddIndex(row, col int) {
	if m.stage != stageIndices {
		panic("sparse: AddIndex outside the index-insertion stage")
	}
	m.checkRow(row)
	if col < 0 || col >= m.n {
		panic(fmt.Sprintf("sparse: column %d out of range [0,%d)", col, m.n))
	}
	fill := m.rowFill[row]
	if fill >= m.rowPtr[row+1]-m.rowPtr[row] {
		panic(fmt.Sprintf("sparse: row %d overflows its declared size %d",
			row, m.rowPtr[row+1]-m.rowPtr[row]))
	}
	m.cols[m.rowPtr[row]+fill] = col
	m.rowFill[row] = fill + 1
}

// EndIndices commits the column structure. Each row's indices are sorted
// ascending; duplicate or missing indices are contract violations.
func (m *Matrix) EndIndices() {
	if m.stage != stageIndices {
		panic("sparse: EndIndices outside the index-insertion stage")
	}
	for i := 0; i < m.n; i++ {
		lo, hi := m.rowPtr[i], m.rowPtr[i+1]
		if m.rowFill[i] != hi-lo {
			panic(fmt.Sprintf("sparse: row %d filled %d of %d declared entries",
				i, m.rowFill[i], hi-lo))
		}
		row := m.cols[lo:hi]
		sort.Ints(row)
		for k := 1; k < len(row); k++ {
			if row[k] == row[k-1] {
				panic(fmt.Sprintf("sparse: duplicate column %d in row %d", row[k], i))
			}
		}
	}
	m.rowFill = nil
	m.stage = stageBuilt
}

// Built reports whether the structure has been committed.
func (m *Matrix) Built() bool { return m.stage == stageBuilt }

func (m *Matrix) checkBuilt(op string) {
	if m.stage != stageBuilt {
		panic("sparse: " + op + " before EndIndices")
	}
}

// find returns the storage position of entry (row, col), or -1 if the entry
// is not part of the structure.
func (m *Matrix) find(row, col int) int {
	lo, hi := m.rowPtr[row], m.rowPtr[row+1]
	cols := m.cols[lo:hi]
	k := sort.SearchInts(cols, col)
	if k < len(cols) && cols[k] == col {
		return lo + k
	}
	return -1
}

// Exists reports whether (row, col) is a structural entry.
func (m *Matrix) Exists(row, col int) bool {
	m.checkBuilt("Exists")
	m.checkRow(row)
	return m.find(row, col) >= 0
}

// At returns the value of entry (row, col); entries outside the structure
// are zero.
func (m *Matrix) At(row, col int) float64 {
	m.checkBuilt("At")
	m.checkRow(row)
	if k := m.find(row, col); k >= 0 {
		return m.vals[k]
	}
	return 0
}

// Set overwrites a structural entry. Writing outside the committed pattern
// panics.
func (m *Matrix) Set(row, col int, v float64) {
	m.checkBuilt("Set")
	m.checkRow(row)
	k := m.find(row, col)
	if k < 0 {
		panic(fmt.Sprintf("sparse: entry (%d,%d) not in the committed structure", row, col))
	}
	m.vals[k] = v
}

// Add accumulates into a structural entry. Writing outside the committed
// pattern panics.
func (m *Matrix) Add(row, col int, v float64) {
	m.checkBuilt("Add")
	m.checkRow(row)
	k := m.find(row, col)
	if k < 0 {
		panic(fmt.Sprintf("sparse: entry (%d,%d) not in the committed structure", row, col))
	}
	m.vals[k] += v
}

// Clear zeroes all numeric entries, keeping the structure.
func (m *Matrix) Clear() {
	m.checkBuilt("Clear")
	for i := range m.vals {
		m.vals[i] = 0
	}
}

// RowIndices returns the column indices of a row, ascending. The slice
// aliases internal storage and must not be modified.
func (m *Matrix) RowIndices(row int) []int {
	m.checkBuilt("RowIndices")
	m.checkRow(row)
	return m.cols[m.rowPtr[row]:m.rowPtr[row+1]]
}

// RowValues returns the values of a row, in RowIndices order. The slice
// aliases internal storage.
func (m *Matrix) RowValues(row int) []float64 {
	m.checkBuilt("RowValues")
	m.checkRow(row)
	return m.vals[m.rowPtr[row]:m.rowPtr[row+1]]
}

// MulVec computes dst = M*x. dst and x must both have length N.
func (m *Matrix) MulVec(dst, x []float64) {
	m.checkBuilt("MulVec")
	if len(dst) != m.n || len(x) != m.n {
		panic(fmt.Sprintf("sparse: MulVec length mismatch: dst=%d x=%d n=%d",
			len(dst), len(x), m.n))
	}
	for i := 0; i < m.n; i++ {
		sum := 0.0
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			sum += m.vals[k] * x[m.cols[k]]
		}
		dst[i] = sum
	}
}
