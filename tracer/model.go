package tracer

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/porousflow/tracerkernel/mesh"
	"github.com/porousflow/tracerkernel/sparse"
)

// Model owns the per-species concentration fields and the shared transport
// Jacobian structure. The grid view, Cartesian mapper and centroid lookup
// are borrowed read-only from the surrounding simulator; the matrix and the
// field arrays are owned and mutated exclusively here.
type Model struct {
	grid      mesh.GridView
	cart      mesh.CartesianMapper
	centroids mesh.CentroidFunc
	species   []Species

	phaseIdx            []int       // per species, caller's phase numbering
	concentration       [][]float64 // [species][dof]
	storageOfTimeIndex1 [][]float64 // [species][dof], previous-step storage term
	residual            []float64   // [dof], filled by the assembly layer
	matrix              *sparse.Matrix
	cartToGlobal        []int // Cartesian cell -> active dof, -1 for inactive
}

// NewModel creates a model over the given grid and species table. Init must
// be called before the field and matrix accessors are used.
func NewModel(grid mesh.GridView, cart mesh.CartesianMapper, centroids mesh.CentroidFunc, species []Species) *Model {
	return &Model{
		grid:      grid,
		cart:      cart,
		centroids: centroids,
		species:   species,
	}
}

// NumTracers returns the species count.
func (m *Model) NumTracers() int { return len(m.species) }

// Name returns the name of a species.
func (m *Model) Name(tracerIdx int) string { return m.species[tracerIdx].Name }

// OutputFileName returns the file name the species' field is reported
// under.
func (m *Model) OutputFileName(tracerIdx int) string {
	if fname := m.species[tracerIdx].OutputFile; fname != "" {
		return fname
	}
	return m.species[tracerIdx].Name
}

// PhaseIndex returns the caller-supplied phase index a species travels
// with. Valid after Init.
func (m *Model) PhaseIndex(tracerIdx int) int { return m.phaseIdx[tracerIdx] }

// Concentration returns the concentration of a tracer at a dof, or 0 when
// tracer treatment is disabled or uninitialized. Indices are not bounds
// checked.
func (m *Model) Concentration(tracerIdx, dof int) float64 {
	if len(m.concentration) == 0 {
		return 0
	}
	return m.concentration[tracerIdx][dof]
}

// SetConcentration writes through to the stored field.
func (m *Model) SetConcentration(tracerIdx, dof int, value float64) {
	m.concentration[tracerIdx][dof] = value
}

// Matrix returns the shared transport Jacobian. The structure is committed
// by Init; callers overwrite numeric entries only.
func (m *Model) Matrix() *sparse.Matrix { return m.matrix }

// Residual returns the per-dof residual buffer owned by the model and
// filled by the assembly layer.
func (m *Model) Residual() []float64 { return m.residual }

// StorageOfTimeIndex1 returns a species' previous-step storage array. The
// memory is owned here; values are maintained by the assembly layer.
func (m *Model) StorageOfTimeIndex1(tracerIdx int) []float64 {
	return m.storageOfTimeIndex1[tracerIdx]
}

// CartToGlobal returns the active dof of a Cartesian cell, or -1 when the
// cell is inactive. Valid after Init.
func (m *Model) CartToGlobal(cart int) int { return m.cartToGlobal[cart] }

// Init allocates the field arrays, seeds the initial concentrations and
// commits the matrix structure. On restart the initialization sources are
// not consulted; persisted concentrations are loaded by the checkpoint
// layer through SetConcentration.
//
// The phase index arguments translate each species' Phase into the caller's
// phase numbering.
func (m *Model) Init(restart bool, numGridDof int, gasPhaseIdx, oilPhaseIdx, waterPhaseIdx int) error {
	if len(m.species) == 0 {
		return nil // tracer treatment disabled
	}

	numTracers := len(m.species)
	m.concentration = make([][]float64, numTracers)
	m.storageOfTimeIndex1 = make([][]float64, numTracers)
	m.phaseIdx = make([]int, numTracers)

	for tracerIdx := range m.species {
		sp := &m.species[tracerIdx]

		switch sp.Phase {
		case WaterPhase:
			m.phaseIdx[tracerIdx] = waterPhaseIdx
		case OilPhase:
			m.phaseIdx[tracerIdx] = oilPhaseIdx
		case GasPhase:
			m.phaseIdx[tracerIdx] = gasPhaseIdx
		}

		m.concentration[tracerIdx] = make([]float64, numGridDof)
		m.storageOfTimeIndex1[tracerIdx] = make([]float64, numGridDof)

		if restart {
			continue
		}

		switch {
		case sp.FreeConcentration != nil:
			if len(sp.FreeConcentration) < m.cart.CartesianSize() {
				return fmt.Errorf("tracer: wrong size of initial free concentration table for %s: "+
					"have %d entries, Cartesian grid has %d cells",
					sp.Name, len(sp.FreeConcentration), m.cart.CartesianSize())
			}
			for dof := 0; dof < numGridDof; dof++ {
				cart := m.cart.CartesianIndex(dof)
				m.concentration[tracerIdx][dof] = sp.FreeConcentration[cart]
			}
		case sp.DepthCorrelation != nil:
			for dof := 0; dof < numGridDof; dof++ {
				depth := m.centroids(dof)[2]
				m.concentration[tracerIdx][dof] = sp.DepthCorrelation.Evaluate(depth)
			}
		default:
			return fmt.Errorf("tracer: can not initialize tracer %s: no initialization source", sp.Name)
		}
	}

	m.residual = make([]float64, numGridDof)
	m.matrix = buildMatrixStructure(m.grid, numGridDof)

	m.cartToGlobal = make([]int, m.cart.CartesianSize())
	for i := range m.cartToGlobal {
		m.cartToGlobal[i] = -1
	}
	for dof := 0; dof < numGridDof; dof++ {
		m.cartToGlobal[m.cart.CartesianIndex(dof)] = dof
	}

	logrus.WithFields(logrus.Fields{
		"tracers": numTracers,
		"dofs":    numGridDof,
	}).Debug("tracer model initialized")
	return nil
}

// buildMatrixStructure discovers the dof connectivity through the grid's
// element stencils and commits a matrix with exactly that structure. Each
// primary dof of an element is coupled with every stencil dof, so the
// structure is symmetric by construction and always contains the diagonal.
func buildMatrixStructure(grid mesh.GridView, numGridDof int) *sparse.Matrix {
	neighbors := make([]map[int]struct{}, numGridDof)
	for i := range neighbors {
		neighbors[i] = make(map[int]struct{})
	}

	stencil := grid.NewStencil()
	for element := 0; element < grid.NumElements(); element++ {
		stencil.Update(element)
		for primary := 0; primary < stencil.NumPrimaryDof(); primary++ {
			myIdx := stencil.GlobalSpaceIndex(primary)
			for pos := 0; pos < stencil.NumDof(); pos++ {
				neighbors[myIdx][stencil.GlobalSpaceIndex(pos)] = struct{}{}
			}
		}
	}

	// The stencil contract puts every primary dof in its own stencil, which
	// is what guarantees the diagonal. Check it instead of trusting it.
	for dof, set := range neighbors {
		if _, ok := set[dof]; !ok {
			panic(fmt.Sprintf("tracer: stencil contract violated: dof %d is not in its own neighbor set", dof))
		}
	}

	matrix := sparse.NewMatrix(numGridDof)
	for dof, set := range neighbors {
		matrix.SetRowSize(dof, len(set))
	}
	matrix.EndRowSizes()

	row := make([]int, 0, 8)
	for dof, set := range neighbors {
		row = row[:0]
		for nb := range set {
			row = append(row, nb)
		}
		sort.Ints(row)
		for _, nb := range row {
			matrix.AddIndex(dof, nb)
		}
	}
	matrix.EndIndices()
	return matrix
}
