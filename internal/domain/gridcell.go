package domain

import "fmt"

// CellIndex addresses one cell of a 2-D projected grid.
type CellIndex struct {
	Row int
	Col int
}

// LocateSeaCell returns the index of the sea cell closest to the
// projected point (x, y). gridX and gridY hold each cell's projected
// coordinates, seaMask is true for sea cells. Distances are squared
// planar distances in the grid's map projection. Land cells are
// excluded from the minimum outright, not distance-penalized: the
// coordinates are meters, and at archive scale the squared distance to
// a far sea cell can exceed any fixed penalty. Fails with ErrNoSeaCell
// when the mask contains no sea at all.
func LocateSeaCell(x, y float64, gridX, gridY [][]float64, seaMask [][]bool) (CellIndex, error) {
	if len(gridX) == 0 || len(gridX) != len(gridY) || len(gridX) != len(seaMask) {
		return CellIndex{}, fmt.Errorf("%w: grid coordinate and mask shapes differ", ErrSchemaMismatch)
	}

	best := CellIndex{}
	bestDist := 0.0
	found := false

	for i := range gridX {
		if len(gridX[i]) != len(gridY[i]) || len(gridX[i]) != len(seaMask[i]) {
			return CellIndex{}, fmt.Errorf("%w: grid row %d has inconsistent width", ErrSchemaMismatch, i)
		}
		for j := range gridX[i] {
			if !seaMask[i][j] {
				continue
			}
			dx := gridX[i][j] - x
			dy := gridY[i][j] - y
			d := dx*dx + dy*dy
			if !found || d < bestDist {
				best = CellIndex{Row: i, Col: j}
				bestDist = d
				found = true
			}
		}
	}

	if !found {
		return CellIndex{}, fmt.Errorf("%w: %dx%d cells are all land", ErrNoSeaCell, len(seaMask), len(seaMask[0]))
	}
	return best, nil
}
