package grid

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/seaseries-api/internal/domain"
)

// depthEpsilon is the tolerance for matching a requested depth against
// the grid's discrete depth-level axis (meters).
const depthEpsilon = 1e-6

// cellKey identifies a resolved grid cell: the site coordinates plus
// the identity of the grid it was resolved against.
type cellKey struct {
	lat, lon float64
	gridID   string
}

type resolvedCell struct {
	cell   domain.CellIndex
	depths []float64 // the reference file's depth axis
}

// Extractor reads single-cell time series from a set of daily gridded
// NetCDF files covering one time span. The nearest sea cell is resolved
// once per (site, grid) and memoized for reuse across parameters and
// depths.
type Extractor struct {
	files []string
	cells map[cellKey]resolvedCell
}

// NewExtractor creates an extractor over the given files, which must be
// in chronological order.
func NewExtractor(files []string) *Extractor {
	return &Extractor{
		files: files,
		cells: make(map[cellKey]resolvedCell),
	}
}

// Extract reads the named parameter at the sea cell nearest to
// (lon, lat), at each requested depth, over [start, end]. The first
// file's time window starts at the last time at or before start, the
// last file's window ends at the first time at or after end, both
// clamped to the file's bounds; middle files contribute their full
// span. Files that fail to open or read are logged and skipped, so the
// result may cover only part of the requested range.
func (e *Extractor) Extract(param string, lon, lat float64, depths []float64, start, end time.Time) (domain.Series, error) {
	if start.After(end) {
		return domain.Series{}, fmt.Errorf("%w: start %s after end %s",
			domain.ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if len(e.files) == 0 {
		return domain.Series{}, fmt.Errorf("%w: no files cover %s/%s",
			domain.ErrEmptyResult, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	// The archive may have holes at the front of the range; drop leading
	// files that cannot be opened so the first usable file defines the
	// grid.
	files, ref := e.openFirst()
	if ref == nil {
		return domain.Series{}, fmt.Errorf("%w: no file in range could be opened", domain.ErrEmptyResult)
	}

	resolved, err := e.resolveCell(*ref, files[0], lon, lat)
	closeDataset(*ref)
	if err != nil {
		return domain.Series{}, err
	}

	depthIdx, err := depthIndices(resolved.depths, depths)
	if err != nil {
		return domain.Series{}, err
	}

	parts := make([]domain.Series, 0, len(files))
	for i, file := range files {
		first := i == 0
		last := i == len(files)-1
		part, err := e.readFile(file, param, resolved.cell, depths, depthIdx, start, end, first, last)
		if err != nil {
			log.Printf("skipping %s: %v", file, err)
			continue
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return domain.Series{}, fmt.Errorf("%w: every file read failed for %q", domain.ErrEmptyResult, param)
	}
	return domain.ConcatSeries(parts), nil
}

// openFirst opens files in order until one succeeds, returning the
// surviving tail of the file list and the open reference dataset.
func (e *Extractor) openFirst() ([]string, *netcdf.Dataset) {
	for i, file := range e.files {
		nc, err := netcdf.OpenFile(file, netcdf.NOWRITE)
		if err != nil {
			log.Printf("no file for %s, trying next day: %v", file, err)
			continue
		}
		return e.files[i:], &nc
	}
	return nil, nil
}

// resolveCell locates the nearest sea cell for the site, memoized per
// (site coordinates, grid identity).
func (e *Extractor) resolveCell(nc netcdf.Dataset, gridID string, lon, lat float64) (resolvedCell, error) {
	key := cellKey{lat: lat, lon: lon, gridID: gridID}
	if cached, ok := e.cells[key]; ok {
		return cached, nil
	}

	proj, err := gridProjection(nc)
	if err != nil {
		return resolvedCell{}, err
	}

	latVar, err := findVar(nc, latAliases)
	if err != nil {
		return resolvedCell{}, err
	}
	lats, err := read2DFloat64(latVar)
	if err != nil {
		return resolvedCell{}, fmt.Errorf("failed to read latitude grid: %w", err)
	}
	lonVar, err := findVar(nc, lonAliases)
	if err != nil {
		return resolvedCell{}, err
	}
	lons, err := read2DFloat64(lonVar)
	if err != nil {
		return resolvedCell{}, fmt.Errorf("failed to read longitude grid: %w", err)
	}

	seaMask, err := seaMaskFromBathymetry(nc)
	if err != nil {
		return resolvedCell{}, err
	}
	if seaMask == nil {
		seaMask = allUsable(lats)
	}

	gridX, gridY := proj.forwardGrid(lons, lats)
	x, y := proj.Forward(lon, lat)
	cell, err := domain.LocateSeaCell(x, y, gridX, gridY, seaMask)
	if err != nil {
		return resolvedCell{}, err
	}
	log.Printf("site (%.4f, %.4f) resolved to grid cell (%d, %d) at (%.4f, %.4f)",
		lat, lon, cell.Row, cell.Col, lats[cell.Row][cell.Col], lons[cell.Row][cell.Col])

	depthAxis, err := readDepthAxis(nc)
	if err != nil {
		return resolvedCell{}, err
	}

	resolved := resolvedCell{cell: cell, depths: depthAxis}
	e.cells[key] = resolved
	return resolved, nil
}

// gridProjection builds the forward projection from the file's grid
// mapping variable.
func gridProjection(nc netcdf.Dataset) (*stereographic, error) {
	v, err := findVar(nc, projVarAliases)
	if err != nil {
		return nil, err
	}
	for _, attr := range projAttrAliases {
		if s, ok := readStringAttr(v, attr); ok {
			return newStereographic(s)
		}
	}
	return nil, fmt.Errorf("%w: grid mapping variable has no proj attribute (tried %v)",
		domain.ErrSchemaMismatch, projAttrAliases)
}

// seaMaskFromBathymetry derives the land/sea mask from the model
// bathymetry: cells pinned at the minimum value are land. A file with
// no bathymetry variable (atmospheric grids) yields a nil mask, meaning
// every cell is usable.
func seaMaskFromBathymetry(nc netcdf.Dataset) ([][]bool, error) {
	v, err := findVar(nc, bathyAliases)
	if err != nil {
		return nil, nil
	}
	h, err := read2DFloat64(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read bathymetry: %w", err)
	}

	landValue := math.Inf(1)
	for i := range h {
		for j := range h[i] {
			if h[i][j] < landValue {
				landValue = h[i][j]
			}
		}
	}
	mask := make([][]bool, len(h))
	for i := range h {
		mask[i] = make([]bool, len(h[i]))
		for j := range h[i] {
			mask[i][j] = h[i][j] != landValue
		}
	}
	return mask, nil
}

// allUsable builds a mask the shape of the coordinate grid with every
// cell selectable.
func allUsable(shape [][]float64) [][]bool {
	mask := make([][]bool, len(shape))
	for i := range shape {
		mask[i] = make([]bool, len(shape[i]))
		for j := range mask[i] {
			mask[i][j] = true
		}
	}
	return mask
}

// readDepthAxis reads the discrete depth-level axis; a file without one
// (surface-only parameters) yields nil.
func readDepthAxis(nc netcdf.Dataset) ([]float64, error) {
	v, err := findVar(nc, depthAliases)
	if err != nil {
		return nil, nil
	}
	axis, err := read1DFloat64(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read depth axis: %w", err)
	}
	return axis, nil
}

// depthIndices resolves each requested depth against the axis. A depth
// absent from the axis is an error, not a nearest-level substitution:
// silently reading 15 m when the caller asked for 10 m would poison the
// dataset.
func depthIndices(axis, depths []float64) ([]int, error) {
	if len(depths) == 0 {
		return nil, nil
	}
	if len(axis) == 0 {
		return nil, fmt.Errorf("%w: file has no depth axis but depths %v were requested",
			domain.ErrDepthNotFound, depths)
	}
	idx := make([]int, len(depths))
	for i, d := range depths {
		found := -1
		for j, level := range axis {
			if math.Abs(level-d) < depthEpsilon {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("%w: depth %g not in axis %v", domain.ErrDepthNotFound, d, axis)
		}
		idx[i] = found
	}
	return idx, nil
}

// readFile extracts the cell series from one file.
func (e *Extractor) readFile(file, param string, cell domain.CellIndex, depths []float64, depthIdx []int,
	start, end time.Time, first, last bool) (domain.Series, error) {

	nc, err := netcdf.OpenFile(file, netcdf.NOWRITE)
	if err != nil {
		return domain.Series{}, fmt.Errorf("failed to open: %w", err)
	}
	defer closeDataset(nc)

	times, err := readTimeAxis(nc)
	if err != nil {
		return domain.Series{}, err
	}
	if len(times) == 0 {
		return domain.Series{}, fmt.Errorf("%w: file has an empty time axis", domain.ErrSchemaMismatch)
	}

	// Window into this file's time axis. Out-of-range bounds clamp to
	// the file's edges instead of erroring.
	t1 := 0
	if first {
		t1 = lastAtOrBefore(times, start)
	}
	t2 := len(times) - 1
	if last {
		t2 = firstAtOrAfter(times, end)
	}
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	n := t2 - t1 + 1

	v, err := nc.Var(param)
	if err != nil {
		return domain.Series{}, fmt.Errorf("%w: no variable %q", domain.ErrSchemaMismatch, param)
	}
	lens, err := varLens(v)
	if err != nil {
		return domain.Series{}, err
	}

	var columns []domain.Column
	switch len(lens) {
	case 4: // (time, depth, row, col)
		if len(depthIdx) == 0 {
			return domain.Series{}, fmt.Errorf("%w: %q is depth-resolved but no depths were requested",
				domain.ErrDepthNotFound, param)
		}
		for i, di := range depthIdx {
			vals, err := readFlat(v,
				[]uint64{uint64(t1), uint64(di), uint64(cell.Row), uint64(cell.Col)},
				[]uint64{uint64(n), 1, 1, 1}, n)
			if err != nil {
				return domain.Series{}, fmt.Errorf("failed to read %q at depth %g: %w", param, depths[i], err)
			}
			columns = append(columns, domain.Column{
				Name:   fmt.Sprintf("%s%d", param, i),
				Values: vals,
			})
		}
	case 3: // (time, row, col)
		vals, err := readFlat(v,
			[]uint64{uint64(t1), uint64(cell.Row), uint64(cell.Col)},
			[]uint64{uint64(n), 1, 1}, n)
		if err != nil {
			return domain.Series{}, fmt.Errorf("failed to read %q: %w", param, err)
		}
		columns = []domain.Column{{Name: param + "0", Values: vals}}
	default:
		return domain.Series{}, fmt.Errorf("%w: %q has %d dimensions (expected 3 or 4)",
			domain.ErrSchemaMismatch, param, len(lens))
	}

	return domain.Series{
		Times:   times[t1 : t2+1],
		Columns: columns,
	}, nil
}

// lastAtOrBefore returns the index of the last time at or before t,
// clamped to 0 when every time lies after t.
func lastAtOrBefore(times []time.Time, t time.Time) int {
	idx := 0
	for i, ts := range times {
		if ts.After(t) {
			break
		}
		idx = i
	}
	return idx
}

// firstAtOrAfter returns the index of the first time at or after t,
// clamped to the last index when every time lies before t.
func firstAtOrAfter(times []time.Time, t time.Time) int {
	for i, ts := range times {
		if !ts.Before(t) {
			return i
		}
	}
	return len(times) - 1
}

func closeDataset(nc netcdf.Dataset) {
	_ = nc.Close()
}
