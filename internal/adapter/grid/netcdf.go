// Package grid extracts single-cell time series from gridded forecast
// archives stored as NetCDF files.
package grid

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/seaseries-api/internal/domain"
)

// Known coordinate-variable aliases, resolved in order against each
// file's schema. No name matching means the file is malformed for our
// purposes; we fail instead of guessing.
var (
	latAliases      = []string{"latitude", "lat"}
	lonAliases      = []string{"longitude", "lon"}
	depthAliases    = []string{"depth", "z"}
	timeAliases     = []string{"time"}
	bathyAliases    = []string{"h", "model_depth"}
	projVarAliases  = []string{"polar_stereographic", "projection_stere", "grid_mapping"}
	projAttrAliases = []string{"proj4", "proj4string"}
)

// findVar resolves the first alias present in the file.
func findVar(nc netcdf.Dataset, aliases []string) (netcdf.Var, error) {
	for _, name := range aliases {
		if v, err := nc.Var(name); err == nil {
			return v, nil
		}
	}
	return netcdf.Var{}, fmt.Errorf("%w: no variable named any of %v", domain.ErrSchemaMismatch, aliases)
}

// readStringAttr reads a character attribute as a string.
func readStringAttr(v netcdf.Var, name string) (string, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return "", false
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", false
	}
	return strings.TrimRight(string(buf), "\x00"), true
}

// readFloat64Attr reads a numeric attribute as float64.
func readFloat64Attr(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	buf64 := make([]float64, 1)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	buf32 := make([]float32, 1)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	bufi := make([]int32, 1)
	if err := a.ReadInt32s(bufi); err == nil {
		return float64(bufi[0]), true
	}
	return 0, false
}

// varLens returns the dimension lengths of a variable.
func varLens(v netcdf.Var) ([]int, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	lens := make([]int, len(dims))
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, fmt.Errorf("failed to get dim %d length: %w", i, err)
		}
		lens[i] = int(n)
	}
	return lens, nil
}

// read1DFloat64 reads a 1-D variable of any supported numeric type.
func read1DFloat64(v netcdf.Var) ([]float64, error) {
	lens, err := varLens(v)
	if err != nil {
		return nil, err
	}
	if len(lens) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(lens))
	}
	return readFlat(v, nil, nil, lens[0])
}

// read2DFloat64 reads a full 2-D variable into rows.
func read2DFloat64(v netcdf.Var) ([][]float64, error) {
	lens, err := varLens(v)
	if err != nil {
		return nil, err
	}
	if len(lens) != 2 {
		return nil, fmt.Errorf("expected 2D variable, got %dD", len(lens))
	}
	flat, err := readFlat(v, nil, nil, lens[0]*lens[1])
	if err != nil {
		return nil, err
	}
	rows := make([][]float64, lens[0])
	for i := range rows {
		rows[i] = flat[i*lens[1] : (i+1)*lens[1]]
	}
	return rows, nil
}

// readFlat reads a variable (or a hyperslab of it when start/count are
// non-nil) into float64, converting from the on-disk type and applying
// scale_factor, add_offset, and fill-value handling. Fill values map to
// NaN so they surface as absent observations, not huge artifacts.
func readFlat(v netcdf.Var, start, count []uint64, total int) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}

	var flat []float64
	switch varType {
	case netcdf.DOUBLE:
		flat = make([]float64, total)
		if start != nil {
			err = v.ReadFloat64Slice(flat, start, count)
		} else {
			err = v.ReadFloat64s(flat)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read float64: %w", err)
		}
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if start != nil {
			err = v.ReadFloat32Slice(tmp, start, count)
		} else {
			err = v.ReadFloat32s(tmp)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read float32: %w", err)
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.INT:
		tmp := make([]int32, total)
		if start != nil {
			err = v.ReadInt32Slice(tmp, start, count)
		} else {
			err = v.ReadInt32s(tmp)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read int32: %w", err)
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if start != nil {
			err = v.ReadInt16Slice(tmp, start, count)
		} else {
			err = v.ReadInt16s(tmp)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read int16: %w", err)
		}
		flat = make([]float64, total)
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.BYTE, netcdf.CHAR, netcdf.UBYTE, netcdf.USHORT, netcdf.UINT, netcdf.INT64, netcdf.UINT64, netcdf.STRING:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	default:
		return nil, fmt.Errorf("unsupported data type: %v", varType)
	}

	if fill, ok := fillValue(v); ok {
		for i := range flat {
			if flat[i] == fill {
				flat[i] = math.NaN()
			}
		}
	}
	if scale, ok := readFloat64Attr(v, "scale_factor"); ok && scale != 0 {
		for i := range flat {
			flat[i] *= scale
		}
	}
	if offset, ok := readFloat64Attr(v, "add_offset"); ok {
		for i := range flat {
			flat[i] += offset
		}
	}
	return flat, nil
}

// fillValue returns the _FillValue or missing_value attribute if present.
func fillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		if fv, ok := readFloat64Attr(v, name); ok {
			return fv, true
		}
	}
	return 0, false
}

// parseTimeUnits decodes a CF-style time units attribute such as
// "seconds since 1970-01-01 00:00:00" into an epoch and a step.
func parseTimeUnits(units string) (time.Time, time.Duration, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("%w: time units %q lack a 'since' clause", domain.ErrSchemaMismatch, units)
	}

	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "sec", "secs":
		step = time.Second
	case "minutes", "minute", "min", "mins":
		step = time.Minute
	case "hours", "hour", "hr", "hrs":
		step = time.Hour
	case "days", "day":
		step = 24 * time.Hour
	default:
		return time.Time{}, 0, fmt.Errorf("%w: unsupported time unit %q", domain.ErrSchemaMismatch, parts[0])
	}

	stamp := strings.TrimSpace(parts[1])
	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if epoch, err := time.ParseInLocation(layout, stamp, time.UTC); err == nil {
			return epoch, step, nil
		}
	}
	return time.Time{}, 0, fmt.Errorf("%w: unparseable time epoch %q", domain.ErrSchemaMismatch, stamp)
}

// readTimeAxis decodes a file's time variable into UTC timestamps,
// truncated to whole-minute precision: some archives carry sub-minute
// offsets that would otherwise defeat exact-timestamp joins.
func readTimeAxis(nc netcdf.Dataset) ([]time.Time, error) {
	v, err := findVar(nc, timeAliases)
	if err != nil {
		return nil, err
	}
	units, ok := readStringAttr(v, "units")
	if !ok {
		return nil, fmt.Errorf("%w: time variable has no units attribute", domain.ErrSchemaMismatch)
	}
	epoch, step, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	raw, err := read1DFloat64(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read time axis: %w", err)
	}

	times := make([]time.Time, len(raw))
	for i, val := range raw {
		t := epoch.Add(time.Duration(val * float64(step)))
		times[i] = t.UTC().Truncate(time.Minute)
	}
	return times, nil
}
