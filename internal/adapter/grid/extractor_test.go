package grid

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/seaseries-api/internal/domain"
)

// createForecastFile writes a minimal daily forecast file: a 3x3
// stereographic grid with one land cell, depth levels 0/3/10 m, and an
// hourly temperature field whose value encodes (depth level, hour).
func createForecastFile(t *testing.T, path string, day time.Time, hours int) {
	t.Helper()

	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	defer func() { _ = f.Close() }()

	timeDim, _ := f.AddDim("time", uint64(hours))
	depthDim, _ := f.AddDim("depth", 3)
	yDim, _ := f.AddDim("y", 3)
	xDim, _ := f.AddDim("x", 3)

	vTime, _ := f.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	vDepth, _ := f.AddVar("depth", netcdf.DOUBLE, []netcdf.Dim{depthDim})
	vLat, _ := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{yDim, xDim})
	vLon, _ := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{yDim, xDim})
	vH, _ := f.AddVar("h", netcdf.DOUBLE, []netcdf.Dim{yDim, xDim})
	vProj, _ := f.AddVar("polar_stereographic", netcdf.INT, nil)
	vTemp, _ := f.AddVar("temperature", netcdf.DOUBLE, []netcdf.Dim{timeDim, depthDim, yDim, xDim})

	if err := vTime.Attr("units").WriteBytes([]byte("seconds since 1970-01-01 00:00:00")); err != nil {
		t.Fatalf("write time units: %v", err)
	}
	if err := vProj.Attr("proj4").WriteBytes([]byte(norkystProj4)); err != nil {
		t.Fatalf("write proj4: %v", err)
	}

	if err := f.EndDef(); err != nil {
		t.Fatalf("enddef: %v", err)
	}

	times := make([]float64, hours)
	for i := range times {
		// 30s offsets exercise whole-minute truncation.
		times[i] = float64(day.Add(time.Duration(i)*time.Hour).Unix()) + 30
	}
	if err := vTime.WriteFloat64s(times); err != nil {
		t.Fatalf("write time: %v", err)
	}
	if err := vDepth.WriteFloat64s([]float64{0, 3, 10}); err != nil {
		t.Fatalf("write depth: %v", err)
	}

	lats := make([]float64, 9)
	lons := make([]float64, 9)
	h := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			lats[i*3+j] = 60.0 + 0.01*float64(i)
			lons[i*3+j] = 5.0 + 0.01*float64(j)
			h[i*3+j] = 50 // sea
		}
	}
	h[1*3+1] = 5 // land cell in the middle: bathymetry minimum
	if err := vLat.WriteFloat64s(lats); err != nil {
		t.Fatalf("write lat: %v", err)
	}
	if err := vLon.WriteFloat64s(lons); err != nil {
		t.Fatalf("write lon: %v", err)
	}
	if err := vH.WriteFloat64s(h); err != nil {
		t.Fatalf("write h: %v", err)
	}

	temp := make([]float64, hours*3*9)
	for ti := 0; ti < hours; ti++ {
		for di := 0; di < 3; di++ {
			for c := 0; c < 9; c++ {
				temp[ti*27+di*9+c] = float64(100*di + ti)
			}
		}
	}
	if err := vTemp.WriteFloat64s(temp); err != nil {
		t.Fatalf("write temperature: %v", err)
	}
}

func TestExtract_SingleFileFullRange(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2021, 4, 11, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(dir, "day1.nc")
	createForecastFile(t, path, day, 24)

	e := NewExtractor([]string{path})
	got, err := e.Extract("temperature", 5.005, 60.005, []float64{0, 3, 10}, day, day.Add(23*time.Hour))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got.Len() != 24 {
		t.Fatalf("expected 24 rows, got %d", got.Len())
	}
	if len(got.Columns) != 3 {
		t.Fatalf("expected 3 depth columns, got %v", len(got.Columns))
	}
	// Timestamps must be minute-truncated UTC.
	if !got.Times[0].Equal(day) {
		t.Errorf("first timestamp: got %v, want %v", got.Times[0], day)
	}
	if got.Times[0].Location() != time.UTC {
		t.Errorf("timestamps not UTC-tagged: %v", got.Times[0].Location())
	}
	// Column per depth ordinal: value encodes 100*depthIndex + hour.
	if got.Columns[1].Values[5] != 105 {
		t.Errorf("depth 3m hour 5: got %v, want 105", got.Columns[1].Values[5])
	}
}

func TestExtract_NeverReadsLandCell(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2021, 4, 11, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(dir, "day1.nc")
	createForecastFile(t, path, day, 2)

	// Target sits on the land cell at grid (1,1); a sea neighbor must be
	// chosen and the read must still succeed.
	e := NewExtractor([]string{path})
	got, err := e.Extract("temperature", 5.01, 60.01, []float64{0}, day, day.Add(time.Hour))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.Len())
	}
}

func TestExtract_MultiFileStitchAndClamp(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2021, 4, 11, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	path1 := filepath.Join(dir, "day1.nc")
	path2 := filepath.Join(dir, "day2.nc")
	createForecastFile(t, path1, day1, 24)
	createForecastFile(t, path2, day2, 24)

	// Start mid-hour: the last time at or before 12:30 is 12:00.
	// End mid-hour: the first time at or after 05:30 next day is 06:00.
	start := day1.Add(12*time.Hour + 30*time.Minute)
	end := day2.Add(5*time.Hour + 30*time.Minute)

	e := NewExtractor([]string{path1, path2})
	got, err := e.Extract("temperature", 5.005, 60.005, []float64{3}, start, end)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// 12 rows from day1 (12:00-23:00) + 7 from day2 (00:00-06:00).
	if got.Len() != 19 {
		t.Fatalf("expected 19 rows, got %d", got.Len())
	}
	if !got.Times[0].Equal(day1.Add(12 * time.Hour)) {
		t.Errorf("first row: got %v", got.Times[0])
	}
	if !got.Times[18].Equal(day2.Add(6 * time.Hour)) {
		t.Errorf("last row: got %v", got.Times[18])
	}
	for i := 1; i < got.Len(); i++ {
		if !got.Times[i].After(got.Times[i-1]) {
			t.Fatalf("rows not chronological at %d", i)
		}
	}
}

func TestExtract_BoundsOutsideArchiveClampToEdges(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2021, 4, 11, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(dir, "day1.nc")
	createForecastFile(t, path, day, 24)

	e := NewExtractor([]string{path})
	got, err := e.Extract("temperature", 5.005, 60.005, []float64{0},
		day.Add(-6*time.Hour), day.Add(30*time.Hour))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Len() != 24 {
		t.Fatalf("expected the file's full 24 rows, got %d", got.Len())
	}
}

func TestExtract_MissingLeadingFileSkipped(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2021, 4, 11, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(dir, "day2.nc")
	createForecastFile(t, path, day, 24)

	e := NewExtractor([]string{filepath.Join(dir, "missing.nc"), path})
	got, err := e.Extract("temperature", 5.005, 60.005, []float64{0}, day, day.Add(23*time.Hour))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Len() != 24 {
		t.Fatalf("expected 24 rows from the surviving file, got %d", got.Len())
	}
}

func TestExtract_AllFilesMissing(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2021, 4, 11, 0, 0, 0, 0, time.UTC)

	e := NewExtractor([]string{filepath.Join(dir, "a.nc"), filepath.Join(dir, "b.nc")})
	_, err := e.Extract("temperature", 5.0, 60.0, []float64{0}, day, day.Add(time.Hour))
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestExtract_DepthNotOnAxis(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2021, 4, 11, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(dir, "day1.nc")
	createForecastFile(t, path, day, 2)

	e := NewExtractor([]string{path})
	_, err := e.Extract("temperature", 5.005, 60.005, []float64{15}, day, day.Add(time.Hour))
	if !errors.Is(err, domain.ErrDepthNotFound) {
		t.Fatalf("expected ErrDepthNotFound, got %v", err)
	}
}

func TestExtract_CellMemoizedAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2021, 4, 11, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(dir, "day1.nc")
	createForecastFile(t, path, day, 2)

	e := NewExtractor([]string{path})
	if _, err := e.Extract("temperature", 5.005, 60.005, []float64{0}, day, day.Add(time.Hour)); err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	if len(e.cells) != 1 {
		t.Fatalf("expected 1 memoized cell, got %d", len(e.cells))
	}
	if _, err := e.Extract("temperature", 5.005, 60.005, []float64{3}, day, day.Add(time.Hour)); err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if len(e.cells) != 1 {
		t.Fatalf("cell resolved again instead of reused: %d entries", len(e.cells))
	}
}

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		units string
		step  time.Duration
		epoch time.Time
		ok    bool
	}{
		{"seconds since 1970-01-01 00:00:00", time.Second, time.Unix(0, 0).UTC(), true},
		{"hours since 1900-01-01 00:00:00", time.Hour, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"days since 2000-01-01", 24 * time.Hour, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"fortnights since 2000-01-01", 0, time.Time{}, false},
		{"seconds", 0, time.Time{}, false},
	}
	for _, tc := range tests {
		epoch, step, err := parseTimeUnits(tc.units)
		if tc.ok && err != nil {
			t.Errorf("%q: unexpected error %v", tc.units, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("%q: expected error", tc.units)
			}
			continue
		}
		if step != tc.step || !epoch.Equal(tc.epoch) {
			t.Errorf("%q: got (%v, %v), want (%v, %v)", tc.units, epoch, step, tc.epoch, tc.step)
		}
	}
}

func TestArchiveFiles_OnePerDayInclusive(t *testing.T) {
	a := Archive{Template: "https://example.org/his.an.{date}00.nc"}
	start := time.Date(2021, 4, 11, 6, 0, 0, 0, time.UTC)
	end := time.Date(2021, 4, 13, 1, 0, 0, 0, time.UTC)

	files := a.Files(start, end)
	want := []string{
		"https://example.org/his.an.2021041100.nc",
		"https://example.org/his.an.2021041200.nc",
		"https://example.org/his.an.2021041300.nc",
	}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %d", len(want), len(files))
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d: got %s, want %s", i, files[i], want[i])
		}
	}
}

func TestSeaMask_DerivedFromBathymetryMinimum(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2021, 4, 11, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(dir, "day1.nc")
	createForecastFile(t, path, day, 1)

	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = nc.Close() }()

	mask, err := seaMaskFromBathymetry(nc)
	if err != nil {
		t.Fatalf("seaMaskFromBathymetry: %v", err)
	}
	if mask[1][1] {
		t.Errorf("bathymetry minimum cell should be land")
	}
	sea := 0
	for i := range mask {
		for j := range mask[i] {
			if mask[i][j] {
				sea++
			}
		}
	}
	if sea != 8 {
		t.Errorf("expected 8 sea cells, got %d", sea)
	}
}

// createAtmosFile writes a minimal daily atmospheric forecast file: the
// same 3x3 stereographic grid but with no bathymetry variable and a
// surface-only (time, y, x) field whose value encodes (cell, hour).
func createAtmosFile(t *testing.T, path string, day time.Time, hours int) {
	t.Helper()

	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	defer func() { _ = f.Close() }()

	timeDim, _ := f.AddDim("time", uint64(hours))
	yDim, _ := f.AddDim("y", 3)
	xDim, _ := f.AddDim("x", 3)

	vTime, _ := f.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	vLat, _ := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{yDim, xDim})
	vLon, _ := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{yDim, xDim})
	vProj, _ := f.AddVar("polar_stereographic", netcdf.INT, nil)
	vAir, _ := f.AddVar("air_temperature_2m", netcdf.DOUBLE, []netcdf.Dim{timeDim, yDim, xDim})

	if err := vTime.Attr("units").WriteBytes([]byte("seconds since 1970-01-01 00:00:00")); err != nil {
		t.Fatalf("write time units: %v", err)
	}
	if err := vProj.Attr("proj4").WriteBytes([]byte(norkystProj4)); err != nil {
		t.Fatalf("write proj4: %v", err)
	}

	if err := f.EndDef(); err != nil {
		t.Fatalf("enddef: %v", err)
	}

	times := make([]float64, hours)
	for i := range times {
		times[i] = float64(day.Add(time.Duration(i) * time.Hour).Unix())
	}
	if err := vTime.WriteFloat64s(times); err != nil {
		t.Fatalf("write time: %v", err)
	}

	lats := make([]float64, 9)
	lons := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			lats[i*3+j] = 60.0 + 0.01*float64(i)
			lons[i*3+j] = 5.0 + 0.01*float64(j)
		}
	}
	if err := vLat.WriteFloat64s(lats); err != nil {
		t.Fatalf("write lat: %v", err)
	}
	if err := vLon.WriteFloat64s(lons); err != nil {
		t.Fatalf("write lon: %v", err)
	}

	air := make([]float64, hours*9)
	for ti := 0; ti < hours; ti++ {
		for c := 0; c < 9; c++ {
			air[ti*9+c] = float64(10*c + ti)
		}
	}
	if err := vAir.WriteFloat64s(air); err != nil {
		t.Fatalf("write air_temperature_2m: %v", err)
	}
}

func TestExtract_NoBathymetryAllCellsUsable(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2021, 4, 11, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(dir, "day1.nc")
	createAtmosFile(t, path, day, 4)

	// The target sits on the center cell, which the ocean grid masks as
	// land. Without a bathymetry variable every cell is usable, so the
	// center cell itself must be read.
	e := NewExtractor([]string{path})
	got, err := e.Extract("air_temperature_2m", 5.01, 60.01, nil, day, day.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", got.Len())
	}
	if len(got.Columns) != 1 || got.Columns[0].Name != "air_temperature_2m0" {
		t.Fatalf("columns: got %v", got.Columns)
	}
	// Cell (1,1) is flat index 4; value encodes 10*cell + hour.
	for hour, v := range got.Columns[0].Values {
		if v != float64(40+hour) {
			t.Errorf("hour %d: got %v, want %v", hour, v, 40+hour)
		}
	}
}
