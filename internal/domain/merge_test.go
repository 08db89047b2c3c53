package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func testDataset(t *testing.T, start time.Time, hours int) *Dataset {
	t.Helper()
	grid, err := BuildTimeGrid(start, start.Add(time.Duration(hours-1)*time.Hour))
	if err != nil {
		t.Fatalf("BuildTimeGrid: %v", err)
	}
	return NewDataset(grid)
}

func TestMergeSeries_PreservesGridRows(t *testing.T) {
	base := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	d := testDataset(t, base, 24)

	raw := Series{
		Times:   hourly(base, 24),
		Columns: []Column{{Name: "air_temperature", Values: make([]float64, 24)}},
	}
	if err := MergeSeries(d, raw, "SN18700air_temperature"); err != nil {
		t.Fatalf("MergeSeries: %v", err)
	}

	if d.Grid.Len() != 24 {
		t.Fatalf("grid row count changed: %d", d.Grid.Len())
	}
	if len(d.Columns) != 1 || d.Columns[0].Name != "SN18700air_temperature0" {
		t.Fatalf("unexpected columns: %v", d.ColumnNames())
	}
}

func TestMergeSeries_MissingHourImputedFromNearest(t *testing.T) {
	base := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	d := testDataset(t, base, 24)

	// A complete 24-row window except hour 10.
	times := make([]time.Time, 0, 23)
	values := make([]float64, 0, 23)
	for i := 0; i < 24; i++ {
		if i == 10 {
			continue
		}
		times = append(times, base.Add(time.Duration(i)*time.Hour))
		values = append(values, float64(i))
	}
	raw := Series{Times: times, Columns: []Column{{Name: "wind_speed", Values: values}}}

	if err := MergeSeries(d, raw, "SN50540wind_speed"); err != nil {
		t.Fatalf("MergeSeries: %v", err)
	}

	// Hour 10 is equidistant from hours 9 and 11; the earlier one wins.
	got := d.Columns[0].Values[10]
	if got != 9 {
		t.Errorf("imputed value: got %v, want 9 (earlier neighbor)", got)
	}
	// All other hours keep their observed values.
	for i := 0; i < 24; i++ {
		if i == 10 {
			continue
		}
		if d.Columns[0].Values[i] != float64(i) {
			t.Errorf("hour %d: got %v, want %d", i, d.Columns[0].Values[i], i)
		}
	}
}

func TestMergeSeries_ExactCoverSkipsImputation(t *testing.T) {
	base := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	d := testDataset(t, base, 6)

	raw := Series{
		Times:   hourly(base, 6),
		Columns: []Column{{Name: "x", Values: []float64{0, 1, 2, 3, 4, 5}}},
	}
	if err := MergeSeries(d, raw, "p"); err != nil {
		t.Fatalf("MergeSeries: %v", err)
	}
	for i := 0; i < 6; i++ {
		if d.Columns[0].Values[i] != float64(i) {
			t.Errorf("row %d altered: %v", i, d.Columns[0].Values[i])
		}
	}
}

func TestMergeSeries_PrefixesKeepColumnsDistinct(t *testing.T) {
	base := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	d := testDataset(t, base, 3)

	raw := Series{
		Times: hourly(base, 3),
		Columns: []Column{
			{Name: "relative_humidity", Values: []float64{80, 81, 82}},
			{Name: "relative_humidity level2", Values: []float64{70, 71, 72}},
		},
	}
	if err := MergeSeries(d, raw, "SN1relative_humidity"); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if err := MergeSeries(d, raw, "SN2relative_humidity"); err != nil {
		t.Fatalf("second merge: %v", err)
	}

	names := d.ColumnNames()
	seen := map[string]bool{}
	for _, n := range names {
		if seen[n] {
			t.Fatalf("duplicate column name %q in %v", n, names)
		}
		seen[n] = true
	}
	if len(names) != 4 {
		t.Fatalf("expected 4 columns, got %v", names)
	}
}

func TestMergeSeries_SameGridPrefixCollisionFails(t *testing.T) {
	base := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	d := testDataset(t, base, 2)

	raw := Series{
		Times:   hourly(base, 2),
		Columns: []Column{{Name: "x", Values: []float64{1, 2}}},
	}
	if err := MergeSeries(d, raw, "p"); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	err := MergeSeries(d, raw, "p")
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch on column collision, got %v", err)
	}
}

func TestMergeSeries_MalformedColumnLength(t *testing.T) {
	base := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	d := testDataset(t, base, 2)

	raw := Series{
		Times:   hourly(base, 2),
		Columns: []Column{{Name: "x", Values: []float64{1}}},
	}
	err := MergeSeries(d, raw, "p")
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestLeftJoin_NoImputation(t *testing.T) {
	base := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	d := testDataset(t, base, 4)

	// Primary series misses hour 2; left join must leave the gap.
	raw := Series{
		Times: []time.Time{base, base.Add(time.Hour), base.Add(3 * time.Hour)},
		Columns: []Column{
			{Name: "water_temp", Values: []float64{18.1, 18.2, 18.4}},
		},
	}
	if err := d.LeftJoin(raw); err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}

	vals := d.Columns[0].Values
	if !math.IsNaN(vals[2]) {
		t.Errorf("gap was fabricated: got %v at missing hour", vals[2])
	}
	if vals[0] != 18.1 || vals[1] != 18.2 || vals[3] != 18.4 {
		t.Errorf("observed values altered: %v", vals)
	}
	if d.CountObserved("water_temp") != 3 {
		t.Errorf("expected 3 observed values, got %d", d.CountObserved("water_temp"))
	}
}

func TestMergeSeries_EmptySeriesIsNoOp(t *testing.T) {
	base := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	d := testDataset(t, base, 2)

	if err := MergeSeries(d, Series{}, "p"); err != nil {
		t.Fatalf("MergeSeries on empty series: %v", err)
	}
	if len(d.Columns) != 0 {
		t.Fatalf("empty series added columns: %v", d.ColumnNames())
	}
}
