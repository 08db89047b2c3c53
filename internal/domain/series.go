// Package domain holds the alignment, imputation, and nearest-neighbor
// matching engine for coastal dataset assembly. It is pure computation:
// collaborators fetch raw series, the engine conforms them onto the
// canonical hourly grid.
package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Column is one named value sequence of a series or dataset. Absent
// observations are NaN.
type Column struct {
	Name   string
	Values []float64
}

// Series is a timestamped set of rows with one or more named value
// columns. Raw series may carry arbitrary, possibly irregular or
// duplicated timestamps; aligned series carry exactly the canonical
// grid's timestamps.
type Series struct {
	Times   []time.Time
	Columns []Column
}

// Len returns the number of rows.
func (s Series) Len() int {
	return len(s.Times)
}

// Validate checks that every column has one value per timestamp.
func (s Series) Validate() error {
	for _, c := range s.Columns {
		if len(c.Values) != len(s.Times) {
			return fmt.Errorf("%w: column %q has %d values for %d timestamps",
				ErrSchemaMismatch, c.Name, len(c.Values), len(s.Times))
		}
	}
	return nil
}

// timeIndex maps each distinct timestamp to the row of its first
// occurrence. Duplicate timestamps keep the earliest row.
func (s Series) timeIndex() map[int64]int {
	idx := make(map[int64]int, len(s.Times))
	for i, t := range s.Times {
		k := t.UTC().UnixNano()
		if _, ok := idx[k]; !ok {
			idx[k] = i
		}
	}
	return idx
}

// sortedRowOrder returns row indices ordered by timestamp, with the
// original row order breaking ties so duplicates stay stable.
func (s Series) sortedRowOrder() []int {
	order := make([]int, len(s.Times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Times[order[a]].Before(s.Times[order[b]])
	})
	return order
}

// ConcatSeries concatenates parts in the order given, preserving row
// order within each part. Columns are matched by name; a column missing
// from some part is NaN-filled over that part's rows.
func ConcatSeries(parts []Series) Series {
	var total int
	var names []string
	seen := map[string]bool{}
	for _, p := range parts {
		total += p.Len()
		for _, c := range p.Columns {
			if !seen[c.Name] {
				seen[c.Name] = true
				names = append(names, c.Name)
			}
		}
	}

	out := Series{
		Times:   make([]time.Time, 0, total),
		Columns: make([]Column, len(names)),
	}
	for i, name := range names {
		out.Columns[i] = Column{Name: name, Values: make([]float64, 0, total)}
	}

	for _, p := range parts {
		byName := map[string][]float64{}
		for _, c := range p.Columns {
			byName[c.Name] = c.Values
		}
		out.Times = append(out.Times, p.Times...)
		for i, name := range names {
			vals, ok := byName[name]
			if !ok {
				vals = nanSlice(p.Len())
			}
			out.Columns[i].Values = append(out.Columns[i].Values, vals...)
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// Dataset is the assembled table: the canonical grid plus uniquely
// named, grid-aligned columns.
type Dataset struct {
	Grid    TimeGrid
	Columns []Column
}

// NewDataset creates an empty dataset over the given grid.
func NewDataset(grid TimeGrid) *Dataset {
	return &Dataset{Grid: grid}
}

// AddColumn appends a grid-aligned column. Column names must be unique
// and values must cover every grid point.
func (d *Dataset) AddColumn(name string, values []float64) error {
	if len(values) != d.Grid.Len() {
		return fmt.Errorf("%w: column %q has %d values for %d grid points",
			ErrSchemaMismatch, name, len(values), d.Grid.Len())
	}
	for _, c := range d.Columns {
		if c.Name == name {
			return fmt.Errorf("%w: duplicate column %q", ErrSchemaMismatch, name)
		}
	}
	d.Columns = append(d.Columns, Column{Name: name, Values: values})
	return nil
}

// ColumnNames returns the column names in insertion order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}
