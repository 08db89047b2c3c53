package domain

import (
	"fmt"
	"log"
	"math"
)

// LeftJoin aligns raw onto the dataset grid without imputation and adds
// its columns under their original names. Grid points absent from raw
// stay NaN; raw rows outside the grid are dropped. The dataset's row
// set and order are never changed.
func (d *Dataset) LeftJoin(raw Series) error {
	if err := raw.Validate(); err != nil {
		return err
	}
	idx := raw.timeIndex()
	for _, c := range raw.Columns {
		values := nanSlice(d.Grid.Len())
		for gi, t := range d.Grid.Times {
			if row, ok := idx[t.UTC().UnixNano()]; ok {
				values[gi] = c.Values[row]
			}
		}
		if err := d.AddColumn(c.Name, values); err != nil {
			return err
		}
	}
	return nil
}

// MergeSeries left-joins an auxiliary raw series onto the dataset grid,
// imputing by nearest temporal neighbor first when any grid timestamp
// is missing from the raw series. Whether to impute is decided by exact
// timestamp-set comparison, so duplicate timestamps in raw cannot
// trigger or suppress imputation spuriously.
//
// Result columns are renamed keyPrefix + level ordinal so repeated
// merges of the same parameter from different sources never collide.
// An empty raw series adds nothing.
func MergeSeries(d *Dataset, raw Series, keyPrefix string) error {
	if err := raw.Validate(); err != nil {
		return err
	}
	if raw.Len() == 0 || len(raw.Columns) == 0 {
		log.Printf("merge %s: series is empty, nothing to add", keyPrefix)
		return nil
	}

	idx := raw.timeIndex()
	missing := 0
	for _, t := range d.Grid.Times {
		if _, ok := idx[t.UTC().UnixNano()]; !ok {
			missing++
		}
	}

	aligned := raw
	if missing > 0 {
		log.Printf("merge %s: %d of %d grid timestamps missing, filling from nearest neighbors",
			keyPrefix, missing, d.Grid.Len())
		aligned = FillNearest(d.Grid.Times, raw)
	}

	alignedIdx := aligned.timeIndex()
	for ci, c := range aligned.Columns {
		values := nanSlice(d.Grid.Len())
		for gi, t := range d.Grid.Times {
			if row, ok := alignedIdx[t.UTC().UnixNano()]; ok {
				values[gi] = c.Values[row]
			}
		}
		name := fmt.Sprintf("%s%d", keyPrefix, ci)
		if err := d.AddColumn(name, values); err != nil {
			return err
		}
	}
	return nil
}

// CountObserved returns the number of non-NaN values in a column, or -1
// if the column does not exist. Used by callers to report degradation.
func (d *Dataset) CountObserved(name string) int {
	for _, c := range d.Columns {
		if c.Name != name {
			continue
		}
		n := 0
		for _, v := range c.Values {
			if !math.IsNaN(v) {
				n++
			}
		}
		return n
	}
	return -1
}
