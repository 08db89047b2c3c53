package domain

import (
	"math"
	"time"
)

// FillNearest conforms raw onto the grid by nearest-in-time
// substitution. Every grid point present in raw keeps its observed
// values; every grid point absent from raw's timestamp set is filled
// with the values of raw's closest-in-time row, ties broken toward the
// earlier timestamp. Filled rows are synthetic observations, not
// measurements, and carry lower confidence downstream.
//
// An empty raw series fills nothing: every grid point stays NaN. The
// input series is never mutated.
func FillNearest(grid []time.Time, raw Series) Series {
	out := Series{
		Times:   append([]time.Time(nil), grid...),
		Columns: make([]Column, len(raw.Columns)),
	}
	for i, c := range raw.Columns {
		out.Columns[i] = Column{Name: c.Name, Values: nanSlice(len(grid))}
	}
	if raw.Len() == 0 {
		return out
	}

	exact := raw.timeIndex()
	order := raw.sortedRowOrder()
	sortedTimes := make([]time.Time, len(order))
	for i, row := range order {
		sortedTimes[i] = raw.Times[row]
	}

	for gi, t := range grid {
		row, ok := exact[t.UTC().UnixNano()]
		if !ok {
			row = order[nearestRow(sortedTimes, t)]
		}
		for ci, c := range raw.Columns {
			out.Columns[ci].Values[gi] = c.Values[row]
		}
	}
	return out
}

// nearestRow returns the position in the sorted timestamp slice closest
// to t. On an exact tie in absolute distance the earlier timestamp wins.
func nearestRow(sorted []time.Time, t time.Time) int {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid].Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	// lo is the first index at or after t.
	if lo == 0 {
		return 0
	}
	if lo == len(sorted) {
		return len(sorted) - 1
	}
	before := math.Abs(float64(t.Sub(sorted[lo-1])))
	after := math.Abs(float64(sorted[lo].Sub(t)))
	if before <= after {
		return lo - 1
	}
	return lo
}
