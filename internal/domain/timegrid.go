package domain

import (
	"fmt"
	"time"
)

// TimeGrid is the canonical hourly timeline that every source is aligned
// onto. Points are distinct, UTC, and strictly increasing by exactly one
// hour.
type TimeGrid struct {
	Times []time.Time
}

// BuildTimeGrid constructs the hourly UTC grid covering [start, end].
// The first point is start floored to the hour; points then step hourly
// up to and including the hour containing end, so a partial final hour
// is still represented by its grid point.
func BuildTimeGrid(start, end time.Time) (TimeGrid, error) {
	if start.After(end) {
		return TimeGrid{}, fmt.Errorf("%w: start %s after end %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	first := start.UTC().Truncate(time.Hour)
	n := int(end.UTC().Sub(first)/time.Hour) + 1

	times := make([]time.Time, n)
	for i := range times {
		times[i] = first.Add(time.Duration(i) * time.Hour)
	}
	return TimeGrid{Times: times}, nil
}

// Len returns the number of grid points.
func (g TimeGrid) Len() int {
	return len(g.Times)
}
