package domain

import (
	"fmt"
	"log"
	"time"
)

// Range is one closed sub-interval of a chunked fetch.
type Range struct {
	Start time.Time
	End   time.Time
}

// SplitFunc divides [start, end] into sub-intervals that respect an
// upstream per-request volume limit.
type SplitFunc func(start, end time.Time) []Range

// FetchFunc performs one logical fetch for a sub-interval. A nil series
// with nil error means the upstream had nothing for that interval.
type FetchFunc func(start, end time.Time) (*Series, error)

// SplitByYear splits [start, end] on calendar-year boundaries: the
// upstream observation service caps the number of observations per
// request, and one year of hourly data stays under that cap.
func SplitByYear(start, end time.Time) []Range {
	start = start.UTC()
	end = end.UTC()

	var ranges []Range
	for year := start.Year(); year <= end.Year(); year++ {
		r := Range{
			Start: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, 12, 31, 23, 59, 0, 0, time.UTC),
		}
		if year == start.Year() {
			r.Start = start
		}
		if year == end.Year() {
			r.End = end
		}
		ranges = append(ranges, r)
	}
	return ranges
}

// FetchChunked splits [start, end] with split (SplitByYear when nil),
// runs fetch for each sub-interval, and concatenates the non-nil
// results in chronological sub-interval order. A failing sub-interval
// is logged and skipped, so the result may contain internal time gaps;
// only when every sub-interval fails does the fetch return
// ErrEmptyResult.
func FetchChunked(start, end time.Time, split SplitFunc, fetch FetchFunc) (Series, error) {
	if start.After(end) {
		return Series{}, fmt.Errorf("%w: start %s after end %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if split == nil {
		split = SplitByYear
	}

	ranges := split(start, end)
	parts := make([]Series, 0, len(ranges))
	for _, r := range ranges {
		s, err := fetch(r.Start, r.End)
		if err != nil {
			log.Printf("chunk %s/%s failed, skipping: %v",
				r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339), err)
			continue
		}
		if s == nil || s.Len() == 0 {
			continue
		}
		parts = append(parts, *s)
	}

	if len(parts) == 0 {
		return Series{}, fmt.Errorf("%w: %d sub-intervals in %s/%s",
			ErrEmptyResult, len(ranges), start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return ConcatSeries(parts), nil
}
