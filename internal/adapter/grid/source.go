package grid

import (
	"time"

	"go.ngs.io/seaseries-api/internal/domain"
)

// ArchiveSource extracts series from a daily-file archive, expanding
// the file template over each requested range.
type ArchiveSource struct {
	Archive Archive
}

// Extract expands the archive over [start, end] and reads the series.
func (a ArchiveSource) Extract(param string, lon, lat float64, depths []float64, start, end time.Time) (domain.Series, error) {
	return NewExtractor(a.Archive.Files(start, end)).Extract(param, lon, lat, depths, start, end)
}
