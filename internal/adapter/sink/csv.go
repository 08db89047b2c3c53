// Package sink writes assembled datasets to persistent outputs.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"go.ngs.io/seaseries-api/internal/domain"
)

// CSVWriter writes datasets as CSV: a time column in RFC 3339 UTC
// followed by one column per dataset column. Absent values (NaN)
// become empty cells.
type CSVWriter struct{}

// Write streams the dataset to w.
func (CSVWriter) Write(w io.Writer, d *domain.Dataset) error {
	cw := csv.NewWriter(w)

	header := append([]string{"time"}, d.ColumnNames()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for i, ts := range d.Grid.Times {
		record[0] = ts.UTC().Format(time.RFC3339)
		for ci, col := range d.Columns {
			if math.IsNaN(col.Values[i]) {
				record[ci+1] = ""
			} else {
				record[ci+1] = strconv.FormatFloat(col.Values[i], 'f', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// WriteFile writes the dataset to a file, creating or truncating it.
func (c CSVWriter) WriteFile(path string, d *domain.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := c.Write(f, d); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
