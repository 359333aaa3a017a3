// Package export renders normalized rows as tabular files. The table has
// one row per (reference paddock, year) and one column per observed
// namespace; cells hold the namespace's combined attribute object as JSON,
// or empty when the namespace has no data for that row.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/terrafield-ag/paddock-engine/pkg/models"
)

// WriteCSV writes the normalized table to w.
func WriteCSV(w io.Writer, rows []models.NormalizedRecord) error {
	namespaces := models.CollectNamespaces(rows)

	cw := csv.NewWriter(w)
	header := append([]string{"normalized_paddock_id", "year"}, namespaces...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		line := make([]string, 0, len(header))
		line = append(line, row.PaddockID, strconv.Itoa(row.Year))
		for _, ns := range namespaces {
			cell, err := renderCell(row, ns)
			if err != nil {
				return fmt.Errorf("failed to render cell (%s, %d, %s): %w", row.PaddockID, row.Year, ns, err)
			}
			line = append(line, cell)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the table to a timestamped file under dir, creating the
// directory if needed, and returns the file path.
func SaveCSV(dir string, farmID uuid.UUID, rows []models.NormalizedRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, outputName(farmID, "csv"))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, rows); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return path, nil
}

func renderCell(row models.NormalizedRecord, namespace string) (string, error) {
	cell, ok := row.Cells[namespace]
	if !ok {
		return "", nil
	}
	data, err := cell.Data.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func outputName(farmID uuid.UUID, ext string) string {
	return fmt.Sprintf("paddocks_normalized_%s_%s.%s",
		farmID, time.Now().Format("20060102_150405"), ext)
}
