package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/terrafield-ag/paddock-engine/pkg/models"
)

const sheetName = "Normalized"

// SaveXLSX writes the normalized table as a spreadsheet under dir and
// returns the file path. Layout matches the CSV export.
func SaveXLSX(dir string, farmID uuid.UUID, rows []models.NormalizedRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", fmt.Errorf("failed to rename sheet: %w", err)
	}

	namespaces := models.CollectNamespaces(rows)
	header := append([]string{"normalized_paddock_id", "year"}, namespaces...)
	for col, title := range header {
		if err := setCell(f, col+1, 1, title); err != nil {
			return "", err
		}
	}

	for i, row := range rows {
		rowNum := i + 2
		if err := setCell(f, 1, rowNum, row.PaddockID); err != nil {
			return "", err
		}
		if err := setCell(f, 2, rowNum, row.Year); err != nil {
			return "", err
		}
		for j, ns := range namespaces {
			cell, err := renderCell(row, ns)
			if err != nil {
				return "", fmt.Errorf("failed to render cell (%s, %d, %s): %w", row.PaddockID, row.Year, ns, err)
			}
			if err := setCell(f, j+3, rowNum, cell); err != nil {
				return "", err
			}
		}
	}

	path := filepath.Join(dir, outputName(farmID, "xlsx"))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to build cell name: %w", err)
	}
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
