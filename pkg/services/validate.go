package services

import (
	"sort"

	"github.com/google/uuid"

	"github.com/terrafield-ag/paddock-engine/pkg/models"
)

// ValidationReport describes the shape and completeness of one farm's
// normalized output, for operator review of data quality.
type ValidationReport struct {
	FarmID       uuid.UUID          `json:"farm_id"`
	TotalRows    int                `json:"total_rows"`
	YearsCovered []int              `json:"years_covered"`
	PaddockCount int                `json:"paddock_count"`
	Namespaces   []string           `json:"namespaces"`
	NullPercent  map[string]float64 `json:"null_percentages"`
}

// ValidateRows computes the validation report for a set of normalized rows.
// NullPercent holds, per namespace column, the percentage of rows with no
// cell for that namespace.
func ValidateRows(farmID uuid.UUID, rows []models.NormalizedRecord) ValidationReport {
	report := ValidationReport{
		FarmID:      farmID,
		TotalRows:   len(rows),
		Namespaces:  models.CollectNamespaces(rows),
		NullPercent: make(map[string]float64),
	}
	if len(rows) == 0 {
		return report
	}

	years := make(map[int]struct{})
	paddocks := make(map[string]struct{})
	missing := make(map[string]int)
	for _, row := range rows {
		years[row.Year] = struct{}{}
		paddocks[row.PaddockID] = struct{}{}
		for _, ns := range report.Namespaces {
			if _, ok := row.Cells[ns]; !ok {
				missing[ns]++
			}
		}
	}

	report.PaddockCount = len(paddocks)
	for y := range years {
		report.YearsCovered = append(report.YearsCovered, y)
	}
	sort.Ints(report.YearsCovered)
	for _, ns := range report.Namespaces {
		report.NullPercent[ns] = 100 * float64(missing[ns]) / float64(len(rows))
	}
	return report
}
