// Package normalize rewrites record identities through a paddock mapping,
// merges records that collapse onto the same (reference paddock, year,
// namespace) key, and pivots the result into one row per (paddock, year)
// with one cell per namespace.
package normalize

import (
	"sort"

	"go.uber.org/zap"

	"github.com/terrafield-ag/paddock-engine/pkg/aggregate"
	"github.com/terrafield-ag/paddock-engine/pkg/models"
)

type groupKey struct {
	paddockID string
	year      int
	namespace string
}

type group struct {
	records []models.Record
}

// Normalize applies the paddock mapping to records and produces the
// normalized rows. Records whose paddock identifier has no mapping entry are
// dropped with a warning; a total mapping never triggers this. The returned
// slice is empty but non-nil when no rows are produced, and is sorted by
// (paddock identifier, year).
func Normalize(records []models.Record, mapping map[string]string, engine *aggregate.Engine, logger *zap.Logger) []models.NormalizedRecord {
	logger = logger.Named("normalize")

	// Group by (mapped paddock, year, namespace) in encounter order.
	groups := make(map[groupKey]*group)
	var order []groupKey
	dropped := 0
	for _, rec := range records {
		mapped, ok := mapping[rec.PaddockID]
		if !ok {
			dropped++
			logger.Warn("Record has no mapping entry, dropping",
				zap.String("paddock_id", rec.PaddockID),
				zap.Int("year", rec.Year),
				zap.String("namespace", rec.Namespace))
			continue
		}
		key := groupKey{paddockID: mapped, year: rec.Year, namespace: rec.Namespace}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.records = append(g.records, rec)
	}
	if dropped > 0 {
		logger.Warn("Dropped unmapped records", zap.Int("count", dropped))
	}

	// Combine each group and pivot namespaces into row cells.
	type rowKey struct {
		paddockID string
		year      int
	}
	rows := make([]models.NormalizedRecord, 0, len(order))
	rowAt := make(map[rowKey]int)
	for _, key := range order {
		cell := combineGroup(groups[key].records, key.namespace, engine, logger)

		rk := rowKey{paddockID: key.paddockID, year: key.year}
		idx, ok := rowAt[rk]
		if !ok {
			rows = append(rows, models.NormalizedRecord{
				PaddockID: key.paddockID,
				Year:      key.year,
				Cells:     make(map[string]*models.Cell),
			})
			idx = len(rows) - 1
			rowAt[rk] = idx
		}
		rows[idx].Cells[key.namespace] = cell
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PaddockID != rows[j].PaddockID {
			return rows[i].PaddockID < rows[j].PaddockID
		}
		return rows[i].Year < rows[j].Year
	})

	logger.Info("Normalization complete",
		zap.Int("input_records", len(records)),
		zap.Int("output_rows", len(rows)))
	return rows
}

// combineGroup merges the attribute payloads of one group. Single-record
// groups pass their data through untouched. For merged groups the unit count
// is the number of distinct original (pre-mapping) paddock identifiers, and
// each attribute key is reduced over the raw values present across the group
// (records lacking a key contribute nothing, not null).
func combineGroup(records []models.Record, namespace string, engine *aggregate.Engine, logger *zap.Logger) *models.Cell {
	unitCount := distinctPaddocks(records)

	if len(records) == 1 {
		return &models.Cell{
			Data:                 records[0].Data.Clone(),
			OriginalPaddockCount: unitCount,
		}
	}

	logger.Debug("Aggregating records",
		zap.String("namespace", namespace),
		zap.Int("records", len(records)),
		zap.Int("original_paddocks", unitCount))

	// Union of keys across the group, first-encounter order.
	var keys []string
	seen := make(map[string]struct{})
	for _, rec := range records {
		for _, k := range rec.Data.Keys() {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}

	combined := models.NewAttributeMap()
	for _, k := range keys {
		var values []models.Value
		for _, rec := range records {
			if v, ok := rec.Data.Get(k); ok {
				values = append(values, v)
			}
		}
		combined.Set(k, engine.Apply(namespace, k, values, unitCount))
	}

	return &models.Cell{
		Data:                 combined,
		OriginalPaddockCount: unitCount,
	}
}

func distinctPaddocks(records []models.Record) int {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		seen[rec.PaddockID] = struct{}{}
	}
	return len(seen)
}
