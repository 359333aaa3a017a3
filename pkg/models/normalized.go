package models

import "sort"

// Cell holds the combined attribute payload of one namespace for a
// (reference paddock, year) row. OriginalPaddockCount is the number of
// distinct historical paddocks merged into the cell before aggregation.
type Cell struct {
	Data                 AttributeMap
	OriginalPaddockCount int
}

// NormalizedRecord is one output row keyed by (reference paddock, year).
// Cells are keyed by namespace; a namespace with no source data has no cell
// and renders as null downstream. At most one row exists per key pair.
type NormalizedRecord struct {
	PaddockID string
	Year      int
	Cells     map[string]*Cell
}

// Namespaces returns the row's namespaces in sorted order.
func (r NormalizedRecord) Namespaces() []string {
	out := make([]string, 0, len(r.Cells))
	for ns := range r.Cells {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// CollectNamespaces returns the sorted union of namespaces across rows,
// which defines the column set of the tabular output.
func CollectNamespaces(rows []NormalizedRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range rows {
		for ns := range row.Cells {
			if _, ok := seen[ns]; !ok {
				seen[ns] = struct{}{}
				out = append(out, ns)
			}
		}
	}
	sort.Strings(out)
	return out
}
