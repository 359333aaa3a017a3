// Package spatial resolves historical paddock identifiers to the identifiers
// of a farm's reference year. Administrative boundaries get redrawn between
// surveys, so records from older years are attributed to the reference
// paddock that covers the largest fraction of their historical geometry.
package spatial

import (
	"fmt"
	"sort"

	"github.com/peterstace/simplefeatures/geom"
	"go.uber.org/zap"

	"github.com/terrafield-ag/paddock-engine/pkg/apperrors"
	"github.com/terrafield-ag/paddock-engine/pkg/models"
)

// Paddock pairs a paddock identifier with its boundary geometry.
type Paddock struct {
	ID       string
	Geometry geom.Geometry
}

// Result is the outcome of matching one farm's records. It is built once per
// farm and never shared across farms.
//
// Mapping is total: every distinct paddock identifier present in the input
// appears as a key. Reference-year paddocks map to themselves; historical
// paddocks map to their best spatial match, or to themselves when no match
// reaches the threshold (kept distinct, reported via stats).
type Result struct {
	ReferenceYear     int
	ReferencePaddocks []Paddock
	Mapping           map[string]string
}

// Stats summarizes match quality for operational monitoring.
func (r *Result) Stats() models.MappingStats {
	stats := models.MappingStats{
		TotalPaddocks:         len(r.Mapping),
		ReferenceYear:         r.ReferenceYear,
		ReferencePaddockCount: len(r.ReferencePaddocks),
	}
	for from, to := range r.Mapping {
		if from == to {
			stats.SelfMapped++
		} else {
			stats.Remapped++
		}
	}
	return stats
}

// Match selects the reference year (the most recent year present), builds
// the reference paddock set, and computes the identity mapping for every
// paddock in records. minOverlap is the inclusive acceptance threshold for
// overlap ratios. Fails only on empty input.
func Match(records []models.Record, minOverlap float64, logger *zap.Logger) (*Result, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("cannot select reference year: %w", apperrors.ErrNoRecords)
	}
	logger = logger.Named("spatial")

	referenceYear := records[0].Year
	for _, rec := range records[1:] {
		if rec.Year > referenceYear {
			referenceYear = rec.Year
		}
	}
	logger.Info("Reference year selected", zap.Int("reference_year", referenceYear))

	refs := buildReferencePaddocks(records, referenceYear)
	logger.Info("Reference paddocks built", zap.Int("count", len(refs)))

	mapping := make(map[string]string)

	// Resolve each distinct historical paddock in first-encounter order so
	// warnings and tie-breaks are deterministic.
	seen := make(map[string]struct{})
	for _, rec := range records {
		if rec.Year == referenceYear {
			continue
		}
		if _, ok := seen[rec.PaddockID]; ok {
			continue
		}
		seen[rec.PaddockID] = struct{}{}

		matchID, ratio := bestMatch(rec.Geometry, rec.PaddockID, refs, logger)
		if matchID != "" && ratio >= minOverlap {
			mapping[rec.PaddockID] = matchID
			logger.Debug("Paddock mapped",
				zap.String("from", rec.PaddockID),
				zap.String("to", matchID),
				zap.Float64("overlap_ratio", ratio))
		} else {
			// No sufficient match: keep the historical identity.
			mapping[rec.PaddockID] = rec.PaddockID
			logger.Warn("No valid match for paddock, keeping original identity",
				zap.String("paddock_id", rec.PaddockID),
				zap.Float64("best_overlap", ratio))
		}
	}

	// Reference paddocks always map to themselves, even when the same
	// identifier also appears in a historical year.
	for _, ref := range refs {
		mapping[ref.ID] = ref.ID
	}

	logger.Info("Paddock mapping complete", zap.Int("total_paddocks", len(mapping)))

	return &Result{
		ReferenceYear:     referenceYear,
		ReferencePaddocks: refs,
		Mapping:           mapping,
	}, nil
}

// buildReferencePaddocks keeps one geometry per reference-year paddock
// identifier. Records are sorted by descending update time before grouping
// so the first geometry seen per identifier is the most recently updated.
func buildReferencePaddocks(records []models.Record, referenceYear int) []Paddock {
	refRecords := make([]models.Record, 0)
	for _, rec := range records {
		if rec.Year == referenceYear {
			refRecords = append(refRecords, rec)
		}
	}
	sort.SliceStable(refRecords, func(i, j int) bool {
		return refRecords[i].UpdatedAt.After(refRecords[j].UpdatedAt)
	})

	seen := make(map[string]struct{})
	var refs []Paddock
	for _, rec := range refRecords {
		if _, ok := seen[rec.PaddockID]; ok {
			continue
		}
		seen[rec.PaddockID] = struct{}{}
		refs = append(refs, Paddock{ID: rec.PaddockID, Geometry: rec.Geometry})
	}
	return refs
}

// bestMatch scores every reference paddock by the fraction of the historical
// geometry's area covered by the intersection and returns the best
// candidate. Candidates with an empty intersection or a failed geometry
// operation are excluded rather than scored zero. A zero-area historical
// geometry matches nothing. Returns ("", 0) when no candidate overlaps.
//
// The denominator is always the historical polygon's area: the score answers
// "how much of the old field lies inside the new one", which is the right
// direction for attributing historical data to new boundaries.
func bestMatch(historical geom.Geometry, paddockID string, refs []Paddock, logger *zap.Logger) (string, float64) {
	historicalArea := historical.Area()
	if historicalArea == 0 {
		return "", 0
	}

	var (
		bestID     string
		maxOverlap float64
	)
	for _, ref := range refs {
		intersection, err := geom.Intersection(historical, ref.Geometry)
		if err != nil {
			logger.Warn("Intersection failed, skipping candidate",
				zap.String("paddock_id", paddockID),
				zap.String("candidate_id", ref.ID),
				zap.Error(err))
			continue
		}
		if intersection.IsEmpty() {
			continue
		}

		// Strict > keeps the first candidate found on ties.
		ratio := intersection.Area() / historicalArea
		if ratio > maxOverlap {
			maxOverlap = ratio
			bestID = ref.ID
		}
	}
	return bestID, maxOverlap
}
