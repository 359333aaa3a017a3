package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/peterstace/simplefeatures/geom"
)

// Record is one attribute observation for a paddock in a given year.
// PaddockID is the historical identifier tied to the record's geometry; it is
// resolved to a reference identifier during matching, never mutated in place.
// Duplicate records per (paddock, year, namespace) are the normal case and
// are merged by the normalizer.
type Record struct {
	ID        uuid.UUID
	FarmID    uuid.UUID
	Year      int
	Namespace string
	PaddockID string
	Data      AttributeMap
	Geometry  geom.Geometry
	UpdatedAt time.Time
}

// MappingStats summarizes the quality of a paddock mapping for one farm.
type MappingStats struct {
	TotalPaddocks         int `json:"total_paddocks"`
	SelfMapped            int `json:"self_mapped"`
	Remapped              int `json:"remapped"`
	ReferenceYear         int `json:"reference_year"`
	ReferencePaddockCount int `json:"reference_paddock_count"`
}
