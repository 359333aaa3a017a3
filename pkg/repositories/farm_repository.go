package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/peterstace/simplefeatures/geom"
	"go.uber.org/zap"

	"github.com/terrafield-ag/paddock-engine/pkg/database"
	"github.com/terrafield-ag/paddock-engine/pkg/models"
)

// FarmRepository provides read access to one farm's raw paddock records.
type FarmRepository interface {
	// GetFarmRecords returns every attribute record for the farm joined
	// with its paddock geometry, ordered by year and recency descending.
	GetFarmRecords(ctx context.Context, farmID uuid.UUID) ([]models.Record, error)

	// ListFarmIDs returns every farm identifier present in the source data.
	ListFarmIDs(ctx context.Context) ([]uuid.UUID, error)
}

type farmRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewFarmRepository creates a new FarmRepository.
func NewFarmRepository(db *database.DB, logger *zap.Logger) FarmRepository {
	return &farmRepository{
		db:     db,
		logger: logger.Named("farm-repository"),
	}
}

var _ FarmRepository = (*farmRepository)(nil)

func (r *farmRepository) GetFarmRecords(ctx context.Context, farmID uuid.UUID) ([]models.Record, error) {
	query := `
		SELECT
			d.id,
			d.year,
			d.namespace,
			d.data,
			d.paddock_id,
			ST_AsBinary(p.geometry),
			p.updated_at
		FROM paddock_records d
		JOIN paddocks p ON d.paddock_id = p.id
		WHERE d.farm_id = $1
		ORDER BY d.year DESC, p.updated_at DESC`

	rows, err := r.db.Query(ctx, query, farmID)
	if err != nil {
		return nil, fmt.Errorf("failed to query farm records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	skipped := 0
	for rows.Next() {
		var (
			rec       models.Record
			dataJSON  []byte
			wkb       []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.Year, &rec.Namespace, &dataJSON, &rec.PaddockID, &wkb, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan farm record: %w", err)
		}
		rec.FarmID = farmID
		rec.UpdatedAt = updatedAt

		if err := rec.Data.UnmarshalJSON(dataJSON); err != nil {
			skipped++
			r.logger.Warn("Record has malformed attribute data, skipping",
				zap.String("record_id", rec.ID.String()),
				zap.Error(err))
			continue
		}

		g, err := geom.UnmarshalWKB(wkb)
		if err != nil {
			skipped++
			r.logger.Warn("Record has malformed geometry, skipping",
				zap.String("record_id", rec.ID.String()),
				zap.String("paddock_id", rec.PaddockID),
				zap.Error(err))
			continue
		}
		rec.Geometry = g

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read farm records: %w", err)
	}

	if skipped > 0 {
		r.logger.Warn("Skipped malformed records",
			zap.String("farm_id", farmID.String()),
			zap.Int("skipped", skipped))
	}
	r.logger.Info("Extracted farm records",
		zap.String("farm_id", farmID.String()),
		zap.Int("records", len(records)))
	return records, nil
}

func (r *farmRepository) ListFarmIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT farm_id FROM paddock_records ORDER BY farm_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list farm ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan farm id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read farm ids: %w", err)
	}
	return ids, nil
}
