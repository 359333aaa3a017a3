package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/terrafield-ag/paddock-engine/pkg/database"
	"github.com/terrafield-ag/paddock-engine/pkg/models"
)

// NormalizedRepository persists normalized rows.
type NormalizedRepository interface {
	// ReplaceFarm atomically replaces the farm's normalized rows with the
	// given set. Runs are idempotent: reprocessing a farm overwrites its
	// previous output.
	ReplaceFarm(ctx context.Context, farmID uuid.UUID, rows []models.NormalizedRecord) error
}

type normalizedRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewNormalizedRepository creates a new NormalizedRepository.
func NewNormalizedRepository(db *database.DB, logger *zap.Logger) NormalizedRepository {
	return &normalizedRepository{
		db:     db,
		logger: logger.Named("normalized-repository"),
	}
}

var _ NormalizedRepository = (*normalizedRepository)(nil)

func (r *normalizedRepository) ReplaceFarm(ctx context.Context, farmID uuid.UUID, rows []models.NormalizedRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM normalized_paddock_records WHERE farm_id = $1`, farmID); err != nil {
		return fmt.Errorf("failed to clear previous rows: %w", err)
	}

	query := `
		INSERT INTO normalized_paddock_records (
			farm_id, paddock_id, year, data, paddock_counts, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`

	now := time.Now()
	for _, row := range rows {
		data := make(map[string]models.AttributeMap, len(row.Cells))
		counts := make(map[string]int, len(row.Cells))
		for ns, cell := range row.Cells {
			data[ns] = cell.Data
			counts[ns] = cell.OriginalPaddockCount
		}
		dataJSON, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode row data: %w", err)
		}
		countsJSON, err := json.Marshal(counts)
		if err != nil {
			return fmt.Errorf("failed to encode paddock counts: %w", err)
		}

		if _, err := tx.Exec(ctx, query,
			farmID, row.PaddockID, row.Year, dataJSON, countsJSON, now); err != nil {
			return fmt.Errorf("failed to insert normalized row (%s, %d): %w", row.PaddockID, row.Year, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit normalized rows: %w", err)
	}

	r.logger.Info("Persisted normalized rows",
		zap.String("farm_id", farmID.String()),
		zap.Int("rows", len(rows)))
	return nil
}
