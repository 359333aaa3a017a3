package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/terrafield-ag/paddock-engine/pkg/aggregate"
	"github.com/terrafield-ag/paddock-engine/pkg/apperrors"
	"github.com/terrafield-ag/paddock-engine/pkg/config"
	"github.com/terrafield-ag/paddock-engine/pkg/export"
	"github.com/terrafield-ag/paddock-engine/pkg/metrics"
	"github.com/terrafield-ag/paddock-engine/pkg/models"
	"github.com/terrafield-ag/paddock-engine/pkg/normalize"
	"github.com/terrafield-ag/paddock-engine/pkg/repositories"
	"github.com/terrafield-ag/paddock-engine/pkg/spatial"
)

// FarmResult is the outcome of processing one farm.
type FarmResult struct {
	FarmID     uuid.UUID
	Rows       []models.NormalizedRecord
	Stats      models.MappingStats
	Validation ValidationReport
	OutputPath string
}

// BatchResult summarizes a multi-farm run.
type BatchResult struct {
	Processed []*FarmResult
	Failed    []uuid.UUID
}

// PipelineService drives the per-farm reconciliation pipeline:
// extraction, spatial matching, normalization, validation, persistence,
// export. Farms are independent; batch processing isolates failures at farm
// granularity and continues.
type PipelineService interface {
	ProcessFarm(ctx context.Context, farmID uuid.UUID) (*FarmResult, error)
	ProcessAllFarms(ctx context.Context) (*BatchResult, error)
}

type pipelineService struct {
	cfg        *config.Config
	farms      repositories.FarmRepository
	normalized repositories.NormalizedRepository
	engine     *aggregate.Engine
	collectors *metrics.Pipeline
	logger     *zap.Logger
}

// NewPipelineService creates a new PipelineService. collectors may be nil
// when metrics are disabled.
func NewPipelineService(
	cfg *config.Config,
	farms repositories.FarmRepository,
	normalized repositories.NormalizedRepository,
	collectors *metrics.Pipeline,
	logger *zap.Logger,
) PipelineService {
	return &pipelineService{
		cfg:        cfg,
		farms:      farms,
		normalized: normalized,
		engine:     aggregate.NewEngine(cfg.ETL.AggregationRules, logger),
		collectors: collectors,
		logger:     logger.Named("pipeline"),
	}
}

var _ PipelineService = (*pipelineService)(nil)

func (s *pipelineService) ProcessFarm(ctx context.Context, farmID uuid.UUID) (*FarmResult, error) {
	s.logger.Info("Processing farm", zap.String("farm_id", farmID.String()))
	start := time.Now()

	records, err := s.farms.GetFarmRecords(ctx, farmID)
	if err != nil {
		return nil, fmt.Errorf("extraction failed for farm %s: %w", farmID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("farm %s: %w", farmID, apperrors.ErrNoRecords)
	}

	match, err := spatial.Match(records, s.cfg.ETL.MinOverlapThreshold, s.logger)
	if err != nil {
		return nil, fmt.Errorf("spatial matching failed for farm %s: %w", farmID, err)
	}
	stats := match.Stats()
	s.logger.Info("Mapping statistics",
		zap.String("farm_id", farmID.String()),
		zap.Int("total_paddocks", stats.TotalPaddocks),
		zap.Int("self_mapped", stats.SelfMapped),
		zap.Int("remapped", stats.Remapped),
		zap.Int("reference_year", stats.ReferenceYear),
		zap.Int("reference_paddocks", stats.ReferencePaddockCount))

	rows := normalize.Normalize(records, match.Mapping, s.engine, s.logger)

	result := &FarmResult{
		FarmID: farmID,
		Rows:   rows,
		Stats:  stats,
	}

	if len(rows) == 0 {
		// Explicitly empty result: nothing to persist or export, but the
		// farm did not fail.
		s.logger.Warn("No normalized rows produced", zap.String("farm_id", farmID.String()))
		s.observeSuccess(stats, 0, start)
		return result, nil
	}

	result.Validation = ValidateRows(farmID, rows)
	s.logger.Info("Validation report",
		zap.String("farm_id", farmID.String()),
		zap.Int("rows", result.Validation.TotalRows),
		zap.Ints("years_covered", result.Validation.YearsCovered),
		zap.Int("paddocks", result.Validation.PaddockCount),
		zap.Strings("namespaces", result.Validation.Namespaces))

	if err := s.normalized.ReplaceFarm(ctx, farmID, rows); err != nil {
		return nil, fmt.Errorf("persistence failed for farm %s: %w", farmID, err)
	}

	path, err := export.SaveCSV(s.cfg.ETL.OutputDir, farmID, rows)
	if err != nil {
		return nil, fmt.Errorf("export failed for farm %s: %w", farmID, err)
	}
	result.OutputPath = path

	if s.cfg.ETL.ExportXLSX {
		if _, err := export.SaveXLSX(s.cfg.ETL.OutputDir, farmID, rows); err != nil {
			return nil, fmt.Errorf("spreadsheet export failed for farm %s: %w", farmID, err)
		}
	}

	s.observeSuccess(stats, len(rows), start)
	s.logger.Info("Farm processed",
		zap.String("farm_id", farmID.String()),
		zap.Int("rows", len(rows)),
		zap.String("output", path),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (s *pipelineService) ProcessAllFarms(ctx context.Context) (*BatchResult, error) {
	farmIDs, err := s.farms.ListFarmIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list farms: %w", err)
	}
	s.logger.Info("Starting batch run", zap.Int("farms", len(farmIDs)))

	batch := &BatchResult{}
	for i, farmID := range farmIDs {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		s.logger.Info("Batch progress",
			zap.Int("current", i+1),
			zap.Int("total", len(farmIDs)),
			zap.String("farm_id", farmID.String()))

		result, err := s.ProcessFarm(ctx, farmID)
		if err != nil {
			// Farm-level failure isolation: log, count, continue.
			batch.Failed = append(batch.Failed, farmID)
			if s.collectors != nil {
				s.collectors.FarmsFailed.Inc()
			}
			if errors.Is(err, apperrors.ErrNoRecords) {
				s.logger.Warn("Farm has no data, skipping", zap.String("farm_id", farmID.String()))
			} else {
				s.logger.Error("Farm failed, skipping", zap.String("farm_id", farmID.String()), zap.Error(err))
			}
			continue
		}
		batch.Processed = append(batch.Processed, result)
	}

	s.logger.Info("Batch run complete",
		zap.Int("processed", len(batch.Processed)),
		zap.Int("failed", len(batch.Failed)))
	return batch, nil
}

func (s *pipelineService) observeSuccess(stats models.MappingStats, rows int, start time.Time) {
	if s.collectors == nil {
		return
	}
	s.collectors.FarmsProcessed.Inc()
	s.collectors.RowsWritten.Add(float64(rows))
	s.collectors.ObserveMapping(stats)
	s.collectors.FarmDuration.Observe(time.Since(start).Seconds())
}
