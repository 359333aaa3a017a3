package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/terrafield-ag/paddock-engine/pkg/config"
	"github.com/terrafield-ag/paddock-engine/pkg/database"
	"github.com/terrafield-ag/paddock-engine/pkg/logging"
	"github.com/terrafield-ag/paddock-engine/pkg/metrics"
	"github.com/terrafield-ag/paddock-engine/pkg/repositories"
	"github.com/terrafield-ag/paddock-engine/pkg/retry"
	"github.com/terrafield-ag/paddock-engine/pkg/services"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to configuration file")
		farmFlag   = flag.String("farm", "", "process a single farm by id")
		allFarms   = flag.Bool("all", false, "process every farm in the source data")
	)
	flag.Parse()

	if *farmFlag == "" && !*allFarms {
		fmt.Fprintln(os.Stderr, "usage: paddock-engine -farm <uuid> | -all")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *farmFlag, *allFarms, logger); err != nil {
		logger.Error("Run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, farmFlag string, allFarms bool, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting paddock-engine",
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.Float64("min_overlap_threshold", cfg.ETL.MinOverlapThreshold),
		zap.String("output_dir", cfg.ETL.OutputDir))

	// The database may still be starting when a batch run kicks off.
	if err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return migrateUp(cfg, logger)
	}); err != nil {
		return err
	}

	var db *database.DB
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		var connErr error
		db, connErr = database.NewConnection(ctx, &cfg.Database)
		return connErr
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var collectors *metrics.Pipeline
	if cfg.Metrics.Addr != "" {
		registry := prometheus.NewRegistry()
		collectors = metrics.NewPipeline(registry)
		go serveMetrics(cfg.Metrics.Addr, registry, logger)
	}

	pipeline := services.NewPipelineService(
		cfg,
		repositories.NewFarmRepository(db, logger),
		repositories.NewNormalizedRepository(db, logger),
		collectors,
		logger,
	)

	if allFarms {
		batch, err := pipeline.ProcessAllFarms(ctx)
		if err != nil {
			return err
		}
		if len(batch.Processed) == 0 && len(batch.Failed) > 0 {
			return fmt.Errorf("all %d farms failed", len(batch.Failed))
		}
		return nil
	}

	farmID, err := uuid.Parse(farmFlag)
	if err != nil {
		return fmt.Errorf("invalid farm id %q: %w", farmFlag, err)
	}
	result, err := pipeline.ProcessFarm(ctx, farmID)
	if err != nil {
		return err
	}
	if result.OutputPath != "" {
		logger.Info("Results saved", zap.String("path", result.OutputPath))
	}
	return nil
}

func migrateUp(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()
	return database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("Metrics listener stopped", zap.Error(err))
	}
}
