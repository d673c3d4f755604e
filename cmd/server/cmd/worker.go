package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/sourcemeter/server/internal/config"
	"github.com/sourcemeter/server/internal/domain/scoring"
	"github.com/sourcemeter/server/internal/domain/sources"
	"github.com/sourcemeter/server/internal/storage/postgres"
	"github.com/sourcemeter/server/internal/worker"
)

var (
	workerDate     string
	workerDomains  []string
	workerUseCases []string
	workerForce    bool
	workerParallel int
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Compute reliability snapshots for all sources",
	Long: `Run the batch reliability computation once and exit.

Each domain commits independently: a failure mid-run keeps everything
committed so far. Existing snapshots for the target date are skipped
unless --force is given.

Examples:
  # Compute today's snapshots for every domain with evidence
  server worker

  # Recompute oncology for a specific date
  server worker --date 2026-08-15 --domain oncology --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker(cmd.Context())
	},
}

func init() {
	workerCmd.Flags().StringVar(&workerDate, "date", "", "snapshot date YYYY-MM-DD (default: today)")
	workerCmd.Flags().StringArrayVar(&workerDomains, "domain", nil, "restrict to a domain (repeatable; default: all with evidence)")
	workerCmd.Flags().StringArrayVar(&workerUseCases, "use-case", nil, "restrict to a use case (repeatable; default: all)")
	workerCmd.Flags().BoolVar(&workerForce, "force", false, "recompute snapshots that already exist")
	workerCmd.Flags().IntVar(&workerParallel, "concurrency", 0, "parallel scoring limit per domain (default: from config)")
}

func runWorker(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)

	opts := worker.Options{
		Domains: workerDomains,
		Force:   workerForce,
	}
	if workerDate != "" {
		parsed, err := time.Parse("2006-01-02", workerDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", workerDate)
		}
		opts.TargetDate = parsed
	}
	for _, raw := range workerUseCases {
		useCase, err := scoring.ParseUseCase(raw)
		if err != nil {
			return fmt.Errorf("invalid --use-case: %w", err)
		}
		opts.UseCases = append(opts.UseCases, useCase)
	}
	opts.Concurrency = workerParallel
	if opts.Concurrency <= 0 {
		opts.Concurrency = cfg.Worker.Concurrency
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := pgxpool.New(poolCtx, cfg.Database.URL)
	cancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	tables := scoring.DefaultTables()
	if cfg.Scoring.TablesPath != "" {
		tables, err = scoring.LoadTables(cfg.Scoring.TablesPath)
		if err != nil {
			return fmt.Errorf("load scoring tables: %w", err)
		}
	}

	meter := scoring.NewMeter(tables, repo.Evidence(), logger)
	sourceSvc := sources.NewService(repo.Sources(), logger)
	batch := worker.New(repo, meter, sourceSvc, logger)

	result, runErr := batch.Run(ctx, opts)
	if result != nil {
		logger.Info().
			Time("date", result.Date).
			Int("computed", result.Counts.Computed).
			Int("skipped", result.Counts.Skipped).
			Int("errored", result.Counts.Errored).
			Strs("processed", result.Processed).
			Strs("unprocessed", result.Unprocessed).
			Msg("worker summary")
	}
	if runErr != nil {
		return fmt.Errorf("batch run aborted: %w", runErr)
	}
	return nil
}
