package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coinrank/coinrank-backend/internal/adapter/pricefeed/coingecko"
	"github.com/coinrank/coinrank-backend/internal/adapter/repository/postgres"
	"github.com/coinrank/coinrank-backend/internal/config"
	"github.com/coinrank/coinrank-backend/internal/logger"
	"github.com/coinrank/coinrank-backend/internal/usecase/export"
	"github.com/coinrank/coinrank-backend/internal/usecase/ingest"
	"github.com/coinrank/coinrank-backend/internal/usecase/leaderboard"
	"github.com/coinrank/coinrank-backend/internal/usecase/pricefeed"
	"github.com/coinrank/coinrank-backend/internal/usecase/seeder"
	"github.com/coinrank/coinrank-backend/internal/usecase/valuation"
)

const (
	migrationsDir = "migrations"
	feedSource    = "coingecko"
)

// app bundles the wired services the job commands run against
type app struct {
	cfg *config.AppConfig
	db  *postgres.DB

	priceService       *pricefeed.Service
	ingestService      *ingest.Service
	valuationService   *valuation.Service
	leaderboardService *leaderboard.Service
	exportService      *export.Service
	assetSeeder        *seeder.AssetSeeder
}

func newApp() (*app, error) {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	db, err := postgres.NewDB(cfg.DBConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	assetRepo := postgres.NewAssetRepository(db)
	priceRepo := postgres.NewPriceRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	batchRepo := postgres.NewBatchRepository(db)
	valuationRepo := postgres.NewValuationRepository(db)
	leaderboardRepo := postgres.NewLeaderboardRepository(db)

	feedClient := coingecko.NewClient(cfg.FeedBaseURL, cfg.FeedRequestsPerMin)

	return &app{
		cfg:                cfg,
		db:                 db,
		priceService:       pricefeed.NewService(assetRepo, priceRepo, feedClient, feedSource),
		ingestService:      ingest.NewService(transactionRepo, batchRepo),
		valuationService:   valuation.NewService(valuationRepo),
		leaderboardService: leaderboard.NewService(leaderboardRepo),
		exportService:      export.NewService(holdingRepo, priceRepo),
		assetSeeder:        seeder.NewAssetSeeder(assetRepo),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		logger.L.Error("failed to close database", "error", err)
	}
}

func main() {
	root := &cobra.Command{
		Use:           "jobs",
		Short:         "Pipeline jobs: price sync, ingestion, valuation, ranking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		fetchPricesCmd(),
		ingestCmd(),
		valuateCmd(),
		rankCmd(),
		exportCmd(),
		seedAssetsCmd(),
		cronCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func fetchPricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-prices",
		Short: "Fetch latest prices for all active assets and append observations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			count, err := a.priceService.Run(cmd.Context())
			if err != nil {
				return err
			}
			logger.L.Info("price sync finished", "observations", count)
			return nil
		},
	}
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <user-id> <csv-file>",
		Short: "Ingest a transaction CSV file for one user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			file, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[1], err)
			}
			defer file.Close()

			records, err := ingest.ReadCSV(file)
			if err != nil {
				return fmt.Errorf("unreadable CSV: %w", err)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			batch, err := a.ingestService.NewBatch(cmd.Context(), userID, args[1])
			if err != nil {
				return err
			}
			batch, err = a.ingestService.ProcessBatch(cmd.Context(), batch, records)
			if batch != nil {
				fmt.Fprintf(cmd.OutOrStdout(),
					"batch %s: %s (total=%d processed=%d invalid=%d)\n",
					batch.ID, batch.Status, batch.TotalRows, batch.ProcessedRows, batch.InvalidRows)
			}
			return err
		},
	}
}

func valuateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "valuate",
		Short: "Compute a valuation snapshot for every user with holdings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			count, err := a.valuationService.Run(cmd.Context())
			if err != nil {
				return err
			}
			logger.L.Info("valuation run finished", "snapshots", count)
			return nil
		},
	}
}

func rankCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rank",
		Short: "Build a new leaderboard generation from current valuations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			count, err := a.leaderboardService.Run(cmd.Context())
			if err != nil {
				return err
			}
			logger.L.Info("leaderboard run finished", "entries", count)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <user-id>",
		Short: "Export one user's valued holdings to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			payload, _, err := a.exportService.Export(cmd.Context(), userID, f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(payload)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv or json")
	return cmd
}

func seedAssetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-assets [yaml-file]",
		Short: "Seed the asset registry from a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			path := a.cfg.AssetSeedPath
			if len(args) == 1 {
				path = args[0]
			}
			return a.assetSeeder.SeedFromFile(cmd.Context(), path)
		},
	}
}

// cronCmd runs the three periodic stages in-process until interrupted.
// Each stage runs on its own ticker; failures are logged and the loop
// keeps going, the next tick retries.
func cronCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cron",
		Short: "Run price sync, valuation and ranking on their configured intervals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			priceTicker := time.NewTicker(a.cfg.PriceInterval)
			valuationTicker := time.NewTicker(a.cfg.ValuationInterval)
			leaderboardTicker := time.NewTicker(a.cfg.LeaderboardInterval)
			defer priceTicker.Stop()
			defer valuationTicker.Stop()
			defer leaderboardTicker.Stop()

			logger.L.Info("cron loop started",
				"priceInterval", a.cfg.PriceInterval,
				"valuationInterval", a.cfg.ValuationInterval,
				"leaderboardInterval", a.cfg.LeaderboardInterval,
			)

			// One full pass up front so a fresh deployment has data
			// before the first tick fires.
			runStage(ctx, "price sync", a.priceService.Run)
			runStage(ctx, "valuation", a.valuationService.Run)
			runStage(ctx, "leaderboard", a.leaderboardService.Run)

			for {
				select {
				case <-ctx.Done():
					logger.L.Info("cron loop stopping")
					return nil
				case <-priceTicker.C:
					runStage(ctx, "price sync", a.priceService.Run)
				case <-valuationTicker.C:
					runStage(ctx, "valuation", a.valuationService.Run)
				case <-leaderboardTicker.C:
					runStage(ctx, "leaderboard", a.leaderboardService.Run)
				}
			}
		},
	}
}

func runStage(ctx context.Context, name string, run func(context.Context) (int, error)) {
	count, err := run(ctx)
	if err != nil {
		logger.L.Error("cron stage failed", "stage", name, "error", err)
		return
	}
	logger.L.Info("cron stage finished", "stage", name, "count", count)
}
