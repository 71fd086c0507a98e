package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coinrank/coinrank-backend/internal/adapter/httpapi"
	"github.com/coinrank/coinrank-backend/internal/adapter/repository/postgres"
	"github.com/coinrank/coinrank-backend/internal/config"
	"github.com/coinrank/coinrank-backend/internal/logger"
	"github.com/coinrank/coinrank-backend/internal/usecase/export"
	"github.com/coinrank/coinrank-backend/internal/usecase/ingest"
	"github.com/coinrank/coinrank-backend/internal/usecase/leaderboard"
	"github.com/coinrank/coinrank-backend/internal/usecase/seeder"
	"github.com/coinrank/coinrank-backend/internal/usecase/valuation"
)

const migrationsDir = "migrations"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	db, err := postgres.NewDB(cfg.DBConnStr)
	if err != nil {
		logger.L.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(migrationsDir); err != nil {
		logger.L.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	assetRepo := postgres.NewAssetRepository(db)
	priceRepo := postgres.NewPriceRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)
	batchRepo := postgres.NewBatchRepository(db)
	valuationRepo := postgres.NewValuationRepository(db)
	leaderboardRepo := postgres.NewLeaderboardRepository(db)

	ingestService := ingest.NewService(transactionRepo, batchRepo)
	valuationService := valuation.NewService(valuationRepo)
	leaderboardService := leaderboard.NewService(leaderboardRepo)
	exportService := export.NewService(holdingRepo, priceRepo)

	assetSeeder := seeder.NewAssetSeeder(assetRepo)
	if err := assetSeeder.SeedFromFile(context.Background(), cfg.AssetSeedPath); err != nil {
		logger.L.Error("failed to seed asset registry", "path", cfg.AssetSeedPath, "error", err)
		os.Exit(1)
	}

	server := httpapi.NewServer(
		ingestService,
		valuationService,
		leaderboardService,
		exportService,
		batchRepo,
		cfg.MaxUploadSizeBytes,
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.L.Info("http server listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(httpServer)
}

func waitForShutdown(httpServer *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.L.Error("graceful shutdown failed", "error", err)
	}
}
