package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fornitori/internal/amqp"
	"fornitori/internal/cache"
	"fornitori/internal/cli"
	"fornitori/internal/config"
	applog "fornitori/internal/log"
	"fornitori/internal/sheets"
	gsheet "fornitori/internal/sheets/google"
	memsheet "fornitori/internal/sheets/memory"
	"fornitori/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting fornitori-worker", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	replica, err := openReplica(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize replica", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(repo, replica, cfg.SyncBatchSize, logger)

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache))
	caches.Register(syncWorker.SupplierNames())
	caches.StartCleanup(5 * time.Minute)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		caches.Stop()
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", "error", err)
		}
	})

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// not fatal, the periodic pass retries
		logger.Error("Failed startup sync check", "error", err)
	}

	go func() {
		err := amqpClient.ConsumeEntrySync(ctx, syncWorker.HandleMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	go syncWorker.Run(ctx, cfg.SyncInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

// openReplica returns the Google Sheets replica when a spreadsheet is
// configured, otherwise an in-process one that only logs activity.
func openReplica(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.Replica, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using in-memory replica")
		return memsheet.New(), nil
	}
	client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, gsheet.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	}, logger.WithComponent(applog.ComponentSheets))
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	logger.Info("Google Sheets replica initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	return client, nil
}
